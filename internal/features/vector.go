package features

// Vector is an ordered feature row whose columns match a trained model's
// column list exactly.
type Vector struct {
	columns []string
	values  []float64
}

// Reindex lays raw out over columns: absent columns become 0 and raw keys
// that are not columns are dropped.
func Reindex(raw map[string]float64, columns []string) Vector {
	v := Vector{
		columns: make([]string, len(columns)),
		values:  make([]float64, len(columns)),
	}
	copy(v.columns, columns)
	for i, col := range columns {
		v.values[i] = raw[col]
	}
	return v
}

// Columns returns the column names in model order.
func (v Vector) Columns() []string {
	out := make([]string, len(v.columns))
	copy(out, v.columns)
	return out
}

// Values returns the row in model order. The slice is a copy.
func (v Vector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Get looks up a single column.
func (v Vector) Get(column string) (float64, bool) {
	for i, c := range v.columns {
		if c == column {
			return v.values[i], true
		}
	}
	return 0, false
}

// Len is the number of columns
func (v Vector) Len() int {
	return len(v.columns)
}

// Map returns the vector as a column->value map, for logging and debugging.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.columns))
	for i, c := range v.columns {
		out[c] = v.values[i]
	}
	return out
}
