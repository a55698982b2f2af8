package excel

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"cropadvisor/internal/advisor"
)

// AdviceSheet is the sheet name WriteAdvice writes to.
const AdviceSheet = "Advice"

var adviceHeaders = []string{
	"plot_id", "plot_name", "crop", "severity", "current_yield",
	"optimal_fertilizer", "optimal_pesticide", "optimized_yield",
	"recommendations", "error",
}

// WriteAdvice saves one row per plot advisory to an .xlsx workbook.
func WriteAdvice(path string, advice []advisor.PlotAdvice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), AdviceSheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(AdviceSheet, "A1", &adviceHeaders); err != nil {
		return err
	}

	for i, a := range advice {
		row := []interface{}{a.PlotID, a.PlotName, string(a.CropName), string(a.Severity)}
		if a.Report != nil {
			row = append(row, optional(a.Report.CurrentYield))
			if d := a.Report.OptimalDosage; d != nil {
				row = append(row, d.Fertilizer, d.Pesticide, d.PredictedYield)
			} else {
				row = append(row, nil, nil, nil)
			}
			row = append(row, strings.Join(a.Report.Recommendations, "\n"))
		} else {
			row = append(row, nil, nil, nil, nil, "")
		}
		row = append(row, a.Error)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(AdviceSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
