package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cropadvisor/adapters/api"
	"cropadvisor/adapters/excel"
	"cropadvisor/adapters/postgres"
	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/advisor"
	"cropadvisor/internal/config"
	"cropadvisor/internal/ingest"
	"cropadvisor/internal/migration"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [observation.json]",
		Short: "Suggest the best-fit crop for one observation",
		Long: `Read one observation as JSON (from a file or stdin) and print the
best-fit crop with its confidence and compatibility score. When
Current_Crop is set the predicted yields of both crops are compared.

Example: cropadvisor classify field.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obs, err := readObservation(cmd, args)
			if err != nil {
				return err
			}
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			sel, err := c.Advisor.SelectCrop(cmd.Context(), obs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sel)
		},
	}
}

func newReportCmd() *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "report [observation.json]",
		Short: "Analyse the current crop and list recommended actions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obs, err := readObservation(cmd, args)
			if err != nil {
				return err
			}
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if markdown {
				report, err := c.Advisor.Advise(cmd.Context(), obs)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), api.ReportMarkdown(report))
				return err
			}

			report, err := c.Advisor.GenerateReport(cmd.Context(), obs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a markdown report including the best-fit crop")
	return cmd
}

func newOptimizeCmd() *cobra.Command {
	var crop string

	cmd := &cobra.Command{
		Use:   "optimize [observation.json]",
		Short: "Search the fertilizer/pesticide grid for the highest predicted yield",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obs, err := readObservation(cmd, args)
			if err != nil {
				return err
			}
			target := obs.CurrentCrop
			if crop != "" {
				target = agronomy.ParseCrop(crop)
			}
			if target.IsEmpty() {
				return fmt.Errorf("no crop to optimize: set Current_Crop or pass --crop")
			}

			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			best, err := c.Optimizer.Optimize(cmd.Context(), obs, target)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), best)
		},
	}

	cmd.Flags().StringVar(&crop, "crop", "", "Crop to optimize for (defaults to Current_Crop)")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var sheet, plotColumn, output string

	cmd := &cobra.Command{
		Use:   "batch [observations.xlsx|csv]",
		Short: "Advise every plot in a spreadsheet",
		Long: `Read one observation per row from an Excel workbook or CSV file and
advise each plot. Rows that fail validation are reported per plot
without stopping the batch.

Example: cropadvisor batch fields.xlsx --output advice.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			source := excel.NewObservationSource(excel.Config{
				FilePath:     args[0],
				Sheet:        sheet,
				PlotIDColumn: plotColumn,
			}, c.Logger)
			plots, err := source.ReadObservations(cmd.Context())
			if err != nil {
				return err
			}

			advice, err := c.Advisor.AdvisePlots(cmd.Context(), plots)
			if err != nil {
				return err
			}
			return writeAdvice(cmd, output, advice)
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (defaults to the first)")
	cmd.Flags().StringVar(&plotColumn, "plot-column", "", "Column holding plot identifiers (detected when empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write advice to this .xlsx file instead of stdout")
	return cmd
}

func newPlotsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plots [user-id]",
		Short: "Advise a user's plots from their latest database readings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}

			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			if err := c.InitWithDatabase(cmd.Context()); err != nil {
				return err
			}

			plots, err := c.Plots.LatestObservations(cmd.Context(), userID)
			if err != nil {
				return err
			}
			advice, err := c.Advisor.AdvisePlots(cmd.Context(), plots)
			if err != nil {
				return err
			}
			return writeAdvice(cmd, output, advice)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write advice to this .xlsx file instead of stdout")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the farm-management tables in a development database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}

			db, err := postgres.Connect(cmd.Context(), cfg.Database.URL, cfg.Database.MaxOpen)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner()
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %s applied\n", runner.Version())
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the recommendation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if c.Config.Database.URL != "" {
				if err := c.InitWithDatabase(cmd.Context()); err != nil {
					return err
				}
			}

			// Start pprof server for performance profiling
			if c.Config.Profiling.Enabled {
				go func() {
					log.Printf("Profiling server starting on :%s", c.Config.Profiling.Port)
					if err := http.ListenAndServe(":"+c.Config.Profiling.Port, nil); err != nil {
						log.Printf("pprof server failed: %v", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:              ":" + c.Config.Server.Port,
				Handler:           c.Server(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("starting cropadvisor server on port %s", c.Config.Server.Port)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			c.Logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// readObservation decodes the observation in args[0], or stdin when no file
// (or "-") is given.
func readObservation(cmd *cobra.Command, args []string) (agronomy.Observation, error) {
	if len(args) == 0 || args[0] == "-" {
		return ingest.DecodeJSON(cmd.InOrStdin())
	}
	f, err := os.Open(args[0])
	if err != nil {
		return agronomy.Observation{}, fmt.Errorf("failed to open observation: %w", err)
	}
	defer f.Close()
	return ingest.DecodeJSON(f)
}

func writeAdvice(cmd *cobra.Command, output string, advice []advisor.PlotAdvice) error {
	if output == "" {
		return printJSON(cmd.OutOrStdout(), advice)
	}
	if err := excel.WriteAdvice(output, advice); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote advice for %d plots to %s\n", len(advice), output)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
