package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cropadvisor/internal"
	"cropadvisor/internal/config"
	"cropadvisor/internal/container"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:           "cropadvisor",
		Short:         "Agronomic recommendations from soil and climate readings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newClassifyCmd(),
		newReportCmd(),
		newOptimizeCmd(),
		newBatchCmd(),
		newPlotsCmd(),
		newMigrateCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildContainer loads configuration and model artifacts.
func buildContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return container.New(cfg, internal.NewDefaultLogger())
}
