package main

import (
	"fmt"
	"path/filepath"

	"github.com/mlehmk/fabula/artifact"
	"github.com/spf13/cobra"
)

var exportOut string

var exportCsvCmd = &cobra.Command{
	Use:   "export-csv [run-dir]",
	Short: "Export CSV projections of a finished run",
	Long: `Export the temporal and role completeness CSV projections of a run
directory produced by 'fabula process'.

Writes temporal.csv and role_completeness.csv next to the run's artifacts
unless --out points elsewhere.`,
	Args: cobra.ExactArgs(1),
	RunE: runExportCsv,
}

func init() {
	rootCmd.AddCommand(exportCsvCmd)
	exportCsvCmd.Flags().StringVar(&exportOut, "out", "", "Output directory for CSV files (defaults to the run directory)")
}

func runExportCsv(cmd *cobra.Command, args []string) error {
	runDir := args[0]

	store := artifact.NewStore(runDir)
	events, err := store.ReadEvents()
	if err != nil {
		return fmt.Errorf("read events artifact: %w", err)
	}

	outDir := exportOut
	if outDir == "" {
		outDir = runDir
	}

	temporalPath := filepath.Join(outDir, "temporal.csv")
	if err := artifact.ExportTemporalCSV(temporalPath, events); err != nil {
		return fmt.Errorf("export temporal csv: %w", err)
	}

	rolesPath := filepath.Join(outDir, "role_completeness.csv")
	if err := artifact.ExportRoleCompletenessCSV(rolesPath, events); err != nil {
		return fmt.Errorf("export role completeness csv: %w", err)
	}

	fmt.Printf("Exported %d events to %s and %s\n", len(events), temporalPath, rolesPath)
	return nil
}
