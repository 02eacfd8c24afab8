package main

import (
	"github.com/spf13/cobra"

	"migrasquiel/internal/csvimport"
	"migrasquiel/internal/logging"
)

type importFlags struct {
	destination    string
	destinationEnv string
	input          string
	table          string
	columns        string
	batchRows      int
	skipErrors     bool
}

func newImportCmd(root *rootFlags) *cobra.Command {
	flags := &importFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a CSV file into a destination table, synthesizing its schema if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			applyStringDefault(cmd, "destination", &flags.destination, cfg.Destination)
			applyStringDefault(cmd, "destination-env", &flags.destinationEnv, cfg.DestinationEnv)
			applyIntDefault(cmd, "batch-rows", &flags.batchRows, cfg.BatchRows)
			return runImport(root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.destination, "destination", "", "Destination connection URL")
	cmd.Flags().StringVar(&flags.destinationEnv, "destination-env", "", "Environment variable holding the destination connection URL")
	cmd.Flags().StringVar(&flags.input, "input", "", "Path to the CSV file to import")
	cmd.Flags().StringVar(&flags.table, "table", "", "Destination table name")
	cmd.Flags().StringVar(&flags.columns, "columns", "", "Column rename map: csv_a:db_a,csv_b:db_b")
	cmd.Flags().IntVar(&flags.batchRows, "batch-rows", 1000, "Rows per insert batch")
	cmd.Flags().BoolVar(&flags.skipErrors, "skip-errors", true, "Skip rows that fail to parse instead of aborting the whole import")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runImport(root *rootFlags, flags *importFlags) error {
	log := logging.New(logging.Options{JSON: root.jsonLogs, Debug: root.debug})
	defer log.Sync() //nolint:errcheck

	ctx, cancel := rootContext()
	defer cancel()

	rawURL, err := resolveURL("destination", flags.destination, flags.destinationEnv)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, root.provider, rawURL)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	opts := csvimport.Options{
		TableName:  flags.table,
		ColumnMap:  flags.columns,
		BatchRows:  flags.batchRows,
		SkipErrors: flags.skipErrors,
	}
	summary, err := csvimport.Run(ctx, sess, sess.Dialect(), flags.input, opts)
	if err != nil {
		return err
	}

	log.Infow("import complete",
		"input", flags.input,
		"table", flags.table,
		"total", summary.Total,
		"inserted", summary.Inserted,
		"failed", summary.Failed,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	for _, f := range summary.TopFailures() {
		log.Warnw("row skipped", "line", f.Line, "reason", f.Reason)
	}
	return nil
}
