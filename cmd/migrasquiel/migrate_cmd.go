package main

import (
	"strings"

	"github.com/spf13/cobra"

	"migrasquiel/internal/logging"
	"migrasquiel/internal/migrate"
	"migrasquiel/internal/pipeline"
)

type migrateFlags struct {
	source             string
	sourceEnv          string
	destination        string
	destinationEnv     string
	tables             string
	exclude            string
	schemaOnly         bool
	dataOnly           bool
	batchRows          int
	consistentSnapshot bool
	disableFKChecks    bool
}

func newMigrateCmd(root *rootFlags) *cobra.Command {
	flags := &migrateFlags{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate schema and data directly from a source to a destination",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			applyStringDefault(cmd, "source", &flags.source, cfg.Source)
			applyStringDefault(cmd, "source-env", &flags.sourceEnv, cfg.SourceEnv)
			applyStringDefault(cmd, "destination", &flags.destination, cfg.Destination)
			applyStringDefault(cmd, "destination-env", &flags.destinationEnv, cfg.DestinationEnv)
			applyStringDefault(cmd, "tables", &flags.tables, strings.Join(cfg.Tables, ","))
			applyStringDefault(cmd, "exclude", &flags.exclude, strings.Join(cfg.Exclude, ","))
			applyIntDefault(cmd, "batch-rows", &flags.batchRows, cfg.BatchRows)
			applyBoolDefault(cmd, "consistent-snapshot", &flags.consistentSnapshot, cfg.ConsistentSnapshot)
			if cfg.DisableFKChecks != nil && !cmd.Flags().Changed("disable-fk-checks") {
				flags.disableFKChecks = *cfg.DisableFKChecks
			}
			return runMigrate(root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.source, "source", "", "Source connection URL")
	cmd.Flags().StringVar(&flags.sourceEnv, "source-env", "", "Environment variable holding the source connection URL")
	cmd.Flags().StringVar(&flags.destination, "destination", "", "Destination connection URL")
	cmd.Flags().StringVar(&flags.destinationEnv, "destination-env", "", "Environment variable holding the destination connection URL")
	cmd.Flags().StringVar(&flags.tables, "tables", "", "Comma-separated table glob patterns to include")
	cmd.Flags().StringVar(&flags.exclude, "exclude", "", "Comma-separated table glob patterns to exclude")
	cmd.Flags().BoolVar(&flags.schemaOnly, "schema-only", false, "Migrate only CREATE TABLE statements (same-dialect only)")
	cmd.Flags().BoolVar(&flags.dataOnly, "data-only", false, "Migrate only row data")
	cmd.Flags().IntVar(&flags.batchRows, "batch-rows", 1000, "Rows per INSERT batch")
	cmd.Flags().BoolVar(&flags.consistentSnapshot, "consistent-snapshot", false, "Hold a consistent snapshot on the source across the whole migration")
	cmd.Flags().BoolVar(&flags.disableFKChecks, "disable-fk-checks", true, "Disable foreign key checks on the destination while migrating")

	return cmd
}

func runMigrate(root *rootFlags, flags *migrateFlags) error {
	if flags.schemaOnly && flags.dataOnly {
		return fatalUsage("--schema-only and --data-only are mutually exclusive")
	}

	log := logging.New(logging.Options{JSON: root.jsonLogs, Debug: root.debug})
	defer log.Sync() //nolint:errcheck

	ctx, cancel := rootContext()
	defer cancel()

	srcURL, err := resolveURL("source", flags.source, flags.sourceEnv)
	if err != nil {
		return err
	}
	dstURL, err := resolveURL("destination", flags.destination, flags.destinationEnv)
	if err != nil {
		return err
	}

	srcSess, err := openSession(ctx, root.provider, srcURL)
	if err != nil {
		return err
	}
	defer func() { _ = srcSess.Close() }()

	dstSess, err := openSession(ctx, root.provider, dstURL)
	if err != nil {
		return err
	}
	defer func() { _ = dstSess.Close() }()

	src := pipeline.SessionSource{Session: srcSess}

	tables, err := src.ListTables(ctx)
	if err != nil {
		return err
	}
	filter := pipeline.TableFilter{Include: splitCSV(flags.tables), Exclude: splitCSV(flags.exclude)}
	var total int64
	for _, t := range filter.Apply(tables) {
		if t.RowCountEstimate > 0 {
			total += t.RowCountEstimate
		}
	}
	reporter := pipeline.NewReporter(cmdOut(), log, total)
	defer reporter.Close()

	opts := migrate.Options{
		Filter:             filter,
		ConsistentSnapshot: flags.consistentSnapshot,
		DisableConstraints: flags.disableFKChecks,
		SchemaOnly:         flags.schemaOnly,
		DataOnly:           flags.dataOnly,
		BatchRows:          flags.batchRows,
	}
	if err := migrate.Run(ctx, src, srcSess.Dialect(), dstSess, dstSess.Dialect(), opts, reporter); err != nil {
		return err
	}
	log.Infow("migrate complete", "tables", len(tables))
	return nil
}
