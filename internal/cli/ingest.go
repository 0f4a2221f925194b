package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veleitoral/apura/internal/config"
	"github.com/veleitoral/apura/internal/ingest"
	"github.com/veleitoral/apura/internal/layout"
	"github.com/veleitoral/apura/internal/store"
	"github.com/veleitoral/apura/internal/tse"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Clear     bool
	Indexes   bool
	ChunkSize int
	Lenient   bool
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest [data-dir]",
		Short: "Classify and load every result file in a directory",
		Long: `Classify and load every CSV file and zip archive in a directory.

Files are classified by name, falling back to their columns, and loaded
into the database in a single pass. Unrecognized files are skipped and
reported without aborting the run.

Example:
  apura ingest --db ./apura.db ./dados/2024
  apura ingest --db ./apura.db --clear --indexes ./dados/2024`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir := ""
			if len(args) > 0 {
				dataDir = args[0]
			}
			return runIngest(opts, dataDir, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "drop and repopulate the derived tables first")
	cmd.Flags().BoolVar(&opts.Indexes, "indexes", false, "build secondary indexes after loading")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "rows per batch (overrides config)")
	cmd.Flags().BoolVar(&opts.Lenient, "lenient", false, "start in lenient parse mode")

	return cmd
}

func runIngest(opts *IngestOptions, dataDir string, cmd *cobra.Command) error {
	log := setupLogging(opts.RootOptions)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if opts.ChunkSize > 0 {
		cfg.ChunkSize = opts.ChunkSize
	}
	if opts.Lenient {
		cfg.Lenient = true
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("closing database", "error", closeErr)
		}
	}()

	ing := newIngestor(st, cfg, log)
	report, err := ing.IngestAll(cmd.Context(), opts.Clear)
	if err != nil {
		formatter.Error(ErrCodeIngest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "ingesting", err)
	}

	if opts.Indexes {
		if _, err := ing.BuildIndexes(cmd.Context()); err != nil {
			formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "building indexes", err)
		}
	}

	if opts.Format == "json" {
		if err := formatter.SuccessRun(report.RunID, report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(formatter.Writer, renderReport(report))
	}

	if len(report.Skipped()) == len(report.Files) && len(report.Files) > 0 {
		return NewExitError(ExitFailure, "no file could be loaded")
	}
	return nil
}

// newIngestor wires an Ingestor from the effective configuration.
func newIngestor(st *store.Store, cfg config.Config, log *slog.Logger) *ingest.Ingestor {
	opts := []ingest.Option{ingest.WithLogger(log), ingest.WithLenient(cfg.Lenient)}
	if cfg.ChunkSize > 0 {
		opts = append(opts, ingest.WithChunkSize(cfg.ChunkSize))
	}
	if len(cfg.ExtraVoteAliases) > 0 {
		opts = append(opts, ingest.WithResolver(layout.Resolver{
			ExtraVoteAliases: cfg.ExtraVoteAliases,
		}))
	}
	return ingest.New(st, cfg.DataDir, opts...)
}

// renderReport formats an ingestion report for text output.
func renderReport(report *ingest.Report) string {
	var sb strings.Builder
	for _, f := range report.Files {
		switch f.Status {
		case tse.ImportSkipped:
			fmt.Fprintf(&sb, "  SKIP %-50s %s\n", f.Name, f.Err)
		default:
			fmt.Fprintf(&sb, "  %-4s %-50s kind=%s rows=%d", strings.ToUpper(string(f.Status)), f.Name, f.Kind, f.Rows)
			if f.CoercedCells > 0 {
				fmt.Fprintf(&sb, " coerced=%d", f.CoercedCells)
			}
			if f.SkippedLines > 0 {
				fmt.Fprintf(&sb, " skipped_lines=%d", f.SkippedLines)
			}
			sb.WriteString("\n")
		}
	}
	fmt.Fprintf(&sb, "%d file(s), %d row(s) loaded (run %s)\n", len(report.Files), report.Rows, report.RunID)
	return sb.String()
}
