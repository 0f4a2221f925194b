package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veleitoral/apura/internal/store"
	"github.com/veleitoral/apura/internal/tse"
)

// IngestFileOptions holds flags for the ingest-file command.
type IngestFileOptions struct {
	*RootOptions
	Kind      string
	ChunkSize int
	Lenient   bool
}

var kindValues = []tse.FileKind{
	tse.KindSectionVote, tse.KindMunZoneSummary, tse.KindCandidateMeta,
	tse.KindPartyMeta, tse.KindLocationDetail,
}

// NewIngestFileCommand creates the ingest-file command.
func NewIngestFileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestFileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest-file <path>",
		Short: "Load a single result file",
		Long: `Load a single CSV file, classifying it by name and columns.

The --kind flag forces a layout when the file name is inconclusive.

Example:
  apura ingest-file --db ./apura.db ./dados/votacao_secao_2024_SP.csv
  apura ingest-file --db ./apura.db --kind munzona ./dados/resumo.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "force the file kind (secao|munzona|candidato|partido|local)")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "rows per batch (overrides config)")
	cmd.Flags().BoolVar(&opts.Lenient, "lenient", false, "start in lenient parse mode")

	return cmd
}

func parseKind(s string) (tse.FileKind, error) {
	if s == "" {
		return tse.KindUnclassified, nil
	}
	for _, k := range kindValues {
		if s == string(k) {
			return k, nil
		}
	}
	return tse.KindUnclassified, fmt.Errorf("unknown kind %q", s)
}

func runIngestFile(opts *IngestFileOptions, path string, cmd *cobra.Command) error {
	log := setupLogging(opts.RootOptions)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	kind, err := parseKind(opts.Kind)
	if err != nil {
		formatter.Error(ErrCodeIngest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parsing --kind", err)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading config", err)
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
	report, err := ing.IngestFile(cmd.Context(), path, kind)
	if err != nil {
		formatter.Error(ErrCodeIngest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "ingesting file", err)
	}

	if opts.Format == "json" {
		if err := formatter.SuccessRun(report.RunID, report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(formatter.Writer, renderReport(report))
	}

	if len(report.Skipped()) > 0 {
		return NewExitError(ExitFailure, "file was skipped")
	}
	return nil
}
