package cli

import (
	"github.com/spf13/cobra"

	"github.com/veleitoral/apura/internal/ingest"
	"github.com/veleitoral/apura/internal/store"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Truncate the derived tables and the import log",
		Long: `Truncate the derived tables (section votes, summaries, polling places)
and the import log, keeping table structure. Curated candidate and
party metadata is never touched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(rootOpts, cmd)
		},
	}
	return cmd
}

func runClear(opts *RootOptions, cmd *cobra.Command) error {
	log := setupLogging(opts)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading config", err)
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

	ing := ingest.New(st, cfg.DataDir, ingest.WithLogger(log))
	if err := ing.ClearDerivedData(cmd.Context()); err != nil {
		formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "clearing derived data", err)
	}
	return formatter.Success("derived data cleared")
}
