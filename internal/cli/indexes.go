package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veleitoral/apura/internal/ingest"
	"github.com/veleitoral/apura/internal/store"
)

// NewIndexesCommand creates the indexes command.
func NewIndexesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Build secondary indexes after a bulk load",
		Long: `Build the secondary query indexes. Indexes are created after bulk
loading rather than before, so inserts stay fast. Targets whose table
was never loaded are skipped and reported.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexes(rootOpts, cmd)
		},
	}
	return cmd
}

func runIndexes(opts *RootOptions, cmd *cobra.Command) error {
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
	results, err := ing.BuildIndexes(cmd.Context())
	if err != nil {
		formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "building indexes", err)
	}

	if opts.Format == "json" {
		return formatter.Success(results)
	}
	var sb strings.Builder
	created := 0
	for _, r := range results {
		state := "created"
		if r.Skipped {
			state = "skipped (table never loaded)"
		} else if !r.Created {
			state = "exists"
		} else {
			created++
		}
		fmt.Fprintf(&sb, "  %-28s on %-20s %s\n", r.Name, r.Table, state)
	}
	fmt.Fprintf(&sb, "%d index(es) created", created)
	return formatter.Success(sb.String())
}
