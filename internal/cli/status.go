package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veleitoral/apura/internal/store"
	"github.com/veleitoral/apura/internal/tse"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	LogLimit int
}

// StatusReport is the aggregate database status.
type StatusReport struct {
	Database string               `json:"database"`
	Tables   map[string]int64     `json:"tables"`
	Years    []string             `json:"years,omitempty"`
	Imports  []tse.ImportLogEntry `json:"imports,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show table counts, loaded years and recent imports",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.LogLimit, "log-limit", 10, "number of recent import log entries to show")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
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

	ctx := cmd.Context()
	report := StatusReport{Database: cfg.Database}

	report.Tables, err = st.TableCounts(ctx)
	if err != nil {
		formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "counting tables", err)
	}
	report.Years, err = st.Years(ctx)
	if err != nil {
		formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing years", err)
	}
	report.Imports, err = st.ImportLog(ctx, opts.LogLimit)
	if err != nil {
		formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading import log", err)
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	return formatter.Success(renderStatus(report))
}

func renderStatus(report StatusReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "database: %s\n", report.Database)

	fmt.Fprintln(&sb, "tables:")
	for _, table := range []string{
		store.TableSectionVotes, store.TableSummaries, store.TableCandidates,
		store.TableParties, store.TableLocations, store.TableImportLog,
	} {
		fmt.Fprintf(&sb, "  %-20s %d\n", table, report.Tables[table])
	}

	if len(report.Years) > 0 {
		fmt.Fprintf(&sb, "years: %s\n", strings.Join(report.Years, ", "))
	}

	if len(report.Imports) > 0 {
		fmt.Fprintln(&sb, "recent imports:")
		for _, e := range report.Imports {
			fmt.Fprintf(&sb, "  %s  %-8s %-50s rows=%d status=%s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.FileName, e.Rows, e.Status)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
