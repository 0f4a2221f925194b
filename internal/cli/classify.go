package cli

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/veleitoral/apura/internal/classify"
	"github.com/veleitoral/apura/internal/layout"
	"github.com/veleitoral/apura/internal/tse"
)

// ClassifiedFile is one entry of a classify dry run.
type ClassifiedFile struct {
	Name  string       `json:"name"`
	Kind  tse.FileKind `json:"kind"`
	Year  string       `json:"year,omitempty"`
	State string       `json:"state,omitempty"`
}

// NewClassifyCommand creates the classify command, a dry run that
// reports how each file in a directory would be handled without
// touching any database.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <data-dir>",
		Short: "Show how files in a directory would be classified",
		Long: `Classify every CSV file and zip archive member in a directory without
loading anything. Useful to check a download before an ingest run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runClassify(opts *RootOptions, dataDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		formatter.Error(ErrCodeDataDir, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing data directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var files []ClassifiedFile
	for _, name := range names {
		path := filepath.Join(dataDir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv":
			files = append(files, classifyOne(name, func() (*layout.ColumnMap, error) {
				return peekColumns(path)
			}))
		case ".zip":
			files = append(files, classifyArchive(path)...)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(files)
	}
	for _, f := range files {
		fmt.Fprintf(formatter.Writer, "  %-12s %-50s year=%s state=%s\n", f.Kind, f.Name, orDash(f.Year), orDash(f.State))
	}
	fmt.Fprintf(formatter.Writer, "%d file(s)\n", len(files))
	return nil
}

// classifyOne classifies by name first and peeks at the header only
// when the name is inconclusive, mirroring the ingest path.
func classifyOne(name string, peek func() (*layout.ColumnMap, error)) ClassifiedFile {
	res := classify.Classify(name, nil)
	if res.Kind == tse.KindUnclassified {
		if cols, err := peek(); err == nil {
			res = classify.Classify(name, cols)
		}
	}
	return ClassifiedFile{Name: name, Kind: res.Kind, Year: res.Year, State: res.State}
}

func classifyArchive(path string) []ClassifiedFile {
	base := filepath.Base(path)
	zr, err := zip.OpenReader(path)
	if err != nil {
		return []ClassifiedFile{{Name: base, Kind: tse.KindUnclassified}}
	}
	defer zr.Close()

	members := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.ToLower(filepath.Ext(f.Name)) == ".csv" {
			members = append(members, f.Name)
		}
	}
	sort.Strings(members)

	var files []ClassifiedFile
	for _, member := range members {
		name := filepath.Base(member)
		files = append(files, classifyOne(name, func() (*layout.ColumnMap, error) {
			return peekArchiveColumns(zr, member)
		}))
		files[len(files)-1].Name = base + "/" + name
	}
	return files
}

// peekColumns resolves the header row of a file without reading data.
func peekColumns(path string) (*layout.ColumnMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readHeader(csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f)))
}

func peekArchiveColumns(zr *zip.ReadCloser, member string) (*layout.ColumnMap, error) {
	for _, f := range zr.File {
		if f.Name == member {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return readHeader(csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(rc)))
		}
	}
	return nil, fmt.Errorf("member %s not found", member)
}

func readHeader(r *csv.Reader) (*layout.ColumnMap, error) {
	r.Comma = ';'
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.ToUpper(strings.Trim(strings.TrimSpace(h), `"`))
	}
	cols := layout.Resolve(header)
	return &cols, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
