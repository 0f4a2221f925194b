// Package testutil provides fixture helpers shared by ingestion tests:
// writing Latin-1 encoded, semicolon-separated CSV files the way the
// election authority publishes them.
package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// Latin1 encodes a UTF-8 string to ISO 8859-1.
func Latin1(t *testing.T, s string) []byte {
	t.Helper()
	enc, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encoding fixture to Latin-1: %v", err)
	}
	return []byte(enc)
}

// CSV renders a semicolon-separated file from a header and rows.
func CSV(header string, rows ...string) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, r := range rows {
		sb.WriteString(r)
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteCSV writes a Latin-1 encoded CSV fixture into dir and returns
// its full path.
func WriteCSV(t *testing.T, dir, name, header string, rows ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Latin1(t, CSV(header, rows...)), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

// WriteZip writes a zip archive whose members are Latin-1 encoded CSV
// files, keyed by member name.
func WriteZip(t *testing.T, dir, name string, members map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating archive %s: %v", name, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for member, content := range members {
		w, err := zw.Create(member)
		if err != nil {
			t.Fatalf("adding member %s: %v", member, err)
		}
		if _, err := w.Write(Latin1(t, content)); err != nil {
			t.Fatalf("writing member %s: %v", member, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive %s: %v", name, err)
	}
	return path
}
