// Package config loads and validates the runtime configuration.
//
// Configuration is written in CUE and validated against the embedded
// #Config schema, so bad types and out-of-range values are rejected
// with positions before any file is touched.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSrc string

// Config is the validated runtime configuration.
type Config struct {
	// DataDir is the directory scanned for source files.
	DataDir string `json:"data_dir"`
	// Database is the SQLite database path.
	Database string `json:"database"`
	// ChunkSize is the number of rows per parse-and-load batch.
	ChunkSize int `json:"chunk_size"`
	// Lenient starts every file in lenient parse mode instead of
	// falling back to it after a strict failure.
	Lenient bool `json:"lenient"`
	// ExtraVoteAliases extends the built-in vote-count column aliases.
	// Built-ins are always tried first.
	ExtraVoteAliases []string `json:"extra_vote_aliases"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		DataDir:   ".",
		Database:  "apura.db",
		ChunkSize: 100_000,
	}
}

// Load reads a CUE config file, validates it against the schema and
// returns the decoded configuration. Fields absent from the file keep
// their schema defaults.
func Load(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(path, src)
}

// Parse validates raw CUE config source. filename is used in error
// positions only.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compiling config schema: %w", err)
	}

	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validating %s: %w", filename, err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding %s: %w", filename, err)
	}
	return cfg, nil
}
