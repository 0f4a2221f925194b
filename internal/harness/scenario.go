package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end ingestion test case: a set of fixture
// files, ingestion options, and assertions over the loaded database.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Files are loose CSV fixtures written to the data directory.
	Files []FileFixture `yaml:"files,omitempty"`

	// Archives are zip fixtures; each member is a CSV file.
	Archives []ArchiveFixture `yaml:"archives,omitempty"`

	// Options configure the ingestion run.
	Options RunOptions `yaml:"options,omitempty"`

	// Runs is the number of times the full ingestion is executed over
	// the same directory. Defaults to 1; idempotence scenarios use 2.
	Runs int `yaml:"runs,omitempty"`

	// Assertions validate the database after the final run.
	Assertions []Assertion `yaml:"assertions"`
}

// FileFixture is one CSV fixture. Content is written Latin-1 encoded,
// the way the source authority publishes its files.
type FileFixture struct {
	Name   string   `yaml:"name"`
	Header string   `yaml:"header"`
	Rows   []string `yaml:"rows"`
}

// ArchiveFixture is a zip archive fixture.
type ArchiveFixture struct {
	Name    string        `yaml:"name"`
	Members []FileFixture `yaml:"members"`
}

// RunOptions are the ingestion options a scenario may set.
type RunOptions struct {
	// Clear drops and repopulates the derived tables before each run.
	Clear bool `yaml:"clear,omitempty"`

	// Lenient starts files in lenient parse mode.
	Lenient bool `yaml:"lenient,omitempty"`

	// ChunkSize overrides the batch size; small values exercise chunk
	// boundaries with tiny fixtures.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// ExtraVoteAliases extends the vote-count column aliases.
	ExtraVoteAliases []string `yaml:"extra_vote_aliases,omitempty"`
}

// Assertion validates the final database or the run report.
type Assertion struct {
	// Type specifies the assertion type:
	// - "vote_total": sum votes under a filter and compare
	// - "table_count": compare a table's row count
	// - "candidate_status": look up a candidate's final round status
	// - "file_status": check the reported outcome of one file
	Type string `yaml:"type"`

	// Where filters the query (vote_total: year/state/payee etc,
	// candidate_status: the natural key fields).
	Where map[string]string `yaml:"where,omitempty"`

	// Total is the expected vote sum (vote_total).
	Total int64 `yaml:"total,omitempty"`

	// Table and Count compare a row count (table_count).
	Table string `yaml:"table,omitempty"`
	Count int64  `yaml:"count,omitempty"`

	// Status is the expected value for candidate_status or file_status.
	Status string `yaml:"status,omitempty"`

	// File names the report entry checked by file_status.
	File string `yaml:"file,omitempty"`

	// Rows is the expected loaded row count for file_status. Negative
	// means unchecked.
	Rows int64 `yaml:"rows,omitempty"`
}

// Assertion type constants.
const (
	AssertVoteTotal       = "vote_total"
	AssertTableCount      = "table_count"
	AssertCandidateStatus = "candidate_status"
	AssertFileStatus      = "file_status"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Files) == 0 && len(s.Archives) == 0 {
		return fmt.Errorf("at least one file or archive fixture is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Runs < 0 {
		return fmt.Errorf("runs must be non-negative")
	}

	for i, f := range s.Files {
		if f.Name == "" || f.Header == "" {
			return fmt.Errorf("files[%d]: name and header are required", i)
		}
	}
	for i, a := range s.Archives {
		if a.Name == "" {
			return fmt.Errorf("archives[%d]: name is required", i)
		}
		if len(a.Members) == 0 {
			return fmt.Errorf("archives[%d]: members list must be non-empty", i)
		}
		for j, m := range a.Members {
			if m.Name == "" || m.Header == "" {
				return fmt.Errorf("archives[%d].members[%d]: name and header are required", i, j)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertVoteTotal:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for vote_total", index)
		}
	case AssertTableCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for table_count", index)
		}
	case AssertCandidateStatus:
		if len(a.Where) == 0 || a.Status == "" {
			return fmt.Errorf("assertions[%d]: where and status are required for candidate_status", index)
		}
	case AssertFileStatus:
		if a.File == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: file and status are required for file_status", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
