package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/rank"
)

// SequenceReport is the diagnostic record of one fixture.
type SequenceReport struct {
	ID             int64                       `json:"id"`
	Path           string                      `json:"path"`
	Strategy       ir.Strategy                 `json:"strategy"`
	OK             bool                        `json:"ok"`
	Metrics        *ir.QualityMetrics          `json:"metrics"`
	Violations     []engine.Violation          `json:"violations"`
	UnknownSymbols []engine.UnknownSymbolError `json:"unknown_symbols,omitempty"`
	LeakCandidates []engine.LeakCandidate      `json:"leak_candidates,omitempty"`
	Fingerprint    string                      `json:"fingerprint,omitempty"`
	Rank           int                         `json:"rank,omitempty"`
	DuplicateOf    *int64                      `json:"duplicate_of,omitempty"`
	Error          string                      `json:"error,omitempty"`
}

// Report is the consolidated result of one analysis run.
type Report struct {
	Version       string                               `json:"version"`
	EngineVersion string                               `json:"engine_version"`
	RunID         string                               `json:"run_id"`
	Library       string                               `json:"library"`
	ManifestHash  string                               `json:"manifest_hash"`
	Mode          engine.Mode                          `json:"mode"`
	Sequences     []SequenceReport                     `json:"sequences"`
	Ranking       []int64                              `json:"ranking"`
	Strategies    map[ir.Strategy]rank.StrategySummary `json:"strategies"`
}

// Summary counts report outcomes.
type Summary struct {
	Total      int `json:"total"`
	OK         int `json:"ok"`
	Violating  int `json:"violating"`
	Errored    int `json:"errored"`
	Ranked     int `json:"ranked"`
	Duplicates int `json:"duplicates"`
}

// Summary tallies the report.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.Sequences), Ranked: len(r.Ranking)}
	for _, seq := range r.Sequences {
		switch {
		case seq.Error != "":
			s.Errored++
		case seq.OK:
			s.OK++
		default:
			s.Violating++
		}
		if seq.DuplicateOf != nil {
			s.Duplicates++
		}
	}
	return s
}

// WriteReport writes r as indented JSON. The file is replaced atomically.
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

// RewriteFixture rewrites the header of f on disk with q.
func RewriteFixture(f *Fixture, q ir.QualityMetrics) error {
	src, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	out, err := RewriteHeader(src, q)
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", f.Path, err)
	}
	if string(out) == string(src) {
		return nil
	}
	return writeFileAtomic(f.AbsPath, out)
}

func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
