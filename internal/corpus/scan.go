package corpus

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/seqscore/internal/ir"
)

// DefaultExtensions are the fixture file extensions scanned by default.
var DefaultExtensions = []string{".c", ".cc", ".cpp", ".cxx"}

// Fixture is one corpus file and the sequence extracted from it.
type Fixture struct {
	Path     string // slash-separated, relative to the corpus root
	AbsPath  string
	Header   *Header
	Sequence *ir.SequenceRecord
	Err      error // header error; the fixture is reported but not analyzed
}

// ScanOptions configures Scan.
type ScanOptions struct {
	Extensions []string
}

// Scan walks dir in lexical order and loads every fixture.
//
// A fixture whose header cannot be parsed is returned with Err set rather
// than failing the scan. Only I/O errors abort.
func Scan(dir string, model *ir.InterfaceModel, opts ScanOptions) ([]*Fixture, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus dir: %s is not a directory", dir)
	}

	extractor := NewExtractor(model)
	var fixtures []*Fixture

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read fixture: %w", err)
		}

		fixtures = append(fixtures, LoadFixture(filepath.ToSlash(rel), path, src, extractor))
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("corpus scanned", "dir", dir, "fixtures", len(fixtures))
	return fixtures, nil
}

// LoadFixture parses one fixture's header and extracts its sequence.
func LoadFixture(rel, abs string, src []byte, extractor *Extractor) *Fixture {
	f := &Fixture{Path: rel, AbsPath: abs}

	h, err := ParseHeader(src)
	if err != nil {
		f.Err = err
		f.Sequence = &ir.SequenceRecord{Path: rel, Strategy: StrategyFor(rel, ""), Calls: []ir.Call{}}
		return f
	}
	for _, w := range h.Warnings {
		slog.Warn("stale header value", "path", rel, "detail", w)
	}

	f.Header = h
	f.Sequence = &ir.SequenceRecord{
		ID:       h.ID,
		Path:     rel,
		Strategy: StrategyFor(rel, h.Strategy),
		Calls:    extractor.Extract(src),
	}
	return f
}

// StrategyFor picks a fixture's strategy tag: the header value when it
// names a strategy, otherwise the first directory of its path, otherwise
// baseline.
func StrategyFor(rel, header string) ir.Strategy {
	if header != "" {
		if s, err := ir.ParseStrategy(strings.ToLower(header)); err == nil {
			return s
		}
	}
	if first, _, found := strings.Cut(rel, "/"); found {
		if s, err := ir.ParseStrategy(strings.ToLower(first)); err == nil {
			return s
		}
	}
	return ir.StrategyBaseline
}
