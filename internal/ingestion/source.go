// Package ingestion implements the Claim Source (spec.md §4.1): it
// discovers input files matching a glob pattern and streams them into
// typed claim.Claim records, in deterministic file order.
package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pbmcore/adjudicator/internal/claim"
	"github.com/pbmcore/adjudicator/internal/pbmerr"
)

// Source discovers and parses claim input files.
type Source struct {
	Dir     string
	Pattern string
}

// NewSource builds a Source rooted at dir, matching files against pattern
// (e.g. "pharmacy_claims_simulation_*.csv").
func NewSource(dir, pattern string) *Source {
	return &Source{Dir: dir, Pattern: pattern}
}

// Discover returns the matching file paths sorted lexicographically by
// filename, so split-file shards are consumed in natural order (spec.md
// §4.1, §5).
func (s *Source) Discover() ([]string, error) {
	if _, err := os.Stat(s.Dir); err != nil {
		return nil, &pbmerr.DataSourceError{Reason: fmt.Sprintf("directory %s not found", s.Dir), Err: err}
	}

	matches, err := filepath.Glob(filepath.Join(s.Dir, s.Pattern))
	if err != nil {
		return nil, &pbmerr.DataSourceError{Reason: "invalid pattern", Err: err}
	}
	if len(matches) == 0 {
		return nil, &pbmerr.DataSourceError{Reason: fmt.Sprintf("no files matched %s in %s", s.Pattern, s.Dir)}
	}

	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) < filepath.Base(matches[j])
	})
	return matches, nil
}

// LoadResult is the outcome of a full ingest pass.
type LoadResult struct {
	Claims       []claim.Claim
	FilesLoaded  int
	RowsSkipped  int
}

// LoadAll discovers and parses every matching file in order, producing the
// ordered in-memory sequence the Coordinator drives (spec.md §4.5 step 2).
func (s *Source) LoadAll() (*LoadResult, error) {
	files, err := s.Discover()
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for i, path := range files {
		n, err := s.loadFile(path, result)
		if err != nil {
			return nil, err
		}
		result.FilesLoaded++
		log.Printf("Loaded %d claims from file %d", n, i+1)
	}
	return result, nil
}

func (s *Source) loadFile(path string, result *LoadResult) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &pbmerr.DataSourceError{Reason: fmt.Sprintf("open %s", path), Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, &pbmerr.DataSourceError{Reason: fmt.Sprintf("read header of %s", path), Err: err}
	}
	cols := buildColumnMap(header)
	if err := cols.requireAll(requiredColumns); err != nil {
		return 0, &pbmerr.DataSourceError{Reason: fmt.Sprintf("%s: %v", path, err)}
	}

	loaded := 0
	lineNum := 1
	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("WARNING: %s: line %d: skipped: %v", path, lineNum, err)
			result.RowsSkipped++
			continue
		}

		c, err := parseRow(row, cols, lineNum)
		if err != nil {
			log.Printf("WARNING: %s: line %d: skipped: %v", path, lineNum, err)
			result.RowsSkipped++
			continue
		}

		if c.ClaimNumber == "" {
			c.ClaimNumber = fmt.Sprintf("CLM-%s", uuid.New().String())
		}
		if len(c.ClaimNumber) > 50 {
			c.ClaimNumber = c.ClaimNumber[:50]
		}
		c.ReceivedAt = time.Now().UTC()

		result.Claims = append(result.Claims, c)
		loaded++
	}

	return loaded, nil
}
