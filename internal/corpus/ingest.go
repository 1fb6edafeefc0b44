package corpus

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"decision-intel/backend/internal/decision"
	"decision-intel/backend/internal/external"
	"decision-intel/backend/internal/store"
)

// Columns of the failure corpus CSV, in positional order when no header row is present.
var columns = []string{"company_name", "industry", "decision_type", "failure_reason", "red_flags"}

// Stats summarises one ingest run.
type Stats struct {
	Loaded  int
	Skipped int
	ByType  map[string]int
}

// Service loads the external failure corpus and benchmark metrics into the database.
type Service struct {
	db *store.Database
}

func NewService(db *store.Database) *Service {
	return &Service{db: db}
}

// LoadFromCSV ingests the provided CSV and replaces the stored failure corpus.
func (s *Service) LoadFromCSV(path string) (Stats, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Stats{}, errors.New("failure corpus path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open failure corpus: %w", err)
	}
	defer file.Close()

	records, stats, err := ReadCSV(bufio.NewReader(file))
	if err != nil {
		return Stats{}, err
	}

	rows := make([]store.FailureRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, store.FailureRecordFrom(rec))
	}
	if err := s.db.ReplaceFailureRecords(rows); err != nil {
		return Stats{}, fmt.Errorf("replace failure records: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"path":    path,
		"loaded":  stats.Loaded,
		"skipped": stats.Skipped,
	}).Info("failure corpus loaded")
	return stats, nil
}

// SeedBenchmarks stores every benchmark metric of the catalogue, replacing existing ones.
func (s *Service) SeedBenchmarks(catalog *external.Catalog) (int, error) {
	if catalog == nil {
		return 0, errors.New("catalog is nil")
	}
	categories := make([]string, 0, len(catalog.Benchmarks))
	for category := range catalog.Benchmarks {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var metrics []store.BenchmarkMetric
	for _, category := range categories {
		for name, value := range catalog.BenchmarksFor(category) {
			metrics = append(metrics, store.BenchmarkMetric{Category: category, Name: name, Value: value})
		}
	}
	if err := s.db.ReplaceBenchmarks(metrics); err != nil {
		return 0, fmt.Errorf("replace benchmarks: %w", err)
	}
	return len(metrics), nil
}

// Count returns the number of stored failure records.
func (s *Service) Count() int {
	if s == nil {
		return 0
	}
	count, err := s.db.CountFailureRecords()
	if err != nil {
		return 0
	}
	return int(count)
}

// ReadCSV parses failure corpus rows. A leading header row is honoured when present;
// rows without a decision type or failure reason are skipped. Failure reasons that
// differ only in case or spacing are folded onto the first spelling seen.
func ReadCSV(r io.Reader) ([]decision.ExternalFailureRecord, Stats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	stats := Stats{ByType: make(map[string]int)}
	index := positional()
	spellings := make(map[string]string)
	var out []decision.ExternalFailureRecord

	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Stats{}, fmt.Errorf("read failure corpus row: %w", err)
		}
		if first {
			first = false
			if header, ok := headerIndex(row); ok {
				index = header
				continue
			}
		}
		if isBlank(row) {
			continue
		}

		rec := decision.ExternalFailureRecord{
			CompanyName:   field(row, index, "company_name"),
			Industry:      field(row, index, "industry"),
			DecisionType:  decision.NormalizeCategory(field(row, index, "decision_type")),
			FailureReason: collapseSpaces(field(row, index, "failure_reason")),
			RedFlags:      splitFlags(field(row, index, "red_flags")),
		}
		if rec.DecisionType == "" || rec.FailureReason == "" {
			stats.Skipped++
			continue
		}

		key := strings.ToLower(rec.FailureReason)
		if spelling, ok := spellings[key]; ok {
			rec.FailureReason = spelling
		} else {
			spellings[key] = rec.FailureReason
		}

		out = append(out, rec)
		stats.Loaded++
		stats.ByType[rec.DecisionType]++
	}
	return out, stats, nil
}

func positional() map[string]int {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	return index
}

func headerIndex(row []string) (map[string]int, bool) {
	index := make(map[string]int)
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		for _, column := range columns {
			if name == column {
				index[column] = i
			}
		}
	}
	_, hasType := index["decision_type"]
	_, hasReason := index["failure_reason"]
	return index, hasType && hasReason
}

func field(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitFlags(value string) []string {
	var flags []string
	for _, part := range strings.Split(value, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			flags = append(flags, trimmed)
		}
	}
	return flags
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
