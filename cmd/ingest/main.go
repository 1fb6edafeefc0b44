package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"decision-intel/backend/internal/corpus"
	"decision-intel/backend/internal/external"
	"decision-intel/backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	var (
		dbPath         = flag.String("db", filepath.FromSlash("data/decisions.db"), "Path to SQLite database")
		failuresPath   = flag.String("failures", "", "Failure corpus CSV (company_name,industry,decision_type,failure_reason,red_flags)")
		catalogPath    = flag.String("catalog", "", "Catalogue YAML whose benchmarks are stored (defaults to the built-in catalogue)")
		skipBenchmarks = flag.Bool("skip-benchmarks", false, "Do not replace stored benchmark metrics")
		outputPath     = flag.String("output", "", "Optional path to write per-category failure counts as JSON")
	)
	flag.Parse()

	loadEnvDefaults(dbPath, catalogPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		logrus.Fatalf("create database directory: %v", err)
	}
	db, err := store.Open(*dbPath, true)
	if err != nil {
		logrus.Fatalf("open database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	svc := corpus.NewService(db)

	if path := strings.TrimSpace(*failuresPath); path != "" {
		start := time.Now()
		logrus.WithField("file", path).Info("ingesting failure corpus")
		stats, err := svc.LoadFromCSV(path)
		if err != nil {
			logrus.Fatalf("ingest %s: %v", path, err)
		}
		logrus.WithFields(logrus.Fields{
			"file":     path,
			"loaded":   stats.Loaded,
			"skipped":  stats.Skipped,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("ingest complete")
	}

	if !*skipBenchmarks {
		catalog, err := external.LoadCatalog(*catalogPath)
		if err != nil {
			logrus.Fatalf("load catalog: %v", err)
		}
		seeded, err := svc.SeedBenchmarks(catalog)
		if err != nil {
			logrus.Fatalf("seed benchmarks: %v", err)
		}
		logrus.WithField("benchmarks", seeded).Info("benchmark metrics stored")
	}

	counts, err := db.DecisionTypeCounts()
	if err != nil {
		logrus.Fatalf("summarise corpus: %v", err)
	}
	benchmarks, err := db.CountBenchmarks()
	if err != nil {
		logrus.Fatalf("count benchmarks: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"failure_records": svc.Count(),
		"decision_types":  len(counts),
		"benchmarks":      benchmarks,
	}).Info("failure corpus ready")

	if *outputPath != "" {
		if err := writeCounts(*outputPath, counts); err != nil {
			logrus.Fatalf("write counts: %v", err)
		}
		logrus.WithField("path", *outputPath).Info("failure counts written to file")
	}
}

func loadEnvDefaults(dbPath, catalogPath *string) {
	if v := strings.TrimSpace(os.Getenv("DECISION_DB_PATH")); v != "" && !flagSet("db") {
		*dbPath = v
	}
	if strings.TrimSpace(*catalogPath) == "" {
		*catalogPath = strings.TrimSpace(os.Getenv("CATALOG_PATH"))
	}
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func writeCounts(path string, counts map[string]int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
