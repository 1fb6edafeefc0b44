package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"decision-intel/backend/internal/ai"
	"decision-intel/backend/internal/api"
	"decision-intel/backend/internal/scoring"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("load .env file")
	}

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	aiCfg := ai.Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
	if temp := os.Getenv("OPENAI_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			aiCfg.Temperature = v
		}
	}
	if maxTokens := os.Getenv("OPENAI_MAX_TOKENS"); maxTokens != "" {
		if v, err := strconv.Atoi(maxTokens); err == nil {
			aiCfg.MaxTokens = v
		}
	}

	tokenizer := scoring.DefaultTokenizerConfig()
	if v := strings.TrimSpace(os.Getenv("KEYWORD_MIN_LENGTH")); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			tokenizer.MinLength = val
		}
	}
	if v := strings.TrimSpace(os.Getenv("KEYWORD_LIMIT")); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			tokenizer.MaxKeywords = val
		}
	}
	if v := strings.TrimSpace(os.Getenv("KEYWORD_STOP_WORDS")); v != "" {
		tokenizer.StopWords = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("KEYWORD_TRIM_PUNCTUATION")); v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			tokenizer.TrimPunctuation = val
		}
	}

	timeout := 10 * time.Second
	if v := strings.TrimSpace(os.Getenv("RECOMMEND_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		} else {
			logrus.WithError(err).Warn("invalid RECOMMEND_TIMEOUT; using default")
		}
	}

	origins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		origins = splitList(v)
	}

	disableAI := strings.EqualFold(strings.TrimSpace(os.Getenv("DISABLE_AI")), "true")

	cfg := api.Config{
		DBPath:             filepath.Join(dataDir, "decisions.db"),
		HistoryDatabaseURL: os.Getenv("HISTORY_DATABASE_URL"),
		CatalogPath:        strings.TrimSpace(os.Getenv("CATALOG_PATH")),
		AllowedOrigins:     origins,
		Tokenizer:          tokenizer,
		RecommendTimeout:   timeout,
		AIConfig:           aiCfg,
		DisableAI:          disableAI,
	}

	if override := strings.TrimSpace(os.Getenv("DECISION_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close server")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2000"
	}

	logrus.Infof("starting decision-intel backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
