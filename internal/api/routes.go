package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"decision-intel/backend/internal/ai"
	"decision-intel/backend/internal/corpus"
	"decision-intel/backend/internal/external"
	"decision-intel/backend/internal/intel"
	"decision-intel/backend/internal/scoring"
	"decision-intel/backend/internal/store"
)

// orgHeader carries the organization scope of a request.
const orgHeader = "X-Org-ID"

// Config defines server dependencies.
type Config struct {
	DBPath             string
	HistoryDatabaseURL string
	CatalogPath        string
	AllowedOrigins     []string
	SilentDB           bool
	Tokenizer          scoring.TokenizerConfig
	RecommendTimeout   time.Duration
	AIConfig           ai.Config
	DisableAI          bool
}

// Server wires HTTP handlers with persistence and the recommendation engine.
type Server struct {
	db             *store.Database
	postgres       *store.PostgresHistory
	corpus         *corpus.Service
	aggregator     *intel.Aggregator
	drafter        ai.Drafter
	aiEnabled      bool
	notifier       *RecommendationNotifier
	allowedOrigins []string
	catalogPath    string
	timeout        time.Duration
	tokenizer      scoring.TokenizerConfig
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	catalog, err := external.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var history intel.HistoricalDecisionRepository = db
	var postgres *store.PostgresHistory
	if dsn := strings.TrimSpace(cfg.HistoryDatabaseURL); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		postgres, err = store.OpenPostgresHistory(ctx, dsn)
		cancel()
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history database: %w", err)
		}
		history = postgres
	}

	tokenizer := cfg.Tokenizer
	if tokenizer.MinLength <= 0 && tokenizer.MaxKeywords <= 0 && tokenizer.StopWords == nil {
		tokenizer = scoring.DefaultTokenizerConfig()
	}

	aggregator, err := intel.NewAggregator(history, db, intel.Config{
		Tokenizer: tokenizer,
		Catalog:   catalog,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("aggregator: %w", err)
	}

	var drafter ai.Drafter = ai.NewTemplateDrafter()
	aiEnabled := false
	if cfg.DisableAI {
		logrus.Info("AI drafter disabled via configuration")
	} else if client, err := ai.NewClient(cfg.AIConfig); err == nil {
		drafter = ai.WithFallback(client, drafter)
		aiEnabled = true
	} else if errors.Is(err, ai.ErrDisabled) {
		logrus.Info("AI drafter disabled - no OpenAI credentials configured")
	} else {
		_ = db.Close()
		return nil, fmt.Errorf("ai client: %w", err)
	}

	return &Server{
		db:             db,
		postgres:       postgres,
		corpus:         corpus.NewService(db),
		aggregator:     aggregator,
		drafter:        drafter,
		aiEnabled:      aiEnabled,
		notifier:       NewRecommendationNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		catalogPath:    cfg.CatalogPath,
		timeout:        cfg.RecommendTimeout,
		tokenizer:      tokenizer,
	}, nil
}

// Close releases the database handles.
func (s *Server) Close() error {
	var errs []error
	if err := s.postgres.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", orgHeader}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/recommendations", s.handleRecommend)
		api.GET("/recommendations/stream", s.handleRecommendationStream)
		api.POST("/classify", s.handleClassify)
		api.GET("/categories", s.handleCategories)
		api.GET("/categories/:category/patterns", s.handleCategoryPatterns)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	decisions, err := s.db.CountDecisions()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	benchmarks, err := s.db.CountBenchmarks()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"catalog_path":       s.catalogPath,
		"categories":         scoring.Categories(),
		"failure_records":    s.corpus.Count(),
		"benchmarks":         benchmarks,
		"decisions":          decisions,
		"history_backend":    s.historyBackend(),
		"recommend_timeout":  s.timeout.String(),
		"keyword_min_length": s.tokenizer.MinLength,
		"keyword_limit":      s.tokenizer.MaxKeywords,
		"keyword_trim_punct": s.tokenizer.TrimPunctuation,
		"ai_enabled":         s.aiEnabled,
		"stream_subscribers": s.notifier.Subscribers(c.GetHeader(orgHeader)),
	})
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	orgID := orgIDFrom(c)

	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.aggregator.Recommend(ctx, req.Draft(), orgID)
	if err != nil {
		if intel.IsValidation(err) {
			logrus.WithError(err).WithField("org_id", orgID).Info("reject recommendation request")
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	if narrate, _ := strconv.ParseBool(c.Query("narrate")); narrate {
		narrative, err := s.drafter.Draft(c.Request.Context(), result)
		if err != nil {
			logrus.WithError(err).WithField("request_id", result.RequestID).Warn("draft narrative")
		} else {
			result.Narrative = narrative.Text()
		}
	}

	summary := summaryFromResult(req.Title, result)
	s.notifier.Broadcast(RecommendationEvent{Type: "recommendation", OrgID: orgID, Recommendation: &summary})

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.renderError(c, http.StatusBadRequest, &intel.ValidationError{Field: "title", Message: "must not be empty"})
		return
	}
	c.JSON(http.StatusOK, ClassifyResponse{Category: scoring.Classify(req.Title, req.ProblemStatement)})
}

func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, CategoriesResponse{Categories: scoring.Categories()})
}

func (s *Server) handleCategoryPatterns(c *gin.Context) {
	category := strings.TrimSpace(c.Param("category"))
	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	c.JSON(http.StatusOK, s.aggregator.External(ctx, category))
}

func (s *Server) handleRecommendationStream(c *gin.Context) {
	orgID := orgIDFrom(c)
	if orgID == "" {
		s.renderError(c, http.StatusBadRequest, &intel.ValidationError{Field: "org_id", Message: "must not be empty"})
		return
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn, orgID)
	logrus.WithFields(logrus.Fields{
		"remote": conn.RemoteAddr().String(),
		"org_id": orgID,
	}).Info("recommendation websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("recommendation websocket closed")
			} else {
				logrus.WithError(err).Warn("recommendation websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) historyBackend() string {
	if s.postgres != nil {
		return "postgres"
	}
	return "sqlite"
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// orgIDFrom reads the organization scope from the header, falling back to the query string
// for websocket clients that cannot set headers.
func orgIDFrom(c *gin.Context) string {
	if org := strings.TrimSpace(c.GetHeader(orgHeader)); org != "" {
		return org
	}
	return strings.TrimSpace(c.Query("org_id"))
}
