package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"legal-lens/config"
	"legal-lens/models"
	"legal-lens/services"
	"legal-lens/storage"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	submissionsCounter     prometheus.Counter
	submissionFailsCounter prometheus.Counter
	refreshCounter         prometheus.Counter
	notifyRefreshCounter   prometheus.Counter
)

func init() {
	submissionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_submissions_total",
		Help: "Total number of documents forwarded to the analysis workflow.",
	})
	submissionFailsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_submission_failures_total",
		Help: "Total number of submissions rejected by the analysis workflow.",
	})
	refreshCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_refreshes_total",
		Help: "Total number of document snapshot refreshes.",
	})
	notifyRefreshCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_notify_refreshes_total",
		Help: "Total number of refreshes triggered by table change notifications.",
	})
	prometheus.MustRegister(submissionsCounter, submissionFailsCounter, refreshCounter, notifyRefreshCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	// Auto-Migration
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.ContractAnalysisRow{}, &models.LegalResearchRow{}, &models.Submission{})

	if err := services.InstallChangeTriggers(db); err != nil {
		logging.Warn("Installing change triggers failed, falling back to cron refresh only", zap.Error(err))
	}

	// Setup Services
	var s3Client *awss3.Client
	if cfg.ArchiveEnabled() {
		s3Client, err = storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		logging.Info("Document archive enabled", zap.String("bucket", cfg.ArchiveS3Bucket))
	} else {
		logging.Info("Document archive not configured, uploads are forwarded only")
	}

	normalizer := services.NewWorkflowNormalizer(logging)
	submitter := services.NewSubmissionService(cfg, db, s3Client, normalizer, logging)
	repo := services.NewDocumentRepository(db, logging)

	// Initialer Snapshot; Fehler sind nicht fatal, der Cron holt das nach
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.Refresh(startupCtx); err != nil {
		logging.Warn("Initial document fetch failed", zap.Error(err))
	}
	cancelStartup()

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "documents": len(repo.Snapshot())})
	})

	// Setup Routes
	setupAnalysisRoutes(router, submitter, repo, logging)
	setupDocumentRoutes(router, repo, logging)

	// Setup Change-Feed Listener
	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	if cfg.ListenEnabled {
		listener := services.NewChangeListener(cfg.DSN(), logging, func(channel string) {
			notifyRefreshCounter.Inc()
			refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := repo.Refresh(refreshCtx); err != nil {
				logging.Error("Notification-triggered refresh failed", zap.String("channel", channel), zap.Error(err))
			} else {
				refreshCounter.Inc()
			}
		})
		go listener.Run(listenerCtx)
	} else {
		logging.Info("Change listener disabled, relying on scheduled refresh")
	}

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.RefreshSchedule, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := repo.Refresh(refreshCtx); err != nil {
			logging.Error("Scheduled refresh failed", zap.Error(err))
		} else {
			refreshCounter.Inc()
		}
	})
	cronScheduler.AddFunc("@daily", func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		retention := time.Duration(cfg.SubmissionRetentionD) * 24 * time.Hour
		count, err := submitter.PruneSubmissions(pruneCtx, retention)
		if err != nil {
			logging.Error("Submission pruning failed", zap.Error(err))
		} else if count > 0 {
			logging.Info("Pruned old submissions", zap.Int64("count", count))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("Shutting down server...")

	stopListener()
	cronCtx := cronScheduler.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", zap.Error(err))
	}
	logging.Info("Server exited")
}

// parseAnalysisTypes akzeptiert sowohl ein JSON-Array als auch eine
// Komma-Liste, wie sie verschiedene Upload-Formulare senden.
func parseAnalysisTypes(raw string) []models.AnalysisType {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []models.AnalysisType{models.AnalysisRiskAssessment}
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				names = append(names, p)
			}
		}
	}
	out := make([]models.AnalysisType, 0, len(names))
	for _, name := range names {
		out = append(out, models.AnalysisType(name))
	}
	if len(out) == 0 {
		out = append(out, models.AnalysisRiskAssessment)
	}
	return out
}

func setupAnalysisRoutes(router *gin.Engine, submitter *services.SubmissionService, repo *services.DocumentRepository, log *zap.Logger) {
	rg := router.Group("/analyses")

	// POST - Dokument zur Analyse einreichen (Multipart-Formular)
	rg.POST("/", func(c *gin.Context) {
		clientName := strings.TrimSpace(c.PostForm("client_name"))
		clientEmail := strings.TrimSpace(c.PostForm("client_email"))
		if clientName == "" || clientEmail == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "client_name and client_email are required"})
			return
		}

		docType := models.DocumentType(c.DefaultPostForm("document_type", string(models.DocumentTypeContract)))
		if docType != models.DocumentTypeContract && docType != models.DocumentTypeCaseLaw {
			c.JSON(http.StatusBadRequest, gin.H{"error": "document_type must be contract or case_law"})
			return
		}

		req := services.SubmissionRequest{
			DocumentID:    fmt.Sprintf("DOC-%d", time.Now().UnixMilli()),
			DocumentType:  docType,
			ClientName:    clientName,
			ClientEmail:   clientEmail,
			CaseID:        strings.TrimSpace(c.PostForm("case_id")),
			Jurisdiction:  strings.TrimSpace(c.PostForm("jurisdiction")),
			AnalysisTypes: parseAnalysisTypes(c.PostForm("analysis_type")),
			FileURL:       strings.TrimSpace(c.PostForm("file_url")),
		}

		if fileHeader, err := c.FormFile("file"); err == nil {
			f, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
				return
			}
			req.FileName = fileHeader.Filename
			req.FileData = data
		}

		if len(req.FileData) == 0 && req.FileURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "either file or file_url is required"})
			return
		}

		results, err := submitter.Submit(c.Request.Context(), req)
		if err != nil {
			submissionFailsCounter.Inc()
			log.Error("Submission failed", zap.String("document_id", req.DocumentID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		submissionsCounter.Inc()

		// Ergebnis-Tabellen werden vom Workflow asynchron befüllt; der
		// Refresh hier ist nur eine Abkürzung für schnelle Workflows
		go func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := repo.Refresh(refreshCtx); err != nil {
				log.Warn("Post-submission refresh failed", zap.Error(err))
			}
		}()

		c.JSON(http.StatusOK, gin.H{
			"document_id": req.DocumentID,
			"status":      models.StatusCompleted,
			"results":     results,
		})
	})
}

func setupDocumentRoutes(router *gin.Engine, repo *services.DocumentRepository, log *zap.Logger) {
	rg := router.Group("/documents")

	// GET - Gefilterte Sicht auf den aktuellen Snapshot
	rg.GET("/", func(c *gin.Context) {
		filter := services.DocumentFilter{
			Search:       c.Query("search"),
			DocumentType: c.DefaultQuery("document_type", "all"),
			RiskBand:     c.DefaultQuery("risk_level", "all"),
		}
		docs := services.FilterDocuments(repo.Snapshot(), filter)
		c.JSON(http.StatusOK, gin.H{"documents": docs, "total": len(docs)})
	})

	rg.GET("/:id", func(c *gin.Context) {
		doc, ok := repo.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusOK, doc)
	})

	// DELETE - Löscht die Zeile aus der zum Typ passenden Tabelle
	rg.DELETE("/:id", func(c *gin.Context) {
		docType := models.DocumentType(c.Query("document_type"))
		if docType != models.DocumentTypeContract && docType != models.DocumentTypeCaseLaw {
			c.JSON(http.StatusBadRequest, gin.H{"error": "document_type query parameter must be contract or case_law"})
			return
		}
		id := c.Param("id")
		if err := repo.Delete(c.Request.Context(), id, docType); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			log.Error("Failed to delete document", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		go func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := repo.Refresh(refreshCtx); err != nil {
				log.Warn("Post-delete refresh failed", zap.Error(err))
			}
		}()

		c.JSON(http.StatusOK, gin.H{"message": "document deleted", "id": id})
	})

	// POST - Manueller Refresh, läuft asynchron
	rg.POST("/refresh", func(c *gin.Context) {
		go func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if err := repo.Refresh(refreshCtx); err != nil {
				log.Error("Manual refresh failed", zap.Error(err))
			} else {
				refreshCounter.Inc()
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Document refresh triggered."})
	})
}
