package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	// n8n-Workflow, der die eigentliche Analyse durchführt
	WorkflowWebhookURL string `envconfig:"N8N_WEBHOOK_URL" required:"true"`
	WorkflowTimeoutSec int    `envconfig:"N8N_TIMEOUT_SECONDS" default:"120"`

	// Change-Feed über Postgres LISTEN/NOTIFY
	ListenEnabled bool `envconfig:"LISTEN_ENABLED" default:"true"`

	// Fallback-Refresh und Aufräumen der Submission-Historie
	RefreshSchedule      string `envconfig:"REFRESH_CRON" default:"@every 5m"`
	SubmissionRetentionD int    `envconfig:"SUBMISSION_RETENTION_DAYS" default:"90"`

	// S3-kompatibles Archiv für hochgeladene Dokumente (optional)
	ArchiveS3Key    string `envconfig:"ARCHIVE_S3_KEY"`
	ArchiveS3Secret string `envconfig:"ARCHIVE_S3_SECRET"`
	ArchiveS3URL    string `envconfig:"ARCHIVE_S3_URL"`
	ArchiveS3Region string `envconfig:"ARCHIVE_S3_REGION"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`

	APISecretKey string `envconfig:"API_SECRET_KEY"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ArchiveEnabled meldet, ob das S3-Archiv vollständig konfiguriert ist.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveS3Key != "" && c.ArchiveS3Secret != "" && c.ArchiveS3URL != "" &&
		c.ArchiveS3Region != "" && c.ArchiveS3Bucket != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
