package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"legal-lens/config"
	"legal-lens/models"
	"legal-lens/storage"
)

// CustomTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type CustomTransport struct {
	Transport http.RoundTripper
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "legal-lens/1.0")
	return t.Transport.RoundTrip(req)
}

// SubmissionRequest beschreibt eine Analyse-Anfrage, wie sie aus dem
// Upload-Formular kommt. Entweder FileData oder FileURL muss gesetzt sein.
type SubmissionRequest struct {
	DocumentID    string
	DocumentType  models.DocumentType
	ClientName    string
	ClientEmail   string
	CaseID        string
	Jurisdiction  string
	AnalysisTypes []models.AnalysisType
	FileName      string
	FileData      []byte
	FileURL       string
}

// SubmissionService reicht Analyse-Anfragen als Multipart-Formular an den
// n8n-Workflow weiter, archiviert hochgeladene Dateien best-effort im S3
// und protokolliert jede Einreichung inklusive roher Antwort.
type SubmissionService struct {
	cfg        *config.Config
	db         *gorm.DB
	s3Client   *s3.Client
	normalizer *WorkflowNormalizer
	logger     *zap.Logger
	client     *http.Client
}

func NewSubmissionService(cfg *config.Config, db *gorm.DB, s3Client *s3.Client, normalizer *WorkflowNormalizer, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{
		cfg:        cfg,
		db:         db,
		s3Client:   s3Client,
		normalizer: normalizer,
		logger:     logger,
		client: &http.Client{
			Timeout: time.Duration(cfg.WorkflowTimeoutSec) * time.Second,
			Transport: &CustomTransport{
				Transport: http.DefaultTransport,
			},
		},
	}
}

// Submit baut das Multipart-Formular, schickt es an den Workflow-Webhook
// und normalisiert die Antwort. Nicht-2xx-Antworten werden mit dem
// Antwort-Body als Fehlerdetail gemeldet; die eigentliche Analyse läuft
// asynchron im Workflow, die normalisierte Antwort dient nur der sofortigen
// Anzeige.
func (s *SubmissionService) Submit(ctx context.Context, req SubmissionRequest) (models.AnalysisResults, error) {
	analysisJSON, err := json.Marshal(req.AnalysisTypes)
	if err != nil {
		return models.AnalysisResults{}, fmt.Errorf("encoding analysis types: %w", err)
	}

	sub := &models.Submission{
		DocumentID:    req.DocumentID,
		DocumentType:  req.DocumentType,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		CaseID:        req.CaseID,
		Jurisdiction:  req.Jurisdiction,
		AnalysisTypes: string(analysisJSON),
		FileName:      req.FileName,
		FileURL:       req.FileURL,
		Status:        models.SubmissionForwarded,
	}

	// Archiv ist best-effort und blockiert die Einreichung nie
	if s.s3Client != nil && len(req.FileData) > 0 {
		key := fmt.Sprintf("%s/%s", time.Now().Format("2006/01"), req.FileName)
		link, err := storage.UploadFile(ctx, s.s3Client, s.cfg.ArchiveS3Bucket, key, req.FileData, s.cfg)
		if err != nil {
			s.logger.Warn("document archive upload failed", zap.String("key", key), zap.Error(err))
		} else {
			sub.ArchiveLink = link
		}
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	_ = w.WriteField("document_id", req.DocumentID)
	_ = w.WriteField("document_type", req.DocumentType.Label())
	_ = w.WriteField("client_name", req.ClientName)
	_ = w.WriteField("client_email", req.ClientEmail)
	_ = w.WriteField("analysis_type", string(analysisJSON))
	if req.CaseID != "" {
		_ = w.WriteField("case_id", req.CaseID)
	}
	if req.Jurisdiction != "" {
		_ = w.WriteField("jurisdiction", req.Jurisdiction)
	}
	if len(req.FileData) > 0 {
		fw, err := w.CreateFormFile("file", req.FileName)
		if err == nil {
			_, err = fw.Write(req.FileData)
		}
		if err != nil {
			return models.AnalysisResults{}, fmt.Errorf("attaching document file: %w", err)
		}
	}
	if req.FileURL != "" {
		_ = w.WriteField("file_url", req.FileURL)
	}
	if err := w.Close(); err != nil {
		return models.AnalysisResults{}, fmt.Errorf("finalizing form body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WorkflowWebhookURL, body)
	if err != nil {
		return models.AnalysisResults{}, fmt.Errorf("building workflow request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	s.logger.Info("forwarding submission to workflow",
		zap.String("document_id", req.DocumentID),
		zap.String("document_type", string(req.DocumentType)),
	)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		sub.Status = models.SubmissionFailed
		sub.ErrorMsg = err.Error()
		s.record(sub)
		return models.AnalysisResults{}, fmt.Errorf("submitting to workflow: %w", err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		s.logger.Warn("reading workflow response failed", zap.Error(readErr))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(respBody))
		if detail == "" {
			detail = resp.Status
		}
		sub.Status = models.SubmissionFailed
		sub.ErrorMsg = detail
		s.record(sub)
		return models.AnalysisResults{}, fmt.Errorf("workflow rejected submission: %s", detail)
	}

	if json.Valid(respBody) {
		sub.RawResponse = datatypes.JSON(respBody)
	}
	s.record(sub)

	return s.normalizer.NormalizeJSON(respBody), nil
}

// PruneSubmissions löscht Audit-Zeilen, die älter als die Retention sind.
func (s *SubmissionService) PruneSubmissions(ctx context.Context, retention time.Duration) (int64, error) {
	if s.db == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Submission{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning submissions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SubmissionService) record(sub *models.Submission) {
	if s.db == nil {
		return
	}
	if err := s.db.Create(sub).Error; err != nil {
		s.logger.Warn("failed to record submission", zap.String("document_id", sub.DocumentID), zap.Error(err))
	}
}
