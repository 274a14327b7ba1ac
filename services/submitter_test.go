package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"legal-lens/config"
	"legal-lens/models"
)

func newTestSubmitter(webhookURL string) *SubmissionService {
	cfg := &config.Config{
		WorkflowWebhookURL: webhookURL,
		WorkflowTimeoutSec: 5,
	}
	return NewSubmissionService(cfg, nil, nil, NewWorkflowNormalizer(zap.NewNop()), zap.NewNop())
}

func TestSubmitForwardsMultipartForm(t *testing.T) {
	var gotForm map[string]string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		gotForm = map[string]string{}
		for key, values := range r.MultipartForm.Value {
			gotForm[key] = values[0]
		}
		if file, _, err := r.FormFile("file"); err == nil {
			buf := make([]byte, 64)
			n, _ := file.Read(buf)
			gotFile = buf[:n]
			file.Close()
		}
		w.Write([]byte(`{"Research Summary":"done","Applicability Score":7}`))
	}))
	defer srv.Close()

	submitter := newTestSubmitter(srv.URL)
	results, err := submitter.Submit(context.Background(), SubmissionRequest{
		DocumentID:    "DOC-100",
		DocumentType:  models.DocumentTypeCaseLaw,
		ClientName:    "Jane Doe",
		ClientEmail:   "jane@example.com",
		CaseID:        "CASE-7",
		AnalysisTypes: []models.AnalysisType{models.AnalysisPrecedentSearch},
		FileName:      "brief.pdf",
		FileData:      []byte("pdf bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "DOC-100", gotForm["document_id"])
	assert.Equal(t, "Case Law", gotForm["document_type"])
	assert.Equal(t, "Jane Doe", gotForm["client_name"])
	assert.Equal(t, "CASE-7", gotForm["case_id"])
	assert.Equal(t, `["precedent_search"]`, gotForm["analysis_type"])
	assert.NotContains(t, gotForm, "jurisdiction")
	assert.Equal(t, "pdf bytes", string(gotFile))

	assert.Equal(t, "done", results.ExecutiveSummary)
	assert.Equal(t, 7.0, results.RiskScore)
	assert.Equal(t, 0.85, results.ConfidenceScore)
}

func TestSubmitFileURLOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "https://files.example.com/doc.pdf", r.FormValue("file_url"))
		_, _, err := r.FormFile("file")
		assert.Error(t, err)
		w.Write([]byte(`{"Analysis Summary":"ok","Risk Score":3}`))
	}))
	defer srv.Close()

	submitter := newTestSubmitter(srv.URL)
	results, err := submitter.Submit(context.Background(), SubmissionRequest{
		DocumentID:   "DOC-101",
		DocumentType: models.DocumentTypeContract,
		ClientName:   "Acme",
		ClientEmail:  "a@example.com",
		FileURL:      "https://files.example.com/doc.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", results.ExecutiveSummary)
	assert.Equal(t, 3.0, results.RiskScore)
}

func TestSubmitSurfacesWorkflowError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("workflow exploded"))
	}))
	defer srv.Close()

	submitter := newTestSubmitter(srv.URL)
	_, err := submitter.Submit(context.Background(), SubmissionRequest{
		DocumentID:   "DOC-102",
		DocumentType: models.DocumentTypeContract,
		ClientName:   "Acme",
		ClientEmail:  "a@example.com",
		FileURL:      "https://files.example.com/doc.pdf",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow exploded")
}

func TestSubmitConnectionError(t *testing.T) {
	submitter := newTestSubmitter("http://127.0.0.1:1")

	_, err := submitter.Submit(context.Background(), SubmissionRequest{
		DocumentID:   "DOC-103",
		DocumentType: models.DocumentTypeContract,
		ClientName:   "Acme",
		ClientEmail:  "a@example.com",
		FileURL:      "https://files.example.com/doc.pdf",
	})
	assert.Error(t, err)
}

func TestSubmitNonJSONSuccessFallsBackToGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Workflow was started"))
	}))
	defer srv.Close()

	submitter := newTestSubmitter(srv.URL)
	results, err := submitter.Submit(context.Background(), SubmissionRequest{
		DocumentID:   "DOC-104",
		DocumentType: models.DocumentTypeContract,
		ClientName:   "Acme",
		ClientEmail:  "a@example.com",
		FileURL:      "https://files.example.com/doc.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "Analysis completed but results format is unexpected.", results.ExecutiveSummary)
}
