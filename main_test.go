package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"legal-lens/config"
	"legal-lens/models"
	"legal-lens/services"
)

func newDocumentTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ContractAnalysisRow{}, &models.LegalResearchRow{}))

	created := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.ContractAnalysisRow{
		ID: "c-1", ClientName: "Acme GmbH", RiskLevel: "8", CreatedAt: &created,
	}).Error)
	require.NoError(t, db.Create(&models.LegalResearchRow{
		ID: 1, ClientName: "Jane Doe", ApplicabilityScore: 2, CreatedAt: created.Add(time.Hour),
	}).Error)

	repo := services.NewDocumentRepository(db, zap.NewNop())
	require.NoError(t, repo.Refresh(context.Background()))

	router := gin.New()
	setupDocumentRoutes(router, repo, zap.NewNop())
	return router
}

func TestParseAnalysisTypes(t *testing.T) {
	assert.Equal(t,
		[]models.AnalysisType{models.AnalysisRiskAssessment},
		parseAnalysisTypes(""))

	assert.Equal(t,
		[]models.AnalysisType{models.AnalysisRiskAssessment, models.AnalysisClauseExtraction},
		parseAnalysisTypes(`["risk_assessment","clause_extraction"]`))

	assert.Equal(t,
		[]models.AnalysisType{models.AnalysisPrecedentSearch, models.AnalysisLegislativeUpdate},
		parseAnalysisTypes("precedent_search, legislative_update"))
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newRouter := func(secret string) *gin.Engine {
		router := gin.New()
		router.Use(apiKeyAuthMiddleware(&config.Config{APISecretKey: secret}))
		router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		return router
	}

	// ohne konfigurierten Key ist die API offen
	w := httptest.NewRecorder()
	newRouter("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	newRouter("secret").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-KEY", "secret")
	newRouter("secret").ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentsListWithFilters(t *testing.T) {
	router := newDocumentTestRouter(t)

	var body struct {
		Documents []models.LegalDocument `json:"documents"`
		Total     int                    `json:"total"`
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Total)
	// neueste zuerst
	assert.Equal(t, "1", body.Documents[0].ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/?risk_level=high", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "c-1", body.Documents[0].ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/?search=jane", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, models.DocumentTypeCaseLaw, body.Documents[0].DocumentType)
}

func TestDocumentByID(t *testing.T) {
	router := newDocumentTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/c-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc models.LegalDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "Acme GmbH", doc.ClientName)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDocument(t *testing.T) {
	router := newDocumentTestRouter(t)

	// ohne gültigen Typ keine Löschung
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/documents/c-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/documents/c-1?document_type=contract", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/documents/c-1?document_type=contract", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestManualRefreshAccepted(t *testing.T) {
	router := newDocumentTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents/refresh", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}
