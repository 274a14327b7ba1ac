package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"legal-lens/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ContractAnalysisRow{}, &models.LegalResearchRow{}))
	return db
}

func seedRows(t *testing.T, db *gorm.DB) {
	t.Helper()
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	oldCreated := base
	newCreated := base.Add(2 * time.Hour)
	require.NoError(t, db.Create(&models.ContractAnalysisRow{
		ID: "c-old", ClientName: "Old Client", RiskLevel: "2", CreatedAt: &oldCreated,
	}).Error)
	require.NoError(t, db.Create(&models.ContractAnalysisRow{
		ID: "c-new", ClientName: "New Client", RiskLevel: "8", CreatedAt: &newCreated,
	}).Error)
	require.NoError(t, db.Create(&models.LegalResearchRow{
		ID: 1, ClientName: "Research Client", ApplicabilityScore: 6, CreatedAt: base.Add(time.Hour),
	}).Error)
}

func TestRepositoryFetchAllMergesAndSorts(t *testing.T) {
	db := newTestDB(t)
	seedRows(t, db)
	repo := NewDocumentRepository(db, zap.NewNop())

	docs, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// neueste zuerst, über beide Tabellen hinweg
	assert.Equal(t, "c-new", docs[0].ID)
	assert.Equal(t, "1", docs[1].ID)
	assert.Equal(t, models.DocumentTypeCaseLaw, docs[1].DocumentType)
	assert.Equal(t, "c-old", docs[2].ID)
}

func TestRepositoryRefreshAndSnapshot(t *testing.T) {
	db := newTestDB(t)
	seedRows(t, db)
	repo := NewDocumentRepository(db, zap.NewNop())

	assert.Empty(t, repo.Snapshot())

	require.NoError(t, repo.Refresh(context.Background()))
	snapshot := repo.Snapshot()
	require.Len(t, snapshot, 3)

	// die Kopie ist vom internen Zustand entkoppelt
	snapshot[0].ClientName = "mutated"
	assert.Equal(t, "New Client", repo.Snapshot()[0].ClientName)
}

func TestRepositoryGet(t *testing.T) {
	db := newTestDB(t)
	seedRows(t, db)
	repo := NewDocumentRepository(db, zap.NewNop())
	require.NoError(t, repo.Refresh(context.Background()))

	doc, ok := repo.Get("c-old")
	require.True(t, ok)
	assert.Equal(t, "Old Client", doc.ClientName)

	_, ok = repo.Get("missing")
	assert.False(t, ok)
}

func TestRepositoryStaleFetchIsDiscarded(t *testing.T) {
	repo := NewDocumentRepository(nil, zap.NewNop())

	slow := repo.nextToken()
	fast := repo.nextToken()

	assert.True(t, repo.apply(fast, []models.LegalDocument{{ID: "fresh"}}))
	// der langsamere, ältere Fetch darf den neueren Snapshot nicht ersetzen
	assert.False(t, repo.apply(slow, []models.LegalDocument{{ID: "stale"}}))

	snapshot := repo.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "fresh", snapshot[0].ID)
}

func TestRepositoryDelete(t *testing.T) {
	db := newTestDB(t)
	seedRows(t, db)
	repo := NewDocumentRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, "c-old", models.DocumentTypeContract))
	docs, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, repo.Delete(ctx, "1", models.DocumentTypeCaseLaw))

	err = repo.Delete(ctx, "c-old", models.DocumentTypeContract)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	err = repo.Delete(ctx, "c-new", "invoice")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
}
