package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"legal-lens/models"
)

// DocumentRepository liest beide Ergebnis-Tabellen, dekodiert jede Zeile in
// die kanonische Sicht und hält den jeweils letzten vollständigen Snapshot
// im Speicher. Aktualisierungen ersetzen immer die gesamte Liste; ein
// inkrementeller Merge findet bewusst nicht statt (geringes Schreibvolumen).
type DocumentRepository struct {
	db     *gorm.DB
	logger *zap.Logger

	mu        sync.RWMutex
	documents []models.LegalDocument
	issued    uint64 // zuletzt vergebenes Fetch-Token
	applied   uint64 // Token des aktuell übernommenen Snapshots
}

func NewDocumentRepository(db *gorm.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:        db,
		logger:    logger,
		documents: make([]models.LegalDocument, 0),
	}
}

// FetchAll liest beide Tabellen unabhängig voneinander (jeweils neueste
// zuerst). Fällt eine Tabelle aus, wird das geloggt und als "null Zeilen"
// behandelt; nur wenn beide Abfragen scheitern, kommt ein Fehler mit leerer
// Liste zurück.
func (r *DocumentRepository) FetchAll(ctx context.Context) ([]models.LegalDocument, error) {
	var contractRows []models.ContractAnalysisRow
	contractErr := r.db.WithContext(ctx).Order("created_at desc").Find(&contractRows).Error
	if contractErr != nil {
		r.logger.Error("contract analysis query failed", zap.Error(contractErr))
		contractRows = nil
	}

	var researchRows []models.LegalResearchRow
	researchErr := r.db.WithContext(ctx).Order("created_at desc").Find(&researchRows).Error
	if researchErr != nil {
		r.logger.Error("legal research query failed", zap.Error(researchErr))
		researchRows = nil
	}

	if contractErr != nil && researchErr != nil {
		return make([]models.LegalDocument, 0), fmt.Errorf("fetching documents: %w", contractErr)
	}

	docs := make([]models.LegalDocument, 0, len(contractRows)+len(researchRows))
	for _, row := range contractRows {
		docs = append(docs, DecodeContractRow(row))
	}
	for _, row := range researchRows {
		docs = append(docs, DecodeResearchRow(row))
	}

	// defensives Re-Sort: die beiden Quell-Sortierungen sind unabhängige
	// Abfragen
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	return docs, nil
}

// Refresh holt beide Tabellen und ersetzt den Snapshot. Überlappende
// Refreshes werden nicht serialisiert; stattdessen stellt ein monoton
// steigendes Token sicher, dass ein langsamer, älterer Fetch einen neueren
// Snapshot nie mehr überschreibt.
func (r *DocumentRepository) Refresh(ctx context.Context) error {
	token := r.nextToken()
	docs, err := r.FetchAll(ctx)
	if err != nil {
		r.apply(token, make([]models.LegalDocument, 0))
		return err
	}
	if !r.apply(token, docs) {
		r.logger.Debug("stale fetch discarded", zap.Uint64("token", token))
	}
	return nil
}

func (r *DocumentRepository) nextToken() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return r.issued
}

func (r *DocumentRepository) apply(token uint64, docs []models.LegalDocument) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token <= r.applied {
		return false
	}
	r.applied = token
	r.documents = docs
	return true
}

// Snapshot liefert eine Kopie der aktuell dekodierten Dokumentliste.
func (r *DocumentRepository) Snapshot() []models.LegalDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.LegalDocument, len(r.documents))
	copy(out, r.documents)
	return out
}

// Get sucht ein Dokument im Snapshot.
func (r *DocumentRepository) Get(id string) (models.LegalDocument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.documents {
		if doc.ID == id {
			return doc, true
		}
	}
	return models.LegalDocument{}, false
}

// Delete entfernt genau eine Zeile aus der zum Dokumenttyp passenden
// Tabelle. Der Aufrufer stößt danach einen Refresh an; der Snapshot wird
// nicht in-place gepatcht.
func (r *DocumentRepository) Delete(ctx context.Context, id string, docType models.DocumentType) error {
	var res *gorm.DB
	switch docType {
	case models.DocumentTypeContract:
		res = r.db.WithContext(ctx).Delete(&models.ContractAnalysisRow{}, "id = ?", id)
	case models.DocumentTypeCaseLaw:
		res = r.db.WithContext(ctx).Delete(&models.LegalResearchRow{}, "id = ?", id)
	default:
		return fmt.Errorf("unknown document type %q", docType)
	}
	if res.Error != nil {
		return fmt.Errorf("deleting %s document %s: %w", docType, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("deleting %s document %s: %w", docType, id, gorm.ErrRecordNotFound)
	}
	return nil
}
