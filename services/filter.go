package services

import (
	"strings"

	"legal-lens/models"
)

// Risk-Band-Schwellen der Anzeige: <=3 low, <=6 medium, darüber high.
const (
	riskBandLowMax    = 3
	riskBandMediumMax = 6
)

// DocumentFilter bündelt die reinen Anzeige-Filter über der dekodierten
// Dokumentliste. Leere Werte bzw. "all" schalten den jeweiligen Filter ab.
type DocumentFilter struct {
	Search       string
	DocumentType string
	RiskBand     string
}

// Matches prüft ein einzelnes Dokument gegen alle aktiven Filter.
func (f DocumentFilter) Matches(doc models.LegalDocument) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(doc.DocumentID), q) &&
			!strings.Contains(strings.ToLower(doc.ClientName), q) &&
			!strings.Contains(strings.ToLower(doc.ClientEmail), q) {
			return false
		}
	}

	if f.DocumentType != "" && f.DocumentType != "all" {
		if string(doc.DocumentType) != f.DocumentType {
			return false
		}
	}

	if f.RiskBand != "" && f.RiskBand != "all" {
		// ohne Ergebnis gibt es keinen Score zum Vergleichen; solche
		// Dokumente fallen aus jedem konkreten Band heraus
		if doc.Results == nil {
			return false
		}
		if RiskBand(doc.Results.RiskScore) != f.RiskBand {
			return false
		}
	}

	return true
}

// RiskBand ordnet einen numerischen Score einem Anzeige-Band zu.
func RiskBand(score float64) string {
	switch {
	case score <= riskBandLowMax:
		return "low"
	case score <= riskBandMediumMax:
		return "medium"
	default:
		return "high"
	}
}

// FilterDocuments wendet den Filter auf die komplette Liste an und erhält
// die Reihenfolge.
func FilterDocuments(docs []models.LegalDocument, f DocumentFilter) []models.LegalDocument {
	out := make([]models.LegalDocument, 0, len(docs))
	for _, doc := range docs {
		if f.Matches(doc) {
			out = append(out, doc)
		}
	}
	return out
}
