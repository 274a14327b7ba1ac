package models

import "time"

// LegalResearchRow bildet die Tabelle ab, in die der n8n-Workflow fertige
// Legal-Research-Ergebnisse schreibt. Im Gegensatz zur Vertragsanalyse ist
// der Primärschlüssel numerisch und created_at nie NULL.
type LegalResearchRow struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`

	DocumentType string `json:"document_type"`
	Jurisdiction string `json:"jurisdiction"`

	ResearchSummary string `json:"research_summary" gorm:"type:text"`
	Recommendations string `json:"recommendations" gorm:"type:text"`

	// 1-10-Skala; dient downstream zugleich als Risk-Score
	ApplicabilityScore float64 `json:"applicability_score"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (LegalResearchRow) TableName() string {
	return "legal_research"
}
