package models

import "time"

// ContractAnalysisRow bildet die Tabelle ab, in die der n8n-Workflow fertige
// Vertragsanalysen schreibt. Die Listen-Spalten sind lose typisierte
// Textfelder, die historisch JSON-Arrays, JSON-Objekte, kommaseparierten
// Text oder einzelne Sätze enthalten haben; der Decoder muss alles davon
// verkraften.
type ContractAnalysisRow struct {
	ID          string `json:"id" gorm:"primaryKey"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`

	DocumentType string `json:"document_type"`
	Jurisdiction string `json:"jurisdiction"`

	// risk_level ist freier Text: numerisch ("3.5") oder ein Risiko-Wort
	// (low/medium/high/critical)
	RiskLevel       string `json:"risk_level"`
	ConfidenceScore string `json:"confidence_score"`

	AnalysisSummary string `json:"analysis_summary" gorm:"type:text"`
	// Legacy-Spalte älterer Workflow-Versionen, nur Fallback für
	// analysis_summary
	Summary string `json:"summary,omitempty" gorm:"type:text"`

	Recommendations     string `json:"recommendations" gorm:"type:text"`
	PrecedentCases      string `json:"precedent_cases" gorm:"type:text"`
	ComplianceFlags     string `json:"compliance_flags" gorm:"type:text"`
	ExtractedClauses    string `json:"extracted_clauses" gorm:"type:text"`
	ComparableFirmCases string `json:"comparable_firm_cases" gorm:"type:text"`

	CreatedAt *time.Time `json:"created_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (ContractAnalysisRow) TableName() string {
	return "contract_analysis"
}
