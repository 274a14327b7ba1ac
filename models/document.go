package models

import "time"

// DocumentType unterscheidet die beiden unterstützten Dokumentarten.
type DocumentType string

const (
	DocumentTypeContract DocumentType = "contract"
	DocumentTypeCaseLaw  DocumentType = "case_law"
)

// Label gibt die Title-Case-Schreibweise zurück, die der n8n-Workflow erwartet.
func (d DocumentType) Label() string {
	switch d {
	case DocumentTypeContract:
		return "Contract"
	case DocumentTypeCaseLaw:
		return "Case Law"
	default:
		return string(d)
	}
}

// AnalysisType benennt eine angeforderte Analyseart.
type AnalysisType string

const (
	AnalysisRiskAssessment    AnalysisType = "risk_assessment"
	AnalysisClauseExtraction  AnalysisType = "clause_extraction"
	AnalysisPrecedentSearch   AnalysisType = "precedent_search"
	AnalysisLegislativeUpdate AnalysisType = "legislative_update"
)

// ProcessingStatus beschreibt den Lebenszyklus eines eingereichten Dokuments.
type ProcessingStatus string

const (
	StatusQueued         ProcessingStatus = "queued"
	StatusExtractingText ProcessingStatus = "extracting_text"
	StatusAnalyzing      ProcessingStatus = "analyzing"
	StatusCompleted      ProcessingStatus = "completed"
	StatusFailed         ProcessingStatus = "failed"
)

// Severity eines Compliance-Hinweises.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// RiskLevel einer extrahierten Klausel.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// LegalDocument ist die kanonische, unveränderliche Sicht auf ein analysiertes
// Dokument. Instanzen entstehen ausschließlich beim Dekodieren persistierter
// Zeilen; jede Aktualisierung ersetzt die komplette Liste.
type LegalDocument struct {
	ID            string           `json:"id"`
	DocumentID    string           `json:"document_id"`
	DocumentType  DocumentType     `json:"document_type"`
	ClientName    string           `json:"client_name"`
	ClientEmail   string           `json:"client_email"`
	CaseID        string           `json:"case_id,omitempty"`
	Jurisdiction  string           `json:"jurisdiction,omitempty"`
	AnalysisTypes []AnalysisType   `json:"analysis_types"`
	FileName      string           `json:"file_name,omitempty"`
	FileURL       string           `json:"file_url,omitempty"`
	Status        ProcessingStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	Results       *AnalysisResults `json:"results,omitempty"`
}

// AnalysisResults ist das eine normalisierte Ergebnis-Schema, das jede
// Anzeige-Komponente konsumiert, egal aus welcher Quelle es stammt. Alle
// Felder sind nach dem Dekodieren deterministisch befüllt.
type AnalysisResults struct {
	ExecutiveSummary      string            `json:"executive_summary"`
	RiskScore             float64           `json:"risk_score"`
	ConfidenceScore       float64           `json:"confidence_score"`
	ComplianceFlags       []ComplianceFlag  `json:"compliance_flags"`
	ExtractedClauses      []ExtractedClause `json:"extracted_clauses"`
	PrecedentCases        []PrecedentCase   `json:"precedent_cases"`
	RecommendedActions    []string          `json:"recommended_actions"`
	ProcessingTimeSeconds float64           `json:"processing_time_seconds"`
}

// ComplianceFlag ist ein einzelner Compliance-Hinweis. Die ID ist rein
// positionsbasiert und wird bei jedem Dekodieren neu vergeben.
type ComplianceFlag struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation"`
}

// ExtractedClause ist eine extrahierte Vertragsklausel. RiskScore,
// KeyConcerns und SuggestedLanguage sind optionale Durchreichfelder, die nur
// voll strukturierte Quellen liefern.
type ExtractedClause struct {
	ID                string    `json:"id"`
	ClauseType        string    `json:"clause_type"`
	Content           string    `json:"content"`
	PageNumber        int       `json:"page_number"`
	RiskLevel         RiskLevel `json:"risk_level"`
	RiskScore         float64   `json:"risk_score,omitempty"`
	KeyConcerns       string    `json:"key_concerns,omitempty"`
	SuggestedLanguage string    `json:"suggested_language,omitempty"`
}

// PrecedentCase ist ein relevanter Präzedenzfall. Das Jurisdiction-Feld
// trägt bei Legal-Research-Ausgaben die Authority-Ebene (BINDING/PERSUASIVE/
// SECONDARY) statt einer geografischen Jurisdiktion; siehe Normalizer.
type PrecedentCase struct {
	ID             string  `json:"id"`
	CaseName       string  `json:"case_name"`
	Citation       string  `json:"citation"`
	RelevanceScore float64 `json:"relevance_score"`
	Summary        string  `json:"summary"`
	Jurisdiction   string  `json:"jurisdiction"`
	Year           int     `json:"year"`
}
