package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission-Status
const (
	SubmissionForwarded = "forwarded"
	SubmissionFailed    = "failed"
)

// Submission protokolliert eine ausgehende Analyse-Anfrage an den
// n8n-Workflow inklusive der rohen Antwort. Die Zeilen dienen nur dem Audit;
// die kanonische Dokumentliste entsteht aus den beiden Ergebnis-Tabellen.
type Submission struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	DocumentID   string       `json:"document_id" gorm:"index"`
	DocumentType DocumentType `json:"document_type"`
	ClientName   string       `json:"client_name"`
	ClientEmail  string       `json:"client_email"`
	CaseID       string       `json:"case_id,omitempty"`
	Jurisdiction string       `json:"jurisdiction,omitempty"`

	// JSON-Array der angeforderten Analysearten, wie an n8n gesendet
	AnalysisTypes string `json:"analysis_types" gorm:"type:text"`

	FileName    string `json:"file_name,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
	ArchiveLink string `json:"archive_link,omitempty" gorm:"type:text"`

	Status   string `json:"status" gorm:"index"`
	ErrorMsg string `json:"error_msg,omitempty" gorm:"type:text"`

	// Rohe Workflow-Antwort, unverändert wie empfangen
	RawResponse datatypes.JSON `json:"raw_response,omitempty" gorm:"type:jsonb"`
}

// TableName gibt explizit den Tabellennamen an.
func (Submission) TableName() string {
	return "submissions"
}
