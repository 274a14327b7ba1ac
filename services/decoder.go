package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"legal-lens/models"
)

// Dieser Decoder übersetzt persistierte Zeilen der beiden Ergebnis-Tabellen
// in die kanonische LegalDocument-Sicht. Wie der WorkflowNormalizer darf er
// auf fehlenden oder kaputten Spalten niemals fehlschlagen; jede Teil-
// Extraktion fällt unabhängig auf ihren Default zurück.

// Risiko-Wörter, die der Workflow statt eines numerischen Scores in die
// risk_level-Spalte schreibt.
var riskWordScores = map[string]float64{
	"low":      2,
	"medium":   5,
	"high":     8,
	"critical": 10,
}

// ParseListField dekodiert eine lose typisierte Listen-Spalte. Leere Werte
// ergeben eine leere Liste; gültiges JSON wird strikt geparst (Nicht-Arrays
// werden in eine Ein-Element-Liste gehoben); alles andere wird als
// kommaseparierter Text zerlegt.
func ParseListField(value string) []any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return []any{}
	}

	var parsed any
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err == nil {
		if arr, ok := parsed.([]any); ok {
			return arr
		}
		return []any{parsed}
	}

	parts := strings.Split(trimmed, ",")
	items := make([]any, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// DecodeContractRow überführt eine contract_analysis-Zeile in die kanonische
// Dokument-Sicht. Zeilen existieren erst, nachdem der Workflow fertig
// geschrieben hat; der Status ist deshalb immer "completed" und completed_at
// spiegelt created_at.
func DecodeContractRow(row models.ContractAnalysisRow) models.LegalDocument {
	rawFlags := ParseListField(row.ComplianceFlags)
	flags := make([]models.ComplianceFlag, 0, len(rawFlags))
	for i, item := range rawFlags {
		flags = append(flags, models.ComplianceFlag{
			ID:             fmt.Sprintf("flag-%d", i),
			Category:       "Compliance",
			Description:    stringify(item),
			Severity:       models.SeverityWarning,
			Recommendation: "Review this compliance issue",
		})
	}

	jurisdiction := row.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = "Unknown"
	}
	rawCases := ParseListField(row.PrecedentCases)
	cases := make([]models.PrecedentCase, 0, len(rawCases))
	for i, item := range rawCases {
		// die Spalte trennt Fallname und Zitat nicht; der rohe String
		// füllt alle Textfelder
		caseStr := stringify(item)
		cases = append(cases, models.PrecedentCase{
			ID:             fmt.Sprintf("case-%d", i),
			CaseName:       caseStr,
			Citation:       caseStr,
			RelevanceScore: 0.8,
			Summary:        caseStr,
			Jurisdiction:   jurisdiction,
			Year:           time.Now().Year(),
		})
	}

	summary := row.AnalysisSummary
	if summary == "" {
		summary = row.Summary
	}
	if summary == "" {
		summary = "No summary available"
	}

	actions := make([]string, 0, 1)
	if row.Recommendations != "" {
		actions = append(actions, row.Recommendations)
	}

	results := models.AnalysisResults{
		ExecutiveSummary:      summary,
		RiskScore:             parseContractRisk(row.RiskLevel),
		ConfidenceScore:       parseConfidence(row.ConfidenceScore),
		ComplianceFlags:       flags,
		ExtractedClauses:      decodeClauseField(row.ExtractedClauses),
		PrecedentCases:        cases,
		RecommendedActions:    actions,
		ProcessingTimeSeconds: 0,
	}

	clientName := row.ClientName
	if clientName == "" {
		clientName = "Unknown"
	}

	created := time.Now()
	if row.CreatedAt != nil {
		created = *row.CreatedAt
	}
	completed := created

	return models.LegalDocument{
		ID:           row.ID,
		DocumentID:   row.ID,
		DocumentType: models.DocumentTypeContract,
		ClientName:   clientName,
		ClientEmail:  row.ClientEmail,
		Jurisdiction: row.Jurisdiction,
		AnalysisTypes: []models.AnalysisType{
			models.AnalysisRiskAssessment,
			models.AnalysisClauseExtraction,
		},
		Status:      models.StatusCompleted,
		CreatedAt:   created,
		CompletedAt: &completed,
		Results:     &results,
	}
}

// DecodeResearchRow überführt eine legal_research-Zeile. Dieses Tabellen-
// Format kennt weder Flags noch Klauseln noch Präzedenzfälle; der
// Applicability Score dient als Risk Score.
func DecodeResearchRow(row models.LegalResearchRow) models.LegalDocument {
	summary := row.ResearchSummary
	if summary == "" {
		summary = "No summary available"
	}

	actions := make([]string, 0, 1)
	if row.Recommendations != "" {
		actions = append(actions, row.Recommendations)
	}

	results := models.AnalysisResults{
		ExecutiveSummary:      summary,
		RiskScore:             row.ApplicabilityScore,
		ConfidenceScore:       0.85,
		ComplianceFlags:       make([]models.ComplianceFlag, 0),
		ExtractedClauses:      make([]models.ExtractedClause, 0),
		PrecedentCases:        make([]models.PrecedentCase, 0),
		RecommendedActions:    actions,
		ProcessingTimeSeconds: 0,
	}

	clientName := row.ClientName
	if clientName == "" {
		clientName = "Unknown"
	}

	id := strconv.FormatUint(uint64(row.ID), 10)
	completed := row.CreatedAt

	return models.LegalDocument{
		ID:            id,
		DocumentID:    id,
		DocumentType:  models.DocumentTypeCaseLaw,
		ClientName:    clientName,
		ClientEmail:   row.ClientEmail,
		Jurisdiction:  row.Jurisdiction,
		AnalysisTypes: []models.AnalysisType{models.AnalysisPrecedentSearch},
		Status:        models.StatusCompleted,
		CreatedAt:     row.CreatedAt,
		CompletedAt:   &completed,
		Results:       &results,
	}
}

// parseContractRisk interpretiert die freie risk_level-Spalte: zuerst
// numerisch, dann als Risiko-Wort, sonst 5. Eine leere Spalte ergibt 0.
func parseContractRisk(value string) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	if score, ok := riskWordScores[strings.ToLower(trimmed)]; ok {
		return score
	}
	return 5
}

func parseConfidence(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0.85
	}
	return f
}

// decodeClauseField behandelt die historisch gewachsene extracted_clauses-
// Spalte. Die Form wird strukturell am ersten Element erkannt, nie über ein
// Typ-Feld: Objekte mit clause_text gelten als voll strukturiert, andere
// Objekt-Konventionen werden feldweise gemappt, nackte Strings werden als
// generische Klauseln durchnummeriert. Unbekannte Formen ergeben eine leere
// Liste.
func decodeClauseField(raw string) []models.ExtractedClause {
	items := ParseListField(raw)
	if len(items) == 0 {
		return make([]models.ExtractedClause, 0)
	}

	switch first := items[0].(type) {
	case map[string]any:
		if firstPresent(first, "clause_text", "Clause Text") != nil {
			return decodeStructuredClauses(items)
		}
		if firstPresent(first, "type", "name", "title", "text", "description") != nil {
			return decodeLooseClauses(items)
		}
		return make([]models.ExtractedClause, 0)
	case string:
		clauses := make([]models.ExtractedClause, 0, len(items))
		for i, item := range items {
			clauses = append(clauses, models.ExtractedClause{
				ID:         fmt.Sprintf("clause-%d", i),
				ClauseType: fmt.Sprintf("Clause %d", i+1),
				Content:    stringify(item),
				PageNumber: 1,
				RiskLevel:  models.RiskMedium,
			})
		}
		return clauses
	default:
		return make([]models.ExtractedClause, 0)
	}
}

// decodeStructuredClauses: Objekte in der Konvention des Workflows, mit
// optionalen Score-/Concern-Durchreichfeldern.
func decodeStructuredClauses(items []any) []models.ExtractedClause {
	clauses := make([]models.ExtractedClause, 0, len(items))
	for i, item := range items {
		cm := asMap(item)
		clause := models.ExtractedClause{
			ID:         fmt.Sprintf("clause-%d", i),
			ClauseType: stringOr(firstPresent(cm, "clause_type", "Clause Type", "type"), "Unknown"),
			Content:    stringify(firstPresent(cm, "clause_text", "Clause Text", "content")),
			PageNumber: clausePage(cm),
			RiskLevel:  riskLevelOr(firstPresent(cm, "risk_level", "Risk Level"), models.RiskMedium),
		}
		if v := firstPresent(cm, "risk_score", "Risk Score"); v != nil {
			clause.RiskScore = toFloat(v)
		}
		clause.KeyConcerns = stringify(firstPresent(cm, "key_concerns", "Key Concerns"))
		clause.SuggestedLanguage = stringify(firstPresent(cm, "suggested_language", "Suggested Language"))
		clauses = append(clauses, clause)
	}
	return clauses
}

// decodeLooseClauses: ältere Objekt-Konvention (type/name/title,
// text/description, page/page_number).
func decodeLooseClauses(items []any) []models.ExtractedClause {
	clauses := make([]models.ExtractedClause, 0, len(items))
	for i, item := range items {
		cm := asMap(item)
		clauses = append(clauses, models.ExtractedClause{
			ID:         fmt.Sprintf("clause-%d", i),
			ClauseType: stringOr(firstPresent(cm, "type", "name", "title"), "Unknown"),
			Content:    stringify(firstPresent(cm, "text", "description")),
			PageNumber: clausePage(cm),
			RiskLevel:  riskLevelOr(firstPresent(cm, "risk_level", "Risk Level"), models.RiskMedium),
		})
	}
	return clauses
}

func clausePage(cm map[string]any) int {
	if v := firstPresent(cm, "page", "page_number"); v != nil {
		if page := int(toFloat(v)); page > 0 {
			return page
		}
	}
	return pageFromSection(stringify(firstPresent(cm, "section", "Section")))
}
