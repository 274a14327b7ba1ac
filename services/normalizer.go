package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"legal-lens/models"
)

// WorkflowNormalizer überführt die rohen, nicht versionierten JSON-Antworten
// des n8n-Workflows in das kanonische AnalysisResults-Schema. Der Workflow
// liefert je nach Lauf unterschiedliche Feld-Schreibweisen ("Risk Score" vs.
// risk_score), Verschachtelungen und Wertetypen; Normalize darf deshalb auf
// keiner Eingabe fehlschlagen und füllt jedes fehlende Feld mit einem
// deterministischen Default.
type WorkflowNormalizer struct {
	logger *zap.Logger
}

func NewWorkflowNormalizer(logger *zap.Logger) *WorkflowNormalizer {
	return &WorkflowNormalizer{logger: logger}
}

// outputFamily koppelt die Signatur-Schlüssel einer bekannten Ausgabeform an
// ihren Decoder. Die Reihenfolge in outputFamilies ist Teil des Vertrags:
// Legal Research wird zuerst geprüft, weil der Sammel-Schlüssel
// "Recommendations" sonst Contract-Ausgaben in die falsche Familie zieht.
type outputFamily struct {
	name       string
	signatures [][]string
	decode     func(*WorkflowNormalizer, map[string]any) models.AnalysisResults
}

var outputFamilies = []outputFamily{
	{
		name: "legal_research",
		signatures: [][]string{
			{"Research Summary", "research_summary"},
			{"Case Analysis", "case_analysis"},
			{"Applicability Score", "applicability_score"},
			{"Recommendations"},
		},
		decode: (*WorkflowNormalizer).decodeResearchOutput,
	},
	{
		name: "contract_analysis",
		signatures: [][]string{
			{"Analysis Summary", "analysis_summary"},
			{"Extracted Clauses", "extracted_clauses"},
			{"Risk Score", "risk_score"},
		},
		decode: (*WorkflowNormalizer).decodeContractOutput,
	},
}

// Normalize klassifiziert die Workflow-Antwort und dekodiert sie in das
// kanonische Schema. Unbekannte Formen ergeben den generischen Fallback.
func (n *WorkflowNormalizer) Normalize(raw any) models.AnalysisResults {
	output := unwrapOutput(raw)

	for _, fam := range outputFamilies {
		if matchesFamily(output, fam.signatures) {
			n.logger.Debug("workflow output classified", zap.String("family", fam.name))
			return fam.decode(n, output)
		}
	}

	n.logger.Warn("unknown workflow output shape, applying generic fallback")
	return n.decodeGenericOutput(output)
}

// NormalizeJSON dekodiert rohe JSON-Bytes (mit json.Number, damit Scores
// nicht über float-Umwege verfälscht werden) und normalisiert sie. Auch
// kaputtes JSON führt nur zum generischen Fallback.
func (n *WorkflowNormalizer) NormalizeJSON(raw []byte) models.AnalysisResults {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		n.logger.Warn("workflow response is not valid JSON", zap.Error(err))
		return n.Normalize(nil)
	}
	return n.Normalize(v)
}

// unwrapOutput packt die üblichen n8n-Hüllen aus: erstes Array-Element,
// danach nacheinander json-, data- und output-Property. Die Prüfungen sind
// sequenziell, nicht exklusiv.
func unwrapOutput(raw any) map[string]any {
	cur := raw
	if arr, ok := cur.([]any); ok {
		if len(arr) == 0 {
			return map[string]any{}
		}
		cur = arr[0]
	}
	for _, key := range []string{"json", "data", "output"} {
		m, ok := cur.(map[string]any)
		if !ok {
			break
		}
		if inner := m[key]; truthy(inner) {
			cur = inner
		}
	}
	m, ok := cur.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func matchesFamily(output map[string]any, signatures [][]string) bool {
	for _, variants := range signatures {
		if v := firstPresent(output, variants...); v != nil {
			return true
		}
	}
	return false
}

// decodeContractOutput dekodiert die Contract-Analysis-Familie.
func (n *WorkflowNormalizer) decodeContractOutput(output map[string]any) models.AnalysisResults {
	rawFlags := asSlice(firstPresent(output, "Compliance Flags", "compliance_flags"))
	flags := make([]models.ComplianceFlag, 0, len(rawFlags))
	for i, item := range rawFlags {
		flags = append(flags, contractComplianceFlag(stringify(item), i))
	}

	rawClauses := asSlice(firstPresent(output, "Extracted Clauses", "extracted_clauses"))
	clauses := make([]models.ExtractedClause, 0, len(rawClauses))
	for i, item := range rawClauses {
		cm := asMap(item)
		clause := models.ExtractedClause{
			ID:         fmt.Sprintf("clause-%d", i),
			ClauseType: stringOr(firstPresent(cm, "clause_type", "Clause Type"), "Unknown"),
			Content:    stringify(firstPresent(cm, "clause_text", "Clause Text", "content")),
			PageNumber: pageFromSection(stringify(firstPresent(cm, "section", "Section"))),
			RiskLevel:  riskLevelOr(firstPresent(cm, "risk_level", "Risk Level"), models.RiskMedium),
		}
		if v := firstPresent(cm, "risk_score", "Risk Score"); v != nil {
			clause.RiskScore = toFloat(v)
		}
		clause.KeyConcerns = stringify(firstPresent(cm, "key_concerns", "Key Concerns"))
		clause.SuggestedLanguage = stringify(firstPresent(cm, "suggested_language", "Suggested Language"))
		clauses = append(clauses, clause)
	}

	rawCases := asSlice(firstPresent(output, "Precedent Cases", "precedent_cases"))
	cases := make([]models.PrecedentCase, 0, len(rawCases))
	for i, item := range rawCases {
		cases = append(cases, contractPrecedentCase(stringify(item), i))
	}

	return models.AnalysisResults{
		ExecutiveSummary: stringOr(firstPresent(output,
			"Analysis Summary", "analysis_summary", "Executive Summary", "executive_summary"),
			"Analysis completed successfully."),
		RiskScore:        toFloat(firstPresent(output, "Risk Score", "risk_score")),
		ConfidenceScore:  floatOr(firstPresent(output, "Confidence Score", "confidence_score"), 0.8),
		ComplianceFlags:  flags,
		ExtractedClauses: clauses,
		PrecedentCases:   cases,
		RecommendedActions: wrapAction(
			firstPresent(output, "Recommended Action", "recommended_action", "Recommendations"),
			"Review the analysis and take appropriate action"),
		ProcessingTimeSeconds: toFloat(firstPresent(output, "Processing Time", "processing_time")),
	}
}

// contractComplianceFlag zerlegt einen Freitext-Flag-String. Vor dem ersten
// " - " steht die Kategorie, der Rest ist die Beschreibung; der Schweregrad
// wird aus Signalwörtern im Originalstring abgeleitet.
func contractComplianceFlag(flag string, index int) models.ComplianceFlag {
	category := "Compliance"
	description := flag
	if before, after, found := strings.Cut(flag, " - "); found {
		if strings.TrimSpace(before) != "" {
			category = before
		}
		if after != "" {
			description = after
		}
	}

	upper := strings.ToUpper(flag)
	severity := models.SeverityWarning
	switch {
	case strings.Contains(upper, "CRITICAL") || strings.Contains(upper, "NON-COMPLIANT"):
		severity = models.SeverityCritical
	case strings.Contains(upper, "INCOMPLETE") || strings.Contains(upper, "MISSING"):
		severity = models.SeverityWarning
	case strings.Contains(upper, "COMPLIANT"):
		severity = models.SeverityInfo
	}

	return models.ComplianceFlag{
		ID:             fmt.Sprintf("compliance-%d", index),
		Category:       category,
		Description:    description,
		Severity:       severity,
		Recommendation: "Review and address this compliance issue",
	}
}

// contractPrecedentCase zerlegt "<case name> (<citation>)". Ohne Klammern
// bleibt der komplette String sowohl Name als auch Zitat.
func contractPrecedentCase(caseStr string, index int) models.PrecedentCase {
	citation := caseStr
	name := caseStr
	if open := strings.Index(caseStr, "("); open >= 0 {
		if end := strings.Index(caseStr[open:], ")"); end > 1 {
			citation = caseStr[open+1 : open+end]
			name = strings.TrimSpace(caseStr[:open] + caseStr[open+end+1:])
			if name == "" {
				name = caseStr
			}
		}
	}

	return models.PrecedentCase{
		ID:             fmt.Sprintf("case-%d", index),
		CaseName:       name,
		Citation:       citation,
		RelevanceScore: 0.8,
		Summary:        fmt.Sprintf("Relevant precedent: %s", caseStr),
		Jurisdiction:   "Unknown",
		Year:           time.Now().Year(),
	}
}

// decodeResearchOutput dekodiert die Legal-Research-Familie. Präzedenzfälle
// stammen hier aus der Case-Analysis-Liste, und das Jurisdiction-Feld trägt
// die Authority-Ebene (BINDING/PERSUASIVE/SECONDARY) statt einer
// Jurisdiktion; dieses Feld-Recycling steckt in den persistierten Daten und
// wird bewusst beibehalten.
func (n *WorkflowNormalizer) decodeResearchOutput(output map[string]any) models.AnalysisResults {
	rawAnalysis := asSlice(firstPresent(output, "Case Analysis", "case_analysis"))
	cases := make([]models.PrecedentCase, 0, len(rawAnalysis))
	for i, item := range rawAnalysis {
		cm := asMap(item)
		citation := stringify(firstPresent(cm, "citation", "Citation"))

		name := "Unknown Case"
		if citation != "" {
			name = citation
			if before, _, found := strings.Cut(citation, ","); found {
				name = before
			}
		}

		relevance := 5.0
		if v := firstPresent(cm, "Applicability Score", "applicability_score"); v != nil {
			relevance = toFloat(v)
		}

		cases = append(cases, models.PrecedentCase{
			ID:             fmt.Sprintf("case-%d", i),
			CaseName:       name,
			Citation:       stringOr(firstPresent(cm, "citation", "Citation"), "No citation"),
			RelevanceScore: relevance / 10,
			Summary: stringOr(firstPresent(cm,
				"holding", "Holding", "Applicability to Our Case", "applicability_to_our_case"),
				"No summary available"),
			Jurisdiction: stringOr(firstPresent(cm, "Authority Level", "authority_level"), "Unknown"),
			Year:         time.Now().Year(),
		})
	}

	flags := make([]models.ComplianceFlag, 0, 1)
	if alert := asMap(firstPresent(output, "Legislative Alert", "legislative_alert")); len(alert) > 0 {
		// Sentinel "UNKNOWN" bedeutet: kein verwertbarer Alert
		if stringify(alert["statute"]) != "UNKNOWN" && stringify(alert["Statute"]) != "UNKNOWN" {
			statute := stringify(firstPresent(alert, "statute", "Statute"))
			impact := stringify(firstPresent(alert, "impact", "Impact"))
			flags = append(flags, models.ComplianceFlag{
				ID:             "legislative-alert",
				Category:       "Legislative Update",
				Description:    fmt.Sprintf("%s: %s", statute, impact),
				Severity:       models.SeverityWarning,
				Recommendation: "Review recent legislative changes",
			})
		}
	}

	riskScore := 5.0
	if v := firstPresent(output, "Applicability Score", "applicability_score"); v != nil {
		riskScore = toFloat(v)
	}

	return models.AnalysisResults{
		ExecutiveSummary: stringOr(firstPresent(output, "Research Summary", "research_summary"),
			"Legal research completed successfully."),
		// Applicability Score (1-10) dient für die einheitliche Anzeige
		// zugleich als Risk Score
		RiskScore: riskScore,
		// das Research-Format liefert keinen Confidence-Wert
		ConfidenceScore:  0.85,
		ComplianceFlags:  flags,
		ExtractedClauses: make([]models.ExtractedClause, 0),
		PrecedentCases:   cases,
		RecommendedActions: wrapAction(
			firstPresent(output, "Recommendations", "recommendation", "Recommendation"),
			"Review the research findings and proceed accordingly"),
		ProcessingTimeSeconds: 0,
	}
}

// decodeGenericOutput rettet aus einer unbekannten Form, was sich retten
// lässt, und füllt den Rest mit Platzhaltern.
func (n *WorkflowNormalizer) decodeGenericOutput(output map[string]any) models.AnalysisResults {
	return models.AnalysisResults{
		ExecutiveSummary: stringOr(firstPresent(output,
			"Research Summary", "Analysis Summary", "research_summary", "analysis_summary"),
			"Analysis completed but results format is unexpected."),
		RiskScore: toFloat(firstPresent(output,
			"Risk Score", "Applicability Score", "risk_score", "applicability_score")),
		ConfidenceScore:  toFloat(firstPresent(output, "Confidence Score", "confidence_score")),
		ComplianceFlags:  make([]models.ComplianceFlag, 0),
		ExtractedClauses: make([]models.ExtractedClause, 0),
		PrecedentCases:   make([]models.PrecedentCase, 0),
		RecommendedActions: wrapAction(
			firstPresent(output, "Recommendations", "recommendation"),
			"Please review the analysis"),
		ProcessingTimeSeconds: 0,
	}
}

// firstPresent liefert den ersten "truthy" Wert unter den Schlüssel-
// Varianten, sonst nil. Leere Strings, 0 und false zählen als abwesend,
// leere Arrays und Objekte nicht.
func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// stringify macht aus beliebigen JSON-Werten einen String; Objekte und
// Arrays werden als kompaktes JSON gerendert, damit keine Information
// verloren geht.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func stringOr(v any, fallback string) string {
	if s := stringify(v); s != "" {
		return s
	}
	return fallback
}

// toFloat erzwingt numerische Werte aus Zahlen und Zahl-Strings; alles
// andere ergibt 0.
func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func floatOr(v any, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return toFloat(v)
}

func riskLevelOr(v any, fallback models.RiskLevel) models.RiskLevel {
	switch strings.ToLower(stringify(v)) {
	case "low":
		return models.RiskLow
	case "medium":
		return models.RiskMedium
	case "high":
		return models.RiskHigh
	case "critical":
		return models.RiskCritical
	default:
		return fallback
	}
}

// pageFromSection zieht alle Ziffern aus der Section-Angabe ("Section 12")
// und interpretiert sie als Seitenzahl; unbrauchbare Angaben ergeben Seite 1.
func pageFromSection(section string) int {
	var digits strings.Builder
	for _, r := range section {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	page, err := strconv.Atoi(digits.String())
	if err != nil || page <= 0 {
		return 1
	}
	return page
}

// wrapAction packt einen einzelnen Empfehlungs-Wert in die Ein-Element-
// Liste des kanonischen Schemas.
func wrapAction(v any, fallback string) []string {
	if v == nil {
		return []string{fallback}
	}
	return []string{stringify(v)}
}
