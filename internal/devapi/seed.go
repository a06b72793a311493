package devapi

import (
	"time"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
)

func defaultThresholds() []models.Threshold {
	return []models.Threshold{
		{Name: "approval_quality_score_threshold", DisplayName: "Approval Quality Score", CurrentValue: 50, DefaultValue: 50, MinValue: 0, MaxValue: 100, Unit: "percentage", Category: "quality", Description: "Minimum quality score for automatic approval"},
		{Name: "semantic_relevance_threshold", DisplayName: "Semantic Relevance Threshold", CurrentValue: 0.15, DefaultValue: 0.15, MinValue: 0, MaxValue: 1, Unit: "score", Category: "semantic", Description: "Minimum semantic relevance score between tags and content"},
		{Name: "domain_relevance_threshold", DisplayName: "Domain Relevance Threshold", CurrentValue: 0.1, DefaultValue: 0.1, MinValue: 0, MaxValue: 1, Unit: "score", Category: "semantic", Description: "Minimum domain-specific relevance score"},
		{Name: "tag_specificity_threshold", DisplayName: "Tag Specificity Threshold", CurrentValue: 0.2, DefaultValue: 0.2, MinValue: 0, MaxValue: 1, Unit: "score", Category: "semantic", Description: "Minimum tag specificity score"},
		{Name: "context_coherence_threshold", DisplayName: "Context Coherence Threshold", CurrentValue: 0.1, DefaultValue: 0.1, MinValue: 0, MaxValue: 1, Unit: "score", Category: "semantic", Description: "Minimum context coherence score"},
		{Name: "tag_text_relevance_threshold", DisplayName: "Tag-Text Relevance Threshold", CurrentValue: 0.3, DefaultValue: 0.3, MinValue: 0, MaxValue: 1, Unit: "score", Category: "semantic", Description: "Minimum relevance between tags and text content"},
		{Name: "llm_confidence_threshold", DisplayName: "LLM Confidence Threshold", CurrentValue: 0.6, DefaultValue: 0.6, MinValue: 0, MaxValue: 1, Unit: "score", Category: "llm", Description: "Minimum confidence for LLM judgments to be accepted"},
		{Name: "spam_threshold", DisplayName: "Spam Detection Threshold", CurrentValue: 0.3, DefaultValue: 0.3, MinValue: 0, MaxValue: 1, Unit: "probability", Category: "content", Description: "Maximum spam probability threshold"},
		{Name: "stopword_threshold", DisplayName: "Stopword Ratio Threshold", CurrentValue: 0.5, DefaultValue: 0.5, MinValue: 0, MaxValue: 1, Unit: "ratio", Category: "content", Description: "Maximum stopword ratio threshold"},
		{Name: "min_tag_count", DisplayName: "Minimum Tag Count", CurrentValue: 1, DefaultValue: 1, MinValue: 0, MaxValue: 50, Unit: "count", Category: "tags", Description: "Minimum number of tags required"},
		{Name: "max_tag_count", DisplayName: "Maximum Tag Count", CurrentValue: 20, DefaultValue: 20, MinValue: 1, MaxValue: 100, Unit: "count", Category: "tags", Description: "Maximum number of tags allowed"},
	}
}

type seedRecord struct {
	id         string
	connector  models.Connector
	companyID  string
	company    string
	department string
	author     string
	text       string
	tags       []string
	status     models.Status
	ageHours   int
}

var seedRecords = []seedRecord{
	{"rec-001", models.ConnectorSharePoint, "c-acme", "Acme Corp", "Finance", "dana", "Quarterly budget forecast for the finance team covering capex and opex.", []string{"budget", "forecast", "finance"}, models.StatusPending, 1},
	{"rec-002", models.ConnectorConfluence, "c-acme", "Acme Corp", "Engineering", "lee", "Runbook for rotating database credentials in the payments cluster.", []string{"runbook", "credentials", "payments"}, models.StatusApproved, 30},
	{"rec-003", models.ConnectorNotion, "c-globex", "Globex", "Legal", "sam", "lorem ipsum dolor sit amet placeholder text for the contract template", []string{"document", "draft"}, models.StatusFlagged, 4},
	{"rec-004", models.ConnectorGDrive, "c-globex", "Globex", "Sales", "ria", "Pricing sheet for enterprise renewals in the EMEA region.", []string{"pricing", "renewals", "emea"}, models.StatusUnderReview, 12},
	{"rec-005", models.ConnectorSharePoint, "c-initech", "Initech", "HR", "kim", "Onboarding checklist covering laptop setup, badge access and payroll enrollment.", []string{"onboarding", "payroll", "checklist"}, models.StatusPending, 2},
	{"rec-006", models.ConnectorConfluence, "c-initech", "Initech", "Engineering", "lee", "asdf qwerty test document", []string{"misc"}, models.StatusRejected, 48},
	{"rec-007", models.ConnectorNotion, "c-acme", "Acme Corp", "Support", "omar", "Escalation matrix for priority one incidents and on-call rotations.", []string{"escalation", "incidents", "on-call"}, models.StatusFlagged, 6},
	{"rec-008", models.ConnectorGDrive, "c-umbrella", "Umbrella", "Research", "ivy", "Lab safety procedures for handling volatile reagents in building C.", []string{"safety", "reagents", "lab"}, models.StatusApproved, 72},
	{"rec-009", models.ConnectorSharePoint, "c-umbrella", "Umbrella", "Finance", "dana", "Expense policy update: travel meals are capped per diem by region.", []string{"expense", "travel", "policy"}, models.StatusUnderReview, 20},
	{"rec-010", models.ConnectorConfluence, "c-globex", "Globex", "Engineering", "noor", "Architecture decision record for moving search indexing to a queue.", []string{"adr", "search", "queue"}, models.StatusPending, 3},
	{"rec-011", models.ConnectorNotion, "c-initech", "Initech", "Sales", "ria", "Short note", []string{}, models.StatusPending, 8},
	{"rec-012", models.ConnectorGDrive, "c-acme", "Acme Corp", "Legal", "sam", "Data retention schedule for customer records under the regional privacy law.", []string{"retention", "privacy", "records"}, models.StatusApproved, 96},
}

// Seed loads the demo records.
func (s *Store) Seed() {
	base := s.now()
	for _, sr := range seedRecords {
		created := base.Add(-time.Duration(sr.ageHours) * time.Hour)
		s.Insert(models.Record{
			ID:              sr.id,
			RecordID:        sr.id,
			SourceConnector: sr.connector,
			CompanyID:       sr.companyID,
			CompanyName:     sr.company,
			Department:      sr.department,
			Author:          sr.author,
			Text:            sr.text,
			Tags:            sr.tags,
			Status:          sr.status,
			CreatedAt:       created,
			UpdatedAt:       created,
		})
	}
}
