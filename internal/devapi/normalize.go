package devapi

import (
	"fmt"
	"strings"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
)

var (
	contentFields = []string{"content", "document_text", "text", "body", "description", "combined_data", "parser_data", "title"}
	tagFields     = []string{"tags", "categories", "labels", "keywords"}
	idFields      = []string{"record_id", "recordId", "id", "external_id"}
)

var defaultUploadTags = []string{"bulk-import", "auto-generated"}

// normalizeUpload maps the loosely shaped records of a bulk file onto a
// Record. Unknown connectors fall back to SharePoint.
func normalizeUpload(raw map[string]any, index int) (models.Record, error) {
	content := firstString(raw, contentFields)
	if strings.TrimSpace(content) == "" {
		return models.Record{}, fmt.Errorf("record %d has no content", index)
	}

	var tags []string
	for _, field := range tagFields {
		switch v := raw[field].(type) {
		case []any:
			for _, t := range v {
				tags = append(tags, fmt.Sprint(t))
			}
		case string:
			tags = append(tags, strings.Split(v, ",")...)
		}
	}
	if len(models.NormalizeTags(tags)) == 0 {
		tags = defaultUploadTags
	}

	connector := models.ConnectorSharePoint
	if c := firstString(raw, []string{"source_connector", "sourceConnector", "source_type"}); c != "" {
		for _, known := range models.Connectors {
			if strings.EqualFold(c, string(known)) {
				connector = known
			}
		}
	}

	company := firstString(raw, []string{"company", "company_name", "companyName"})
	companyID := firstString(raw, []string{"company_id", "companyId"})
	if companyID == "" && company != "" {
		companyID = "c-" + strings.ToLower(strings.ReplaceAll(company, " ", "-"))
	}

	return models.Record{
		RecordID:        firstString(raw, idFields),
		SourceConnector: connector,
		CompanyID:       companyID,
		CompanyName:     company,
		Department:      firstString(raw, []string{"department"}),
		Author:          firstString(raw, []string{"author"}),
		Text:            content,
		Tags:            tags,
	}, nil
}

func firstString(raw map[string]any, fields []string) string {
	for _, f := range fields {
		switch v := raw[f].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			return fmt.Sprint(v)
		}
	}
	return ""
}
