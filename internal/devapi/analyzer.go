package devapi

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
)

var genericTags = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`document file content text information data report summary overview
		details description general misc miscellaneous other various company business corporate
		organization important urgent new old recent current updated latest final draft version
		meeting call email message note memo project task work process procedure team group
		department customer client user product service system policy guideline review analysis
		support help management admin technical`) {
		genericTags[w] = struct{}{}
	}
}

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)lorem ipsum`),
	regexp.MustCompile(`(?i)test\s*(document|content|text|data)`),
	regexp.MustCompile(`(?i)sample\s*(document|content|text|data)`),
	regexp.MustCompile(`(?i)placeholder\s*(text|content)`),
	regexp.MustCompile(`(?i)dummy\s*(text|content|data)`),
	regexp.MustCompile(`(?i)asdf|qwerty|123456|abcdef`),
}

const minTextLength = 20

// analyze runs the quality checks against the current threshold values. It
// is a small stand-in for the external analysis engine.
func analyze(text string, tags []string, th map[string]float64) ([]models.CheckResult, float64) {
	checks := []models.CheckResult{
		checkTextLength(text),
		checkTagCount(tags, th["min_tag_count"], th["max_tag_count"]),
		checkStopwords(tags, th["stopword_threshold"]),
		checkSpam(text, th["spam_threshold"]),
		checkTagRelevance(text, tags, th["tag_text_relevance_threshold"]),
	}

	total := 0.0
	for _, c := range checks {
		switch c.Status {
		case models.CheckPass:
			total += 1
		case models.CheckPendingReview:
			total += 0.5
		}
	}
	score := math.Round(total/float64(len(checks))*1000) / 10
	return checks, score
}

// decide derives a record's status from its checks, parking approvals whose
// score misses the approval bar under review.
func decide(checks []models.CheckResult, score, approvalBar float64) models.Status {
	status := models.StatusFromChecks(checks)
	if status == models.StatusApproved && score < approvalBar {
		return models.StatusUnderReview
	}
	return status
}

func issuesFrom(checks []models.CheckResult) []models.Issue {
	issues := []models.Issue{}
	for _, c := range checks {
		if c.Status == models.CheckPass {
			continue
		}
		severity := "medium"
		if c.Status == models.CheckFail {
			severity = "high"
		}
		issues = append(issues, models.Issue{Type: c.CheckName, Severity: severity, Description: c.FailureReason})
	}
	return issues
}

func priorityFor(status models.Status, score float64) models.Priority {
	switch {
	case status == models.StatusFlagged && score < 40:
		return models.PriorityCritical
	case status == models.StatusFlagged:
		return models.PriorityHigh
	case status == models.StatusUnderReview:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func checkTextLength(text string) models.CheckResult {
	n := len(strings.TrimSpace(text))
	if n < minTextLength {
		return models.CheckResult{
			CheckName:       "text_length",
			Status:          models.CheckFail,
			ConfidenceScore: 0.95,
			FailureReason:   fmt.Sprintf("text has %d characters, need at least %d", n, minTextLength),
			Metadata:        map[string]any{"length": n},
		}
	}
	return models.CheckResult{CheckName: "text_length", Status: models.CheckPass, ConfidenceScore: 0.95, Metadata: map[string]any{"length": n}}
}

func checkTagCount(tags []string, lo, hi float64) models.CheckResult {
	n := float64(len(tags))
	meta := map[string]any{"count": len(tags), "min": lo, "max": hi}
	if n < lo || n > hi {
		return models.CheckResult{
			CheckName:       "tag_count_validation",
			Status:          models.CheckFail,
			ConfidenceScore: 1,
			FailureReason:   fmt.Sprintf("%d tags outside [%g, %g]", len(tags), lo, hi),
			Metadata:        meta,
		}
	}
	return models.CheckResult{CheckName: "tag_count_validation", Status: models.CheckPass, ConfidenceScore: 1, Metadata: meta}
}

func checkStopwords(tags []string, maxRatio float64) models.CheckResult {
	if len(tags) == 0 {
		return models.CheckResult{CheckName: "generic_stopwords", Status: models.CheckPass, ConfidenceScore: 0.5}
	}

	generic := 0
	for _, t := range tags {
		if _, ok := genericTags[strings.ToLower(t)]; ok {
			generic++
		}
	}
	ratio := float64(generic) / float64(len(tags))
	meta := map[string]any{"ratio": ratio}

	if ratio > maxRatio {
		return models.CheckResult{
			CheckName:       "generic_stopwords",
			Status:          models.CheckFail,
			ConfidenceScore: 0.8,
			FailureReason:   fmt.Sprintf("%.0f%% of tags are generic", ratio*100),
			Metadata:        meta,
		}
	}
	return models.CheckResult{CheckName: "generic_stopwords", Status: models.CheckPass, ConfidenceScore: 0.8, Metadata: meta}
}

func checkSpam(text string, maxScore float64) models.CheckResult {
	hits := 0
	for _, p := range spamPatterns {
		if p.MatchString(text) {
			hits++
		}
	}
	score := math.Min(1, float64(hits)*0.35)
	meta := map[string]any{"spam_score": score, "patterns_matched": hits}

	if score > maxScore {
		return models.CheckResult{
			CheckName:       "spam_patterns",
			Status:          models.CheckFail,
			ConfidenceScore: 0.9,
			FailureReason:   fmt.Sprintf("spam score %.2f above %.2f", score, maxScore),
			Metadata:        meta,
		}
	}
	return models.CheckResult{CheckName: "spam_patterns", Status: models.CheckPass, ConfidenceScore: 0.9, Metadata: meta}
}

func checkTagRelevance(text string, tags []string, minShare float64) models.CheckResult {
	if len(tags) == 0 {
		return models.CheckResult{CheckName: "tag_text_relevance", Status: models.CheckPendingReview, ConfidenceScore: 0.4, FailureReason: "no tags to compare"}
	}

	lower := strings.ToLower(text)
	found := 0
	for _, t := range tags {
		if strings.Contains(lower, strings.ToLower(t)) {
			found++
		}
	}
	share := float64(found) / float64(len(tags))
	meta := map[string]any{"share": share}

	switch {
	case share >= minShare:
		return models.CheckResult{CheckName: "tag_text_relevance", Status: models.CheckPass, ConfidenceScore: 0.7, Metadata: meta}
	case found == 0:
		return models.CheckResult{
			CheckName:       "tag_text_relevance",
			Status:          models.CheckFail,
			ConfidenceScore: 0.7,
			FailureReason:   "no tag appears in the text",
			Metadata:        meta,
		}
	default:
		return models.CheckResult{
			CheckName:       "tag_text_relevance",
			Status:          models.CheckPendingReview,
			ConfidenceScore: 0.5,
			FailureReason:   fmt.Sprintf("only %.0f%% of tags appear in the text", share*100),
			Metadata:        meta,
		}
	}
}
