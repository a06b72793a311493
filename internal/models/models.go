package models

import (
	"sort"
	"strings"
	"time"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusFlagged     Status = "flagged"
	StatusUnderReview Status = "under_review"
	StatusRejected    Status = "rejected"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusFlagged, StatusUnderReview, StatusRejected}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

type Connector string

const (
	ConnectorSharePoint Connector = "SharePoint"
	ConnectorConfluence Connector = "Confluence"
	ConnectorNotion     Connector = "Notion"
	ConnectorGDrive     Connector = "GDrive"
)

var Connectors = []Connector{ConnectorSharePoint, ConnectorConfluence, ConnectorNotion, ConnectorGDrive}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

type CheckStatus string

const (
	CheckPass          CheckStatus = "pass"
	CheckFail          CheckStatus = "fail"
	CheckPendingReview CheckStatus = "pending_review"
)

// CheckResult is one automated check's verdict. It is produced by the
// analysis engine and never modified once attached to a record.
type CheckResult struct {
	CheckName       string         `json:"checkName"`
	Status          CheckStatus    `json:"status"`
	ConfidenceScore float64        `json:"confidenceScore"`
	FailureReason   string         `json:"failureReason,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type Issue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

type Record struct {
	ID              string        `json:"id"`
	RecordID        string        `json:"recordId"`
	TraceID         string        `json:"traceId"`
	SourceConnector Connector     `json:"sourceConnector"`
	CompanyID       string        `json:"companyId"`
	CompanyName     string        `json:"companyName"`
	Department      string        `json:"department,omitempty"`
	Author          string        `json:"author,omitempty"`
	Text            string        `json:"text"`
	Tags            []string      `json:"tags"`
	QualityScore    float64       `json:"qualityScore"`
	ConfidenceScore float64       `json:"confidenceScore"`
	QualityChecks   []CheckResult `json:"qualityChecks"`
	Status          Status        `json:"status"`
	Priority        Priority      `json:"priority"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	ReviewedAt      *time.Time    `json:"reviewedAt,omitempty"`
	ReviewedBy      string        `json:"reviewedBy,omitempty"`
	Issues          []Issue       `json:"issues"`
}

// ScoreRange is an inclusive quality-score bound.
type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Filter is a conjunction of independent facets. An empty facet means no
// constraint.
type Filter struct {
	Companies    []string    `json:"companies,omitempty"`
	Connectors   []string    `json:"connectors,omitempty"`
	Statuses     []string    `json:"statuses,omitempty"`
	Priorities   []string    `json:"priorities,omitempty"`
	IssueTypes   []string    `json:"issueTypes,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	Departments  []string    `json:"departments,omitempty"`
	Authors      []string    `json:"authors,omitempty"`
	QualityScore *ScoreRange `json:"qualityScore,omitempty"`
	Search       string      `json:"search,omitempty"`
	DateFrom     *time.Time  `json:"dateFrom,omitempty"`
	DateTo       *time.Time  `json:"dateTo,omitempty"`
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type Pagination struct {
	Page      int       `json:"page"`
	PageSize  int       `json:"pageSize"`
	SortBy    string    `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`
}

// SortableFields lists the record fields a page may be ordered by.
var SortableFields = []string{
	"createdAt", "updatedAt", "reviewedAt", "qualityScore", "confidenceScore",
	"status", "priority", "companyName", "sourceConnector", "recordId",
}

func DefaultPagination() Pagination {
	return Pagination{Page: 1, PageSize: 20, SortBy: "createdAt", SortOrder: SortDesc}
}

type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type RecordPage struct {
	Data       []Record `json:"data"`
	Pagination PageInfo `json:"pagination"`
}

type Action string

const (
	ActionApprove   Action = "approve"
	ActionFlag      Action = "flag"
	ActionOverride  Action = "override"
	ActionReprocess Action = "reprocess"
	ActionEdit      Action = "edit"
	ActionReject    Action = "reject"
)

// AuditEntry is an append-only line in a record's review history.
type AuditEntry struct {
	RecordID  string    `json:"recordId"`
	Action    Action    `json:"action"`
	UserID    string    `json:"userId"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

type Threshold struct {
	Name         string  `json:"name"`
	DisplayName  string  `json:"displayName,omitempty"`
	CurrentValue float64 `json:"currentValue"`
	DefaultValue float64 `json:"defaultValue"`
	MinValue     float64 `json:"minValue"`
	MaxValue     float64 `json:"maxValue"`
	Unit         string  `json:"unit"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
}

func (t Threshold) InRange(v float64) bool {
	return v >= t.MinValue && v <= t.MaxValue
}

type ThresholdHistoryEntry struct {
	ThresholdName string    `json:"thresholdName"`
	OldValue      float64   `json:"oldValue"`
	NewValue      float64   `json:"newValue"`
	ChangedBy     string    `json:"changedBy"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// SortHistoryNewestFirst orders entries by timestamp, newest first. The
// backend does not guarantee an order.
func SortHistoryNewestFirst(entries []ThresholdHistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

type CompanyOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FilterOptions struct {
	Companies   []CompanyOption `json:"companies"`
	Connectors  []string        `json:"connectors"`
	Statuses    []string        `json:"statuses"`
	Priorities  []string        `json:"priorities"`
	IssueTypes  []string        `json:"issueTypes"`
	Tags        []string        `json:"tags"`
	Departments []string        `json:"departments"`
	Authors     []string        `json:"authors"`
}

type LLMSettings struct {
	Enabled             bool    `json:"enabled"`
	Mode                string  `json:"mode"`
	Model               string  `json:"model"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
}

// NormalizeTags trims, drops blanks and removes duplicates while keeping the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
