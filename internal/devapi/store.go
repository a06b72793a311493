package devapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
)

var (
	errRecordNotFound    = errors.New("Record not found")
	errThresholdNotFound = errors.New("Threshold not found")
)

type transitionError struct {
	from   models.Status
	action models.Action
}

func (e *transitionError) Error() string {
	return fmt.Sprintf("Cannot %s a record in status %s", e.action, e.from)
}

type rangeError struct {
	threshold models.Threshold
	value     float64
}

func (e *rangeError) Error() string {
	return fmt.Sprintf("Value %g for %s is outside [%g, %g]", e.value, e.threshold.Name, e.threshold.MinValue, e.threshold.MaxValue)
}

// Store is the in-memory state of the reference backend.
type Store struct {
	mu sync.RWMutex

	records []*models.Record
	byID    map[string]*models.Record
	audit   map[string][]models.AuditEntry

	thresholds []*models.Threshold
	byName     map[string]*models.Threshold
	history    map[string][]models.ThresholdHistoryEntry

	now func() time.Time
}

func NewStore() *Store {
	s := &Store{
		byID:    make(map[string]*models.Record),
		audit:   make(map[string][]models.AuditEntry),
		byName:  make(map[string]*models.Threshold),
		history: make(map[string][]models.ThresholdHistoryEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, t := range defaultThresholds() {
		t := t
		s.thresholds = append(s.thresholds, &t)
		s.byName[t.Name] = &t
	}
	return s
}

// ListRecords filters, sorts and pages the stored records.
func (s *Store) ListRecords(f models.Filter, p models.Pagination) models.RecordPage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		if matches(r, f) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		c := compare(matched[i], matched[j], p.SortBy)
		if c == 0 {
			return matched[i].ID < matched[j].ID
		}
		if p.SortOrder == models.SortAsc {
			return c < 0
		}
		return c > 0
	})

	total := len(matched)
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}

	data := []models.Record{}
	start := (p.Page - 1) * p.PageSize
	if start < total {
		end := start + p.PageSize
		if end > total {
			end = total
		}
		for _, r := range matched[start:end] {
			data = append(data, cloneRecord(r))
		}
	}

	return models.RecordPage{
		Data: data,
		Pagination: models.PageInfo{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

func (s *Store) Record(id string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return models.Record{}, errRecordNotFound
	}
	return cloneRecord(r), nil
}

// Act applies a review decision: approve, flag, override or reject.
func (s *Store) Act(action models.Action, id, userID, reason string) (models.Record, models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return models.Record{}, models.AuditEntry{}, errRecordNotFound
	}

	next, allowed := models.Transition(action, r.Status)
	if !allowed {
		return models.Record{}, models.AuditEntry{}, &transitionError{from: r.Status, action: action}
	}

	now := s.now()
	r.Status = next
	r.UpdatedAt = now
	r.ReviewedAt = &now
	r.ReviewedBy = userID

	entry := s.appendAudit(r, action, userID, reason, now)
	return cloneRecord(r), entry, nil
}

// ChangeContent stores new content and tags. Reprocess re-runs the checks
// and lets them decide the status; edit leaves the status alone.
func (s *Store) ChangeContent(action models.Action, id, content string, tags []string, userID, reason string) (models.Record, models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return models.Record{}, models.AuditEntry{}, errRecordNotFound
	}
	if _, allowed := models.Transition(action, r.Status); !allowed {
		return models.Record{}, models.AuditEntry{}, &transitionError{from: r.Status, action: action}
	}

	now := s.now()
	r.Text = content
	r.Tags = models.NormalizeTags(tags)
	r.UpdatedAt = now

	if action == models.ActionReprocess {
		s.score(r)
	}

	entry := s.appendAudit(r, action, userID, reason, now)
	return cloneRecord(r), entry, nil
}

func (s *Store) AuditTrail(id string) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[id]; !ok {
		return nil, errRecordNotFound
	}
	out := make([]models.AuditEntry, len(s.audit[id]))
	copy(out, s.audit[id])
	return out, nil
}

// Insert scores and stores a new pending record.
func (s *Store) Insert(r models.Record) models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RecordID == "" {
		r.RecordID = r.ID
	}
	if r.TraceID == "" {
		r.TraceID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	r.Tags = models.NormalizeTags(r.Tags)

	// New records enter as pending; the checks inform reviewers but only
	// reprocess lets them decide the status.
	preset := r.Status
	rec := &r
	if len(rec.QualityChecks) == 0 {
		s.score(rec)
	}
	rec.Status = preset
	if rec.Status == "" {
		rec.Status = models.StatusPending
	}
	if rec.Priority == "" {
		rec.Priority = models.PriorityMedium
	}

	if old, exists := s.byID[rec.ID]; exists {
		*old = *rec
		return cloneRecord(old)
	}
	s.records = append(s.records, rec)
	s.byID[rec.ID] = rec
	return cloneRecord(rec)
}

func (s *Store) Thresholds(category string) []models.Threshold {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Threshold{}
	for _, t := range s.thresholds {
		if category == "" || strings.EqualFold(t.Category, category) {
			out = append(out, *t)
		}
	}
	return out
}

func (s *Store) UpdateThreshold(name string, value float64, reason, userID string) (models.Threshold, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byName[name]
	if !ok {
		return models.Threshold{}, 0, errThresholdNotFound
	}
	if !t.InRange(value) {
		return models.Threshold{}, 0, &rangeError{threshold: *t, value: value}
	}

	old := t.CurrentValue
	t.CurrentValue = value
	s.appendHistory(name, old, value, userID, reason)
	return *t, old, nil
}

// ResetThreshold restores the default. Every reset is a history entry, even
// when the value was already the default.
func (s *Store) ResetThreshold(name, userID string) (models.Threshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byName[name]
	if !ok {
		return models.Threshold{}, errThresholdNotFound
	}

	old := t.CurrentValue
	t.CurrentValue = t.DefaultValue
	s.appendHistory(name, old, t.DefaultValue, userID, "Reset to default")
	return *t, nil
}

func (s *Store) History(name string) ([]models.ThresholdHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byName[name]; !ok {
		return nil, errThresholdNotFound
	}
	out := make([]models.ThresholdHistoryEntry, len(s.history[name]))
	copy(out, s.history[name])
	return out, nil
}

func (s *Store) FilterOptions() models.FilterOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()

	companies := map[string]string{}
	sets := map[string]map[string]struct{}{"issues": {}, "tags": {}, "departments": {}, "authors": {}}
	add := func(set, v string) {
		if v != "" {
			sets[set][v] = struct{}{}
		}
	}

	for _, r := range s.records {
		companies[r.CompanyID] = r.CompanyName
		for _, is := range r.Issues {
			add("issues", is.Type)
		}
		for _, t := range r.Tags {
			add("tags", t)
		}
		add("departments", r.Department)
		add("authors", r.Author)
	}

	opts := models.FilterOptions{Companies: []models.CompanyOption{}}
	for id, name := range companies {
		opts.Companies = append(opts.Companies, models.CompanyOption{ID: id, Name: name})
	}
	sort.Slice(opts.Companies, func(i, j int) bool { return opts.Companies[i].Name < opts.Companies[j].Name })

	for _, c := range models.Connectors {
		opts.Connectors = append(opts.Connectors, string(c))
	}
	for _, st := range models.Statuses {
		opts.Statuses = append(opts.Statuses, string(st))
	}
	for _, p := range models.Priorities {
		opts.Priorities = append(opts.Priorities, string(p))
	}
	opts.IssueTypes = sortedKeys(sets["issues"])
	opts.Tags = sortedKeys(sets["tags"])
	opts.Departments = sortedKeys(sets["departments"])
	opts.Authors = sortedKeys(sets["authors"])
	return opts
}

// score runs the analyzer with current thresholds. Callers hold the lock.
func (s *Store) score(r *models.Record) {
	values := make(map[string]float64, len(s.thresholds))
	for _, t := range s.thresholds {
		values[t.Name] = t.CurrentValue
	}

	checks, score := analyze(r.Text, r.Tags, values)
	r.QualityChecks = checks
	r.QualityScore = score
	r.ConfidenceScore = meanConfidence(checks)
	r.Issues = issuesFrom(checks)
	r.Status = decide(checks, score, values["approval_quality_score_threshold"])
	r.Priority = priorityFor(r.Status, score)
}

func (s *Store) appendAudit(r *models.Record, action models.Action, userID, reason string, at time.Time) models.AuditEntry {
	entry := models.AuditEntry{
		RecordID:  r.ID,
		Action:    action,
		UserID:    userID,
		Reason:    reason,
		Timestamp: at,
		Status:    r.Status,
	}
	s.audit[r.ID] = append(s.audit[r.ID], entry)
	return entry
}

func (s *Store) appendHistory(name string, old, value float64, userID, reason string) {
	s.history[name] = append(s.history[name], models.ThresholdHistoryEntry{
		ThresholdName: name,
		OldValue:      old,
		NewValue:      value,
		ChangedBy:     userID,
		Reason:        reason,
		Timestamp:     s.now(),
	})
}

func matches(r *models.Record, f models.Filter) bool {
	if len(f.Companies) > 0 && !contains(f.Companies, r.CompanyID) && !contains(f.Companies, r.CompanyName) {
		return false
	}
	if len(f.Connectors) > 0 && !contains(f.Connectors, string(r.SourceConnector)) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, string(r.Status)) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, string(r.Priority)) {
		return false
	}
	if len(f.Departments) > 0 && !contains(f.Departments, r.Department) {
		return false
	}
	if len(f.Authors) > 0 && !contains(f.Authors, r.Author) {
		return false
	}
	if len(f.Tags) > 0 && !overlaps(f.Tags, r.Tags) {
		return false
	}
	if len(f.IssueTypes) > 0 {
		types := make([]string, 0, len(r.Issues))
		for _, is := range r.Issues {
			types = append(types, is.Type)
		}
		if !overlaps(f.IssueTypes, types) {
			return false
		}
	}
	if q := f.QualityScore; q != nil && (r.QualityScore < q.Min || r.QualityScore > q.Max) {
		return false
	}
	if f.DateFrom != nil && r.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := strings.ToLower(strings.Join(append([]string{r.Text, r.RecordID, r.CompanyName}, r.Tags...), " "))
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

var priorityRank = map[models.Priority]int{
	models.PriorityLow: 0, models.PriorityMedium: 1, models.PriorityHigh: 2, models.PriorityCritical: 3,
}

func compare(a, b *models.Record, field string) int {
	switch field {
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "reviewedAt":
		return reviewed(a).Compare(reviewed(b))
	case "qualityScore":
		return cmpFloat(a.QualityScore, b.QualityScore)
	case "confidenceScore":
		return cmpFloat(a.ConfidenceScore, b.ConfidenceScore)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return priorityRank[a.Priority] - priorityRank[b.Priority]
	case "companyName":
		return strings.Compare(a.CompanyName, b.CompanyName)
	case "sourceConnector":
		return strings.Compare(string(a.SourceConnector), string(b.SourceConnector))
	case "recordId":
		return strings.Compare(a.RecordID, b.RecordID)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func reviewed(r *models.Record) time.Time {
	if r.ReviewedAt == nil {
		return time.Time{}
	}
	return *r.ReviewedAt
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func meanConfidence(checks []models.CheckResult) float64 {
	if len(checks) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range checks {
		sum += c.ConfidenceScore
	}
	return float64(int(sum/float64(len(checks))*1000)) / 1000
}

func cloneRecord(r *models.Record) models.Record {
	out := *r
	out.Tags = append([]string{}, r.Tags...)
	out.QualityChecks = append([]models.CheckResult{}, r.QualityChecks...)
	out.Issues = append([]models.Issue{}, r.Issues...)
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		out.ReviewedAt = &t
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func overlaps(set, values []string) bool {
	for _, v := range values {
		if contains(set, v) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
