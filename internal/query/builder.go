package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

// Wire parameter names understood by GET /records.
const (
	ParamPage         = "page"
	ParamPageSize     = "page_size"
	ParamSortBy       = "sort_by"
	ParamSortOrder    = "sort_order"
	ParamCompanies    = "companies"
	ParamConnectors   = "connectors"
	ParamStatus       = "status"
	ParamPriority     = "priority"
	ParamIssueTypes   = "issue_types"
	ParamTags         = "tags"
	ParamDepartments  = "departments"
	ParamAuthors      = "authors"
	ParamQualityRange = "quality_score_range"
	ParamSearch       = "search"
	ParamDateFrom     = "date_from"
	ParamDateTo       = "date_to"
)

const listSeparator = ","

type facet struct {
	param  string
	values func(*models.Filter) *[]string
}

var facets = []facet{
	{ParamCompanies, func(f *models.Filter) *[]string { return &f.Companies }},
	{ParamConnectors, func(f *models.Filter) *[]string { return &f.Connectors }},
	{ParamStatus, func(f *models.Filter) *[]string { return &f.Statuses }},
	{ParamPriority, func(f *models.Filter) *[]string { return &f.Priorities }},
	{ParamIssueTypes, func(f *models.Filter) *[]string { return &f.IssueTypes }},
	{ParamTags, func(f *models.Filter) *[]string { return &f.Tags }},
	{ParamDepartments, func(f *models.Filter) *[]string { return &f.Departments }},
	{ParamAuthors, func(f *models.Filter) *[]string { return &f.Authors }},
}

// Build serializes filter and pagination into the query of GET /records.
//
// List facets are sent comma-joined and only when they hold at least one
// non-blank value. A value that cannot be represented (one containing the
// separator, a reversed range) fails the whole build.
func Build(filter models.Filter, page models.Pagination) (url.Values, error) {
	page, err := normalizePagination(page)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set(ParamPage, strconv.Itoa(page.Page))
	q.Set(ParamPageSize, strconv.Itoa(page.PageSize))
	q.Set(ParamSortBy, page.SortBy)
	q.Set(ParamSortOrder, string(page.SortOrder))

	for _, fc := range facets {
		joined, err := joinFacet(fc.param, *fc.values(&filter))
		if err != nil {
			return nil, err
		}
		if joined != "" {
			q.Set(fc.param, joined)
		}
	}

	if r := filter.QualityScore; r != nil {
		if err := validateRange(*r); err != nil {
			return nil, err
		}
		q.Set(ParamQualityRange, formatFloat(r.Min)+listSeparator+formatFloat(r.Max))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		q.Set(ParamSearch, search)
	}

	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, apierror.Validation("dateRange", "from %s is after to %s",
			filter.DateFrom.Format(time.RFC3339), filter.DateTo.Format(time.RFC3339))
	}
	if filter.DateFrom != nil {
		q.Set(ParamDateFrom, filter.DateFrom.UTC().Format(time.RFC3339))
	}
	if filter.DateTo != nil {
		q.Set(ParamDateTo, filter.DateTo.UTC().Format(time.RFC3339))
	}

	return q, nil
}

// Parse is the inverse of Build. Missing pagination fields take their
// defaults.
func Parse(q url.Values) (models.Filter, models.Pagination, error) {
	var filter models.Filter
	page := models.DefaultPagination()

	var err error
	if page.Page, err = parseInt(q, ParamPage, page.Page); err != nil {
		return filter, page, err
	}
	if page.PageSize, err = parseInt(q, ParamPageSize, page.PageSize); err != nil {
		return filter, page, err
	}
	if v := strings.TrimSpace(q.Get(ParamSortBy)); v != "" {
		page.SortBy = v
	}
	if v := strings.TrimSpace(q.Get(ParamSortOrder)); v != "" {
		page.SortOrder = models.SortOrder(strings.ToLower(v))
	}
	if page, err = normalizePagination(page); err != nil {
		return filter, page, err
	}

	for _, fc := range facets {
		*fc.values(&filter) = splitFacet(q.Get(fc.param))
	}

	if raw := strings.TrimSpace(q.Get(ParamQualityRange)); raw != "" {
		r, err := parseRange(raw)
		if err != nil {
			return filter, page, err
		}
		filter.QualityScore = &r
	}

	filter.Search = strings.TrimSpace(q.Get(ParamSearch))

	if filter.DateFrom, err = parseTime(q, ParamDateFrom); err != nil {
		return filter, page, err
	}
	if filter.DateTo, err = parseTime(q, ParamDateTo); err != nil {
		return filter, page, err
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return filter, page, apierror.Validation("dateRange", "from is after to")
	}

	return filter, page, nil
}

// normalizePagination fills zero fields with defaults and rejects the rest of
// the invalid space.
func normalizePagination(p models.Pagination) (models.Pagination, error) {
	def := models.DefaultPagination()

	if p.Page == 0 {
		p.Page = def.Page
	}
	if p.PageSize == 0 {
		p.PageSize = def.PageSize
	}
	if p.SortBy == "" {
		p.SortBy = def.SortBy
	}
	if p.SortOrder == "" {
		p.SortOrder = def.SortOrder
	}

	if p.Page < 1 {
		return p, apierror.Validation("page", "must be at least 1, got %d", p.Page)
	}
	if p.PageSize < 1 {
		return p, apierror.Validation("pageSize", "must be at least 1, got %d", p.PageSize)
	}
	if !sortable(p.SortBy) {
		return p, apierror.Validation("sortBy", "unknown field %q", p.SortBy)
	}
	if p.SortOrder != models.SortAsc && p.SortOrder != models.SortDesc {
		return p, apierror.Validation("sortOrder", "must be asc or desc, got %q", p.SortOrder)
	}
	return p, nil
}

func sortable(field string) bool {
	for _, f := range models.SortableFields {
		if f == field {
			return true
		}
	}
	return false
}

func joinFacet(param string, values []string) (string, error) {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, listSeparator) {
			return "", apierror.Validation(param, "value %q contains %q", v, listSeparator)
		}
		kept = append(kept, v)
	}
	return strings.Join(kept, listSeparator), nil
}

func splitFacet(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateRange(r models.ScoreRange) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return apierror.Validation("qualityScore", "range bounds must be numbers")
	}
	if r.Min < 0 || r.Max > 100 {
		return apierror.Validation("qualityScore", "range must lie within 0-100")
	}
	if r.Min > r.Max {
		return apierror.Validation("qualityScore", "min %s is greater than max %s", formatFloat(r.Min), formatFloat(r.Max))
	}
	return nil
}

func parseRange(raw string) (models.ScoreRange, error) {
	parts := strings.Split(raw, listSeparator)
	if len(parts) != 2 {
		return models.ScoreRange{}, apierror.Validation(ParamQualityRange, "expected min,max, got %q", raw)
	}
	lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return models.ScoreRange{}, apierror.Validation(ParamQualityRange, "bounds must be numbers, got %q", raw)
	}
	r := models.ScoreRange{Min: lo, Max: hi}
	return r, validateRange(r)
}

func parseInt(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierror.Validation(key, "must be an integer, got %q", raw)
	}
	return n, nil
}

func parseTime(q url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apierror.Validation(key, "unrecognized timestamp %q", raw)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
