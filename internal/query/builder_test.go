package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

func paginationOnly() url.Values {
	return url.Values{
		ParamPage:      {"1"},
		ParamPageSize:  {"20"},
		ParamSortBy:    {"createdAt"},
		ParamSortOrder: {"desc"},
	}
}

func TestBuildEmptyFilterHasNoConstraints(t *testing.T) {
	t.Parallel()

	q, err := Build(models.Filter{}, models.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, paginationOnly(), q)
}

func TestBuildOmitsBlankFacets(t *testing.T) {
	t.Parallel()

	q, err := Build(models.Filter{
		Companies: []string{""},
		Tags:      []string{"  ", ""},
		Statuses:  []string{},
		Search:    "   ",
	}, models.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, paginationOnly(), q)
}

func TestBuildSerializesEveryFacet(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)

	q, err := Build(models.Filter{
		Companies:    []string{"acme", "globex"},
		Connectors:   []string{"SharePoint"},
		Statuses:     []string{"flagged", "under_review"},
		Priorities:   []string{"high"},
		IssueTypes:   []string{"spam"},
		Tags:         []string{"finance", " ", "q3"},
		Departments:  []string{"Legal"},
		Authors:      []string{"dana"},
		QualityScore: &models.ScoreRange{Min: 40, Max: 87.5},
		Search:       " budget ",
		DateFrom:     &from,
		DateTo:       &to,
	}, models.Pagination{Page: 3, PageSize: 50, SortBy: "qualityScore", SortOrder: models.SortAsc})
	require.NoError(t, err)

	assert.Equal(t, "3", q.Get(ParamPage))
	assert.Equal(t, "50", q.Get(ParamPageSize))
	assert.Equal(t, "qualityScore", q.Get(ParamSortBy))
	assert.Equal(t, "asc", q.Get(ParamSortOrder))
	assert.Equal(t, "acme,globex", q.Get(ParamCompanies))
	assert.Equal(t, "SharePoint", q.Get(ParamConnectors))
	assert.Equal(t, "flagged,under_review", q.Get(ParamStatus))
	assert.Equal(t, "high", q.Get(ParamPriority))
	assert.Equal(t, "spam", q.Get(ParamIssueTypes))
	assert.Equal(t, "finance,q3", q.Get(ParamTags))
	assert.Equal(t, "Legal", q.Get(ParamDepartments))
	assert.Equal(t, "dana", q.Get(ParamAuthors))
	assert.Equal(t, "40,87.5", q.Get(ParamQualityRange))
	assert.Equal(t, "budget", q.Get(ParamSearch))
	assert.Equal(t, "2026-03-01T00:00:00Z", q.Get(ParamDateFrom))
	assert.Equal(t, "2026-03-31T23:59:59Z", q.Get(ParamDateTo))
}

func TestBuildDateBoundsAreIndependent(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	q, err := Build(models.Filter{DateFrom: &from}, models.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T00:00:00Z", q.Get(ParamDateFrom))
	assert.NotContains(t, q, ParamDateTo)
}

func TestBuildRejectsUnrepresentableInput(t *testing.T) {
	t.Parallel()

	later := time.Now()
	earlier := later.Add(-time.Hour)

	cases := []struct {
		name   string
		filter models.Filter
		page   models.Pagination
	}{
		{"separator in value", models.Filter{Tags: []string{"a,b"}}, models.DefaultPagination()},
		{"reversed score range", models.Filter{QualityScore: &models.ScoreRange{Min: 80, Max: 20}}, models.DefaultPagination()},
		{"score above 100", models.Filter{QualityScore: &models.ScoreRange{Min: 0, Max: 120}}, models.DefaultPagination()},
		{"reversed dates", models.Filter{DateFrom: &later, DateTo: &earlier}, models.DefaultPagination()},
		{"negative page", models.Filter{}, models.Pagination{Page: -1}},
		{"negative page size", models.Filter{}, models.Pagination{PageSize: -5}},
		{"unknown sort field", models.Filter{}, models.Pagination{SortBy: "password"}},
		{"bad sort order", models.Filter{}, models.Pagination{SortOrder: "sideways"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Build(tc.filter, tc.page)
			require.ErrorIs(t, err, apierror.ErrValidation)
			assert.Nil(t, q)
		})
	}
}

func TestParseRoundTripsBuild(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	filter := models.Filter{
		Companies:    []string{"acme"},
		Statuses:     []string{"pending", "flagged"},
		QualityScore: &models.ScoreRange{Min: 10, Max: 90},
		Search:       "policy",
		DateFrom:     &from,
	}
	page := models.Pagination{Page: 2, PageSize: 5, SortBy: "priority", SortOrder: models.SortAsc}

	q, err := Build(filter, page)
	require.NoError(t, err)

	gotFilter, gotPage, err := Parse(q)
	require.NoError(t, err)
	assert.Equal(t, page, gotPage)
	assert.Equal(t, filter.Companies, gotFilter.Companies)
	assert.Equal(t, filter.Statuses, gotFilter.Statuses)
	assert.Equal(t, *filter.QualityScore, *gotFilter.QualityScore)
	assert.Equal(t, "policy", gotFilter.Search)
	require.NotNil(t, gotFilter.DateFrom)
	assert.True(t, from.Equal(*gotFilter.DateFrom))
	assert.Nil(t, gotFilter.DateTo)
}

func TestParseDefaultsAndErrors(t *testing.T) {
	t.Parallel()

	filter, page, err := Parse(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPagination(), page)
	assert.Empty(t, filter.Companies)

	_, _, err = Parse(url.Values{ParamPage: {"two"}})
	require.ErrorIs(t, err, apierror.ErrValidation)

	_, _, err = Parse(url.Values{ParamQualityRange: {"50"}})
	require.ErrorIs(t, err, apierror.ErrValidation)

	_, _, err = Parse(url.Values{ParamDateTo: {"yesterday"}})
	require.ErrorIs(t, err, apierror.ErrValidation)
}
