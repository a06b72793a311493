package status

import (
	"context"
	"net/http"
	"time"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
)

const HealthOffline = "offline"

// Reader serves the read-only calls that must keep working while the backend
// is degraded. Every method returns a structurally complete value.
type Reader struct {
	gw  *gateway.Gateway
	now func() time.Time
}

func NewReader(gw *gateway.Gateway) *Reader {
	return &Reader{gw: gw, now: time.Now}
}

func (r *Reader) Health(ctx context.Context) gateway.Outcome[models.Health] {
	return gateway.WithFallback(ctx, "health",
		func(ctx context.Context) (models.Health, error) {
			var h models.Health
			err := r.gw.CallJSON(ctx, gateway.Request{Method: http.MethodGet, Endpoint: "/health"}, &h)
			return h, err
		},
		func() models.Health {
			return models.Health{Status: HealthOffline, Timestamp: r.now().UTC()}
		},
	)
}

func (r *Reader) FilterOptions(ctx context.Context) gateway.Outcome[models.FilterOptions] {
	return gateway.WithFallback(ctx, "filter_options",
		func(ctx context.Context) (models.FilterOptions, error) {
			var opts models.FilterOptions
			err := r.gw.CallJSON(ctx, gateway.Request{Method: http.MethodGet, Endpoint: "/records/filter-options"}, &opts)
			return fillOptions(opts), err
		},
		DefaultFilterOptions,
	)
}

func (r *Reader) LLMSettings(ctx context.Context) gateway.Outcome[models.LLMSettings] {
	return gateway.WithFallback(ctx, "llm_settings",
		func(ctx context.Context) (models.LLMSettings, error) {
			var s models.LLMSettings
			err := r.gw.CallJSON(ctx, gateway.Request{Method: http.MethodGet, Endpoint: "/llm/settings"}, &s)
			return s, err
		},
		DefaultLLMSettings,
	)
}

// DefaultFilterOptions lists the fixed vocabularies and leaves the
// data-derived facets empty.
func DefaultFilterOptions() models.FilterOptions {
	return fillOptions(models.FilterOptions{})
}

func DefaultLLMSettings() models.LLMSettings {
	return models.LLMSettings{Enabled: false, Mode: "disabled", Model: "", ConfidenceThreshold: 0.6}
}

func fillOptions(o models.FilterOptions) models.FilterOptions {
	if o.Companies == nil {
		o.Companies = []models.CompanyOption{}
	}
	if len(o.Connectors) == 0 {
		o.Connectors = make([]string, 0, len(models.Connectors))
		for _, c := range models.Connectors {
			o.Connectors = append(o.Connectors, string(c))
		}
	}
	if len(o.Statuses) == 0 {
		o.Statuses = make([]string, 0, len(models.Statuses))
		for _, s := range models.Statuses {
			o.Statuses = append(o.Statuses, string(s))
		}
	}
	if len(o.Priorities) == 0 {
		o.Priorities = make([]string, 0, len(models.Priorities))
		for _, p := range models.Priorities {
			o.Priorities = append(o.Priorities, string(p))
		}
	}
	if o.IssueTypes == nil {
		o.IssueTypes = []string{}
	}
	if o.Tags == nil {
		o.Tags = []string{}
	}
	if o.Departments == nil {
		o.Departments = []string{}
	}
	if o.Authors == nil {
		o.Authors = []string{}
	}
	return o
}
