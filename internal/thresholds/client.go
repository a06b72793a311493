package thresholds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/cache"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/metrics"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

const listKeyPrefix = "thresholds:"

var ErrOutOfRange = errors.New("threshold value out of range")

// OutOfRangeError is a validation failure: the new value lies outside the
// threshold's bounds. It matches both ErrOutOfRange and apierror.ErrValidation.
type OutOfRangeError struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: value %s outside [%s, %s]", e.Name, format(e.Value), format(e.Min), format(e.Max))
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange || target == apierror.ErrValidation
}

// UpdateRequest describes one threshold change. When Current is set its
// bounds are used for the local range check; otherwise they are fetched.
type UpdateRequest struct {
	Name     string
	NewValue float64
	Reason   string
	UserID   string
	Current  *models.Threshold
}

// UpdateResult is the backend's verdict on PUT /thresholds/{name}.
type UpdateResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Threshold *models.Threshold `json:"threshold,omitempty"`
	OldValue  float64           `json:"old_value"`
	NewValue  float64           `json:"new_value"`
}

// ResetResult is the per-name outcome of ResetMany.
type ResetResult struct {
	Name      string
	Threshold models.Threshold
	Err       error
}

type Client struct {
	gw       *gateway.Gateway
	cache    cache.Cache
	cacheTTL time.Duration
}

type Option func(*Client)

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

func NewClient(gw *gateway.Gateway, opts ...Option) *Client {
	c := &Client{gw: gw, cache: cache.Noop{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns thresholds in backend order, optionally restricted to one
// category.
func (c *Client) List(ctx context.Context, category string) ([]models.Threshold, error) {
	category = strings.TrimSpace(category)
	key := listKeyPrefix + category

	var out []models.Threshold
	if hit, err := c.cache.Get(ctx, key, &out); err == nil && hit {
		return out, nil
	}

	req := gateway.Request{Method: http.MethodGet, Endpoint: "/thresholds"}
	if category != "" {
		req.Query = url.Values{"category": {category}}
	}

	var payload struct {
		Thresholds []models.Threshold `json:"thresholds"`
	}
	if err := c.gw.CallJSON(ctx, req, &payload); err != nil {
		return nil, err
	}

	out = payload.Thresholds
	if out == nil {
		out = []models.Threshold{}
	}

	if err := c.cache.Set(ctx, key, out, c.cacheTTL); err != nil {
		logger.Debug("Threshold cache write failed", zap.Error(err))
	}
	return out, nil
}

// Get returns the named threshold from the full list.
func (c *Client) Get(ctx context.Context, name string) (models.Threshold, error) {
	all, err := c.List(ctx, "")
	if err != nil {
		return models.Threshold{}, err
	}
	for _, t := range all {
		if t.Name == name {
			return t, nil
		}
	}
	return models.Threshold{}, &apierror.NotFoundError{Entity: "threshold", ID: name}
}

type updateBody struct {
	ThresholdName string  `json:"threshold_name"`
	NewValue      float64 `json:"new_value"`
	Reason        string  `json:"reason,omitempty"`
	UserID        string  `json:"user_id"`
}

// Update changes a threshold's current value. The range is checked locally
// first; a backend refusal is returned with the backend's own message.
func (c *Client) Update(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierror.Validation("name", "must not be empty")
	}
	if math.IsNaN(req.NewValue) || math.IsInf(req.NewValue, 0) {
		return nil, apierror.Validation("newValue", "must be a finite number")
	}
	userID, err := c.userID(req.UserID)
	if err != nil {
		return nil, err
	}

	current := req.Current
	if current == nil {
		t, err := c.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		current = &t
	}
	if !current.InRange(req.NewValue) {
		metrics.ThresholdChanges.WithLabelValues("update", "out_of_range").Inc()
		return nil, &OutOfRangeError{Name: name, Value: req.NewValue, Min: current.MinValue, Max: current.MaxValue}
	}

	endpoint := "/thresholds/" + url.PathEscape(name)
	resp, err := c.gw.Call(ctx, gateway.Request{
		Method:   http.MethodPut,
		Endpoint: endpoint,
		Route:    "/thresholds/{name}",
		Body: updateBody{
			ThresholdName: name,
			NewValue:      req.NewValue,
			Reason:        strings.TrimSpace(req.Reason),
			UserID:        userID,
		},
	})
	if err != nil {
		c.invalidateOnRefusal(ctx, err)
		err = classify(err, name)
		metrics.ThresholdChanges.WithLabelValues("update", apierror.Kind(err)).Inc()
		return nil, err
	}

	result := &UpdateResult{Success: true, OldValue: current.CurrentValue, NewValue: req.NewValue}
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return nil, fmt.Errorf("failed to decode threshold update response: %w", err)
		}
	}

	if !result.Success {
		metrics.ThresholdChanges.WithLabelValues("update", "refused").Inc()
		c.invalidate(ctx)
		return nil, &apierror.RequestFailedError{
			Method:     http.MethodPut,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       result.Message,
		}
	}

	metrics.ThresholdChanges.WithLabelValues("update", "success").Inc()
	logger.Info("Threshold updated",
		zap.String("threshold", name),
		zap.Float64("old_value", result.OldValue),
		zap.Float64("new_value", result.NewValue),
		zap.String("user_id", userID),
	)

	c.invalidate(ctx)
	return result, nil
}

// Reset restores a threshold to its default value.
func (c *Client) Reset(ctx context.Context, name, userID string) (models.Threshold, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Threshold{}, apierror.Validation("name", "must not be empty")
	}
	userID, err := c.userID(userID)
	if err != nil {
		return models.Threshold{}, err
	}

	resp, err := c.gw.Call(ctx, gateway.Request{
		Method:   http.MethodPost,
		Endpoint: "/thresholds/" + url.PathEscape(name) + "/reset",
		Route:    "/thresholds/{name}/reset",
		Body:     map[string]string{"user_id": userID},
	})
	if err != nil {
		c.invalidateOnRefusal(ctx, err)
		err = classify(err, name)
		metrics.ThresholdChanges.WithLabelValues("reset", apierror.Kind(err)).Inc()
		return models.Threshold{}, err
	}

	t, err := decodeThreshold(resp.Body)
	if err != nil {
		return models.Threshold{}, fmt.Errorf("failed to decode reset response for %q: %w", name, err)
	}

	metrics.ThresholdChanges.WithLabelValues("reset", "success").Inc()
	logger.Info("Threshold reset", zap.String("threshold", name), zap.Float64("value", t.CurrentValue))

	c.invalidate(ctx)
	return t, nil
}

// ResetMany resets each named threshold with its own call, so every reset
// yields its own history entry. A failure does not stop the remaining names.
func (c *Client) ResetMany(ctx context.Context, names []string, userID string) []ResetResult {
	results := make([]ResetResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			results = append(results, ResetResult{Name: name, Err: err})
			continue
		}
		t, err := c.Reset(ctx, name, userID)
		results = append(results, ResetResult{Name: name, Threshold: t, Err: err})
	}
	return results
}

// History returns the change log of one threshold in backend order. Any
// failure yields an empty history. Callers sort with
// models.SortHistoryNewestFirst when order matters.
func (c *Client) History(ctx context.Context, name string) gateway.Outcome[[]models.ThresholdHistoryEntry] {
	return gateway.WithFallback(ctx, "threshold_history",
		func(ctx context.Context) ([]models.ThresholdHistoryEntry, error) {
			var payload struct {
				History []models.ThresholdHistoryEntry `json:"history"`
			}
			err := c.gw.CallJSON(ctx, gateway.Request{
				Method:   http.MethodGet,
				Endpoint: "/thresholds/" + url.PathEscape(name) + "/history",
				Route:    "/thresholds/{name}/history",
			}, &payload)
			if err != nil {
				return nil, err
			}
			if payload.History == nil {
				payload.History = []models.ThresholdHistoryEntry{}
			}
			return payload.History, nil
		},
		func() []models.ThresholdHistoryEntry { return []models.ThresholdHistoryEntry{} },
	)
}

func (c *Client) userID(explicit string) (string, error) {
	userID := strings.TrimSpace(explicit)
	if userID == "" {
		userID = c.gw.DefaultUserID()
	}
	if userID == "" {
		return "", apierror.Validation("userId", "an acting user is required")
	}
	return userID, nil
}

func (c *Client) invalidate(ctx context.Context) {
	if err := c.cache.DeletePrefix(ctx, listKeyPrefix); err != nil {
		logger.Warn("Failed to drop cached thresholds", zap.Error(err))
	}
}

// invalidateOnRefusal drops cached lists when the backend answered with an
// error status, since the refusal may stem from state the cache no longer
// reflects. Transport failures leave the cache alone.
func (c *Client) invalidateOnRefusal(ctx context.Context, err error) {
	if apierror.StatusOf(err) != 0 {
		c.invalidate(ctx)
	}
}

func decodeThreshold(body []byte) (models.Threshold, error) {
	var wrapper struct {
		Threshold *models.Threshold `json:"threshold"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return models.Threshold{}, err
	}
	if wrapper.Threshold != nil {
		return *wrapper.Threshold, nil
	}

	var t models.Threshold
	if err := json.Unmarshal(body, &t); err != nil {
		return models.Threshold{}, err
	}
	if t.Name == "" {
		return models.Threshold{}, errors.New("response carries no threshold")
	}
	return t, nil
}

func classify(err error, name string) error {
	if apierror.StatusOf(err) == http.StatusNotFound {
		var failed *apierror.RequestFailedError
		errors.As(err, &failed)
		return &apierror.NotFoundError{Entity: "threshold", ID: name, Body: failed.Message()}
	}
	return err
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
