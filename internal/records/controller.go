package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/cache"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/metrics"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/query"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/utils"
)

const pageKeyPrefix = "records:"

var defaultReasons = map[models.Action]string{
	models.ActionApprove:   "Approved during manual review",
	models.ActionFlag:      "Flagged during manual review",
	models.ActionReject:    "Rejected during manual review",
	models.ActionReprocess: "Content resubmitted for analysis",
	models.ActionEdit:      "Content edited during manual review",
}

// ActionOptions carries the acting user and an optional reason. When Current
// is set the transition is checked locally before any call is made.
type ActionOptions struct {
	UserID  string
	Reason  string
	Current models.Status
}

// ContentChange is the payload of edit and reprocess.
type ContentChange struct {
	Content string
	Tags    []string
	ActionOptions
}

// Result is the outcome of a successful lifecycle action.
type Result struct {
	Record models.Record     `json:"record"`
	Audit  models.AuditEntry `json:"audit_entry"`
}

type Controller struct {
	gw       *gateway.Gateway
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

type Option func(*Controller)

// WithCache keeps listed pages in c for ttl. Any successful action drops all
// cached pages.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(ctrl *Controller) {
		ctrl.cache = c
		ctrl.cacheTTL = ttl
	}
}

func NewController(gw *gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{gw: gw, cache: cache.Noop{}, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches one page of records matching filter.
func (c *Controller) List(ctx context.Context, filter models.Filter, page models.Pagination) (models.RecordPage, error) {
	q, err := query.Build(filter, page)
	if err != nil {
		return models.RecordPage{}, err
	}

	key := ""
	if digest, err := utils.CanonicalDigest(q); err == nil {
		key = pageKeyPrefix + digest
	}

	var out models.RecordPage
	if key != "" {
		if hit, err := c.cache.Get(ctx, key, &out); err != nil {
			logger.Debug("Record page cache read failed", zap.Error(err))
		} else if hit {
			return out, nil
		}
	}

	err = c.gw.CallJSON(ctx, gateway.Request{
		Method:   http.MethodGet,
		Endpoint: "/records",
		Query:    q,
	}, &out)
	if err != nil {
		return models.RecordPage{}, err
	}

	if out.Data == nil {
		out.Data = []models.Record{}
	}

	if key != "" {
		if err := c.cache.Set(ctx, key, out, c.cacheTTL); err != nil {
			logger.Debug("Record page cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

func (c *Controller) Approve(ctx context.Context, recordID string, opts ActionOptions) (*Result, error) {
	return c.transition(ctx, models.ActionApprove, recordID, opts)
}

func (c *Controller) Flag(ctx context.Context, recordID string, opts ActionOptions) (*Result, error) {
	return c.transition(ctx, models.ActionFlag, recordID, opts)
}

func (c *Controller) Reject(ctx context.Context, recordID string, opts ActionOptions) (*Result, error) {
	return c.transition(ctx, models.ActionReject, recordID, opts)
}

// Override forces a status change against the automated decision. The
// reason is mandatory.
func (c *Controller) Override(ctx context.Context, recordID string, opts ActionOptions) (*Result, error) {
	if strings.TrimSpace(opts.Reason) == "" {
		return nil, apierror.Validation("reason", "override requires a reason")
	}
	return c.transition(ctx, models.ActionOverride, recordID, opts)
}

// Reprocess replaces content and tags and asks the analysis engine to score
// the record again. The resulting status is whatever the new checks decide.
func (c *Controller) Reprocess(ctx context.Context, recordID string, change ContentChange) (*Result, error) {
	return c.changeContent(ctx, models.ActionReprocess, http.MethodPost, "reprocess", recordID, change)
}

// EditContent persists edited content and tags without reprocessing.
func (c *Controller) EditContent(ctx context.Context, recordID string, change ContentChange) (*Result, error) {
	return c.changeContent(ctx, models.ActionEdit, http.MethodPut, "content", recordID, change)
}

// AuditTrail returns a record's review history in backend order.
func (c *Controller) AuditTrail(ctx context.Context, recordID string) ([]models.AuditEntry, error) {
	if err := validateID(recordID); err != nil {
		return nil, err
	}

	var entries []models.AuditEntry
	err := c.gw.CallJSON(ctx, gateway.Request{
		Method:   http.MethodGet,
		Endpoint: "/records/" + url.PathEscape(recordID) + "/audit-trail",
		Route:    "/records/{id}/audit-trail",
	}, &entries)
	if err != nil {
		return nil, classify(err, recordID, "read audit trail of", "")
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}

type actionBody struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

type contentBody struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	UserID  string   `json:"user_id"`
	Reason  string   `json:"reason,omitempty"`
}

func (c *Controller) transition(ctx context.Context, action models.Action, recordID string, opts ActionOptions) (*Result, error) {
	userID, reason, err := c.prepare(action, recordID, opts)
	if err != nil {
		return nil, err
	}

	req := gateway.Request{
		Method:   http.MethodPost,
		Endpoint: "/records/" + url.PathEscape(recordID) + "/" + string(action),
		Route:    "/records/{id}/" + string(action),
		Body:     actionBody{UserID: userID, Reason: reason},
	}
	return c.execute(ctx, action, recordID, userID, reason, opts.Current, req)
}

func (c *Controller) changeContent(ctx context.Context, action models.Action, method, suffix, recordID string, change ContentChange) (*Result, error) {
	userID, reason, err := c.prepare(action, recordID, change.ActionOptions)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(change.Content) == "" {
		return nil, apierror.Validation("content", "must not be empty")
	}

	req := gateway.Request{
		Method:   method,
		Endpoint: "/records/" + url.PathEscape(recordID) + "/" + suffix,
		Route:    "/records/{id}/" + suffix,
		Body: contentBody{
			Content: change.Content,
			Tags:    models.NormalizeTags(change.Tags),
			UserID:  userID,
			Reason:  reason,
		},
	}
	return c.execute(ctx, action, recordID, userID, reason, change.Current, req)
}

// prepare resolves the acting user and reason and runs every local check.
func (c *Controller) prepare(action models.Action, recordID string, opts ActionOptions) (string, string, error) {
	if err := validateID(recordID); err != nil {
		return "", "", err
	}

	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		userID = c.gw.DefaultUserID()
	}
	if userID == "" {
		return "", "", apierror.Validation("userId", "an acting user is required")
	}

	reason := strings.TrimSpace(opts.Reason)
	if reason == "" {
		reason = defaultReasons[action]
	}

	if opts.Current != "" {
		if _, ok := models.Transition(action, opts.Current); !ok {
			metrics.RecordTransitions.WithLabelValues(string(action), "invalid_transition").Inc()
			return "", "", &apierror.InvalidTransitionError{
				RecordID: recordID,
				From:     string(opts.Current),
				Action:   string(action),
			}
		}
	}

	return userID, reason, nil
}

func (c *Controller) execute(ctx context.Context, action models.Action, recordID, userID, reason string, current models.Status, req gateway.Request) (*Result, error) {
	resp, err := c.gw.Call(ctx, req)
	if err != nil {
		// A refusal means the backend state may differ from any cached page.
		if apierror.StatusOf(err) != 0 {
			c.invalidate(ctx)
		}
		err = classify(err, recordID, string(action), current)
		metrics.RecordTransitions.WithLabelValues(string(action), apierror.Kind(err)).Inc()
		return nil, err
	}

	result, err := decodeResult(resp.Body)
	if err != nil {
		metrics.RecordTransitions.WithLabelValues(string(action), "internal").Inc()
		return nil, fmt.Errorf("failed to decode %s response for record %q: %w", action, recordID, err)
	}

	if result.Audit.Action == "" {
		result.Audit = c.synthesizeAudit(action, recordID, userID, reason, result.Record)
	}

	metrics.RecordTransitions.WithLabelValues(string(action), "success").Inc()
	logger.Info("Record action applied",
		zap.String("record_id", recordID),
		zap.String("action", string(action)),
		zap.String("user_id", userID),
		zap.String("status", string(result.Record.Status)),
	)

	c.invalidate(ctx)
	return result, nil
}

// decodeResult accepts the {record, audit_entry} wrapper or a bare record.
func decodeResult(body []byte) (*Result, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty response body")
	}

	var wrapper struct {
		Record     *models.Record     `json:"record"`
		AuditEntry *models.AuditEntry `json:"audit_entry"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, err
	}

	result := &Result{}
	switch {
	case wrapper.Record != nil:
		result.Record = *wrapper.Record
	default:
		if err := json.Unmarshal(body, &result.Record); err != nil {
			return nil, err
		}
		if result.Record.ID == "" && result.Record.RecordID == "" {
			return nil, errors.New("response carries no record")
		}
	}
	if wrapper.AuditEntry != nil {
		result.Audit = *wrapper.AuditEntry
	}
	if result.Record.Tags == nil {
		result.Record.Tags = []string{}
	}
	return result, nil
}

func (c *Controller) synthesizeAudit(action models.Action, recordID, userID, reason string, record models.Record) models.AuditEntry {
	ts := record.UpdatedAt
	if ts.IsZero() {
		ts = c.now().UTC()
	}
	id := record.RecordID
	if id == "" {
		id = recordID
	}
	return models.AuditEntry{
		RecordID:  id,
		Action:    action,
		UserID:    userID,
		Reason:    reason,
		Timestamp: ts,
		Status:    record.Status,
	}
}

func (c *Controller) invalidate(ctx context.Context) {
	if err := c.cache.DeletePrefix(ctx, pageKeyPrefix); err != nil {
		logger.Warn("Failed to drop cached record pages", zap.Error(err))
	}
}

// classify maps backend statuses onto the lifecycle error kinds. The backend
// message is kept verbatim.
func classify(err error, recordID, action string, current models.Status) error {
	var failed *apierror.RequestFailedError
	if !errors.As(err, &failed) {
		return err
	}

	switch failed.StatusCode {
	case http.StatusNotFound:
		return &apierror.NotFoundError{Entity: "record", ID: recordID, Body: failed.Message()}
	case http.StatusConflict:
		return &apierror.InvalidTransitionError{
			RecordID: recordID,
			From:     string(current),
			Action:   action,
			Body:     failed.Message(),
		}
	default:
		return err
	}
}

func validateID(recordID string) error {
	if strings.TrimSpace(recordID) == "" {
		return apierror.Validation("recordId", "must not be empty")
	}
	return nil
}
