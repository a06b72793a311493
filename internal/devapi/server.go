// Package devapi is a self-contained review backend speaking the same HTTP
// contract as the production service. It backs local development and the
// end-to-end tests of the console clients.
package devapi

import (
	"errors"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/query"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

const Version = "1.0.0"

type Handler struct {
	store *Store
	llm   models.LLMSettings
}

func NewHandler(store *Store) *Handler {
	return &Handler{
		store: store,
		llm: models.LLMSettings{
			Enabled:             false,
			Mode:                "disabled",
			Model:               "",
			ConfidenceThreshold: 0.6,
		},
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r fiber.Router) {
	r.Get("/health", h.Health)
	r.Get("/llm/settings", h.LLMSettings)

	r.Get("/records", h.ListRecords)
	r.Get("/records/filter-options", h.FilterOptions)
	r.Get("/records/:id/audit-trail", h.AuditTrail)
	r.Post("/records/:id/approve", h.act(models.ActionApprove))
	r.Post("/records/:id/flag", h.act(models.ActionFlag))
	r.Post("/records/:id/override", h.act(models.ActionOverride))
	r.Post("/records/:id/reject", h.act(models.ActionReject))
	r.Post("/records/:id/reprocess", h.content(models.ActionReprocess))
	r.Put("/records/:id/content", h.content(models.ActionEdit))

	r.Get("/thresholds", h.ListThresholds)
	r.Put("/thresholds/:name", h.UpdateThreshold)
	r.Post("/thresholds/:name/reset", h.ResetThreshold)
	r.Get("/thresholds/:name/reset", h.ResetThreshold)
	r.Get("/thresholds/:name/history", h.ThresholdHistory)

	r.Post("/ingest/unified-upload", h.Upload)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(models.Health{Status: "healthy", Timestamp: time.Now().UTC(), Version: Version})
}

func (h *Handler) LLMSettings(c *fiber.Ctx) error {
	s := h.llm
	for _, t := range h.store.Thresholds("llm") {
		if t.Name == "llm_confidence_threshold" {
			s.ConfidenceThreshold = t.CurrentValue
		}
	}
	return c.JSON(s)
}

func (h *Handler) ListRecords(c *fiber.Ctx) error {
	values, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid query string")
	}

	filter, page, err := query.Parse(values)
	if err != nil {
		return detail(c, fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(h.store.ListRecords(filter, page))
}

func (h *Handler) FilterOptions(c *fiber.Ctx) error {
	return c.JSON(h.store.FilterOptions())
}

func (h *Handler) AuditTrail(c *fiber.Ctx) error {
	entries, err := h.store.AuditTrail(c.Params("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(entries)
}

type actionRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

func (h *Handler) act(action models.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req actionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return detail(c, fiber.StatusBadRequest, "Invalid request body")
			}
		}
		if strings.TrimSpace(req.UserID) == "" {
			return detail(c, fiber.StatusBadRequest, "user_id is required")
		}
		if action == models.ActionOverride && strings.TrimSpace(req.Reason) == "" {
			return detail(c, fiber.StatusBadRequest, "A reason is required to override a decision")
		}

		record, entry, err := h.store.Act(action, c.Params("id"), req.UserID, req.Reason)
		if err != nil {
			return storeError(c, err)
		}

		logger.Info("Record action applied",
			zap.String("record_id", record.ID),
			zap.String("action", string(action)),
			zap.String("status", string(record.Status)),
		)
		return c.JSON(fiber.Map{"record": record, "audit_entry": entry})
	}
}

type contentRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	UserID  string   `json:"user_id"`
	Reason  string   `json:"reason"`
}

func (h *Handler) content(action models.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req contentRequest
		if err := c.BodyParser(&req); err != nil {
			return detail(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(req.Content) == "" {
			return detail(c, fiber.StatusBadRequest, "content is required")
		}
		if strings.TrimSpace(req.UserID) == "" {
			return detail(c, fiber.StatusBadRequest, "user_id is required")
		}

		record, entry, err := h.store.ChangeContent(action, c.Params("id"), req.Content, req.Tags, req.UserID, req.Reason)
		if err != nil {
			return storeError(c, err)
		}
		return c.JSON(fiber.Map{"record": record, "audit_entry": entry})
	}
}

func (h *Handler) ListThresholds(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"thresholds": h.store.Thresholds(c.Query("category"))})
}

type updateRequest struct {
	ThresholdName string   `json:"threshold_name"`
	NewValue      *float64 `json:"new_value"`
	Reason        string   `json:"reason"`
	UserID        string   `json:"user_id"`
}

func (h *Handler) UpdateThreshold(c *fiber.Ctx) error {
	name := c.Params("name")

	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.NewValue == nil || math.IsNaN(*req.NewValue) || math.IsInf(*req.NewValue, 0) {
		return detail(c, fiber.StatusBadRequest, "new_value must be a finite number")
	}
	if req.ThresholdName != "" && req.ThresholdName != name {
		return detail(c, fiber.StatusBadRequest, "threshold_name does not match the path")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return detail(c, fiber.StatusBadRequest, "user_id is required")
	}

	t, old, err := h.store.UpdateThreshold(name, *req.NewValue, req.Reason, req.UserID)
	if err != nil {
		return storeError(c, err)
	}

	logger.Info("Threshold updated",
		zap.String("threshold", name),
		zap.Float64("old_value", old),
		zap.Float64("new_value", t.CurrentValue),
	)
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Threshold " + name + " updated",
		"threshold": t,
		"old_value": old,
		"new_value": t.CurrentValue,
	})
}

func (h *Handler) ResetThreshold(c *fiber.Ctx) error {
	var req actionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return detail(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if req.UserID == "" {
		req.UserID = c.Query("user_id", "system")
	}

	t, err := h.store.ResetThreshold(c.Params("name"), req.UserID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "threshold": t})
}

func (h *Handler) ThresholdHistory(c *fiber.Ctx) error {
	history, err := h.store.History(c.Params("name"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"history": history})
}

func storeError(c *fiber.Ctx, err error) error {
	var transition *transitionError
	var outOfRange *rangeError

	switch {
	case errors.Is(err, errRecordNotFound), errors.Is(err, errThresholdNotFound):
		return detail(c, fiber.StatusNotFound, err.Error())
	case errors.As(err, &transition):
		return detail(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &outOfRange):
		return detail(c, fiber.StatusBadRequest, err.Error())
	default:
		logger.Error("Unhandled store error", zap.Error(err))
		return detail(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}
