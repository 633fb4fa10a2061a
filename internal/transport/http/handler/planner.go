package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/metrics"
	"github.com/ankitojha2705/marketmind/internal/planner"
	"github.com/ankitojha2705/marketmind/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

const (
	streamBuffer      = 8
	heartbeatInterval = 25 * time.Second
)

type plannerRegistry interface {
	For(ctx context.Context, userID string) (*planner.Store, error)
}

type PlannerHandler struct {
	stores plannerRegistry
	now    func() time.Time
	logger *slog.Logger
}

func NewPlannerHandler(stores plannerRegistry, logger *slog.Logger) *PlannerHandler {
	return &PlannerHandler{
		stores: stores,
		now:    time.Now,
		logger: logger.With("component", "planner_handler"),
	}
}

// WithClock overrides the time used for pastDue and timeLeft.
func (h *PlannerHandler) WithClock(now func() time.Time) *PlannerHandler {
	h.now = now
	return h
}

// store returns the caller's planner. Routes are guarded, so a user is
// always present. When the planner cannot be loaded it writes a 503 and
// returns false.
func (h *PlannerHandler) store(c *gin.Context) (*planner.Store, bool) {
	user, _ := middleware.CurrentUser(c)
	s, err := h.stores.For(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "load planner", "error", err)
		fail(c, http.StatusServiceUnavailable, errPlannerUnavailable)
		return nil, false
	}
	return s, true
}

// GET /api/planner/state
func (h *PlannerHandler) State(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, store.State())
}

// GET /api/planner/campaigns
func (h *PlannerHandler) ListCampaigns(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": store.Campaigns()})
}

type createCampaignRequest struct {
	Name      string   `json:"name"      binding:"required"`
	Brief     string   `json:"brief"     binding:"required"`
	Platforms []string `json:"platforms" binding:"required,min=1,dive,required"`
}

var createCampaignRules = map[string]fieldRule{
	"Name":      {"name", "Please include a campaign name"},
	"Brief":     {"brief", "Please include a brief"},
	"Platforms": {"platforms", "Please select at least one platform"},
}

// POST /api/planner/campaigns
func (h *PlannerHandler) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if !bindJSON(c, &req, createCampaignRules) {
		return
	}

	in := planner.CreateCampaignInput{
		Name:  strings.TrimSpace(req.Name),
		Brief: strings.TrimSpace(req.Brief),
	}
	for _, p := range req.Platforms {
		if p = strings.TrimSpace(p); p != "" {
			in.Platforms = append(in.Platforms, p)
		}
	}

	var errs []fieldError
	for _, check := range []struct {
		empty bool
		rule  fieldRule
	}{
		{in.Name == "", createCampaignRules["Name"]},
		{in.Brief == "", createCampaignRules["Brief"]},
		{len(in.Platforms) == 0, createCampaignRules["Platforms"]},
	} {
		if check.empty {
			errs = append(errs, fieldError{Field: check.rule.field, Message: check.rule.message})
		}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": errs})
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}
	res := store.CreateCampaign(c.Request.Context(), in)
	c.JSON(http.StatusCreated, gin.H{"campaign": res.Campaign, "drafts": res.Drafts})
}

// draftView adds the dashboard's derived fields to scheduled drafts.
type draftView struct {
	domain.Draft
	PastDue  *bool  `json:"pastDue,omitempty"`
	TimeLeft string `json:"timeLeft,omitempty"`
}

func (h *PlannerHandler) view(d domain.Draft) draftView {
	v := draftView{Draft: d}
	if d.IsScheduled() {
		now := h.now()
		pastDue := planner.IsPastDue(d, now)
		v.PastDue = &pastDue
		v.TimeLeft = planner.TimeLeft(*d.ScheduledAt, now)
	}
	return v
}

// GET /api/planner/drafts?status=draft|scheduled
func (h *PlannerHandler) ListDrafts(c *gin.Context) {
	status := domain.DraftStatus(c.DefaultQuery("status", string(domain.DraftStatusDraft)))
	if status != domain.DraftStatusDraft && status != domain.DraftStatusScheduled {
		fail(c, http.StatusBadRequest, errInvalidStatus)
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}
	drafts := store.Drafts()
	if status == domain.DraftStatusScheduled {
		drafts = store.Scheduled()
	}

	out := make([]draftView, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, h.view(d))
	}
	c.JSON(http.StatusOK, gin.H{"drafts": out})
}

type scheduleRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
}

var scheduleRules = map[string]fieldRule{
	"ScheduledAt": {"scheduledAt", "Please provide a valid date and time"},
}

// POST /api/planner/drafts/:id/schedule
func (h *PlannerHandler) Schedule(c *gin.Context) {
	var req scheduleRequest
	if !bindJSON(c, &req, scheduleRules) {
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}
	d, err := store.ScheduleDraft(c.Request.Context(), c.Param("id"), req.ScheduledAt)
	h.respondDraft(c, d, err)
}

// DELETE /api/planner/drafts/:id/schedule
func (h *PlannerHandler) Unschedule(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	d, err := store.UnscheduleDraft(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, d, err)
}

func (h *PlannerHandler) respondDraft(c *gin.Context, d domain.Draft, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrDraftNotFound) {
			fail(c, http.StatusNotFound, errDraftNotFound)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "update draft", "error", err)
		fail(c, http.StatusInternalServerError, errInternalServer)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": h.view(d)})
}

// POST /api/planner/reset
func (h *PlannerHandler) Reset(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	store.ResetAll(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// GET /api/planner/events
// Streams the current state, then one "state" event per mutation until the
// client goes away. A slow client skips intermediate states but always ends
// up with the newest one.
func (h *PlannerHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	store, ok := h.store(c)
	if !ok {
		return
	}

	updates := make(chan domain.PlannerState, streamBuffer)
	unsubscribe := store.Subscribe(func(s domain.PlannerState) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			// full: drop the oldest and retry
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	metrics.PlannerStreamsActive.Inc()
	defer metrics.PlannerStreamsActive.Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("state", store.State())
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			c.SSEvent("state", s)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("ping", h.now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}
