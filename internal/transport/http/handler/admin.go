package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/gin-gonic/gin"
)

type userFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

type AdminHandler struct {
	stores plannerRegistry
	users  userFinder
	logger *slog.Logger
}

func NewAdminHandler(stores plannerRegistry, users userFinder, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		stores: stores,
		users:  users,
		logger: logger.With("component", "admin_handler"),
	}
}

// POST /api/admin/planner/:userID/reset
func (h *AdminHandler) ResetPlanner(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userID")

	if _, err := h.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			fail(c, http.StatusNotFound, errUserNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "find user", "user_id", userID, "error", err)
		fail(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	store, err := h.stores.For(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "load planner", "user_id", userID, "error", err)
		fail(c, http.StatusServiceUnavailable, errPlannerUnavailable)
		return
	}
	store.ResetAll(ctx)
	h.logger.InfoContext(ctx, "planner reset by admin", "target_user_id", userID)
	c.Status(http.StatusNoContent)
}
