package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/planner"
	"github.com/ankitojha2705/marketmind/internal/transport/http/handler"
	"github.com/ankitojha2705/marketmind/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func newAdminEngine(reg *planner.Registry) *gin.Engine {
	h := handler.NewAdminHandler(reg, usersByID(), discard())
	r := gin.New()
	admin := r.Group("/api/admin", testAuth(), middleware.RequireRole(domain.RoleAdmin))
	admin.POST("/planner/:userID/reset", h.ResetPlanner)
	return r
}

func TestAdminResetPlanner(t *testing.T) {
	reg := planner.NewRegistry(planner.NewMemorySnapshots(), discard())
	storeFor(t, reg, "user-1").CreateCampaign(context.Background(), planner.CreateCampaignInput{
		Name: "n", Brief: "b", Platforms: []string{"x"},
	})

	w := doJSON(newAdminEngine(reg), http.MethodPost, "/api/admin/planner/user-1/reset", "admin-1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if n := len(storeFor(t, reg, "user-1").State().Campaigns); n != 0 {
		t.Errorf("campaigns = %d, want 0", n)
	}
}

func TestAdminResetPlanner_NonAdmin_Returns403(t *testing.T) {
	reg := planner.NewRegistry(planner.NewMemorySnapshots(), discard())

	w := doJSON(newAdminEngine(reg), http.MethodPost, "/api/admin/planner/user-2/reset", "user-1", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestAdminResetPlanner_UnknownUser_Returns404(t *testing.T) {
	reg := planner.NewRegistry(planner.NewMemorySnapshots(), discard())

	w := doJSON(newAdminEngine(reg), http.MethodPost, "/api/admin/planner/ghost-1/reset", "admin-1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAdminResetPlanner_SnapshotStoreDown_Returns503(t *testing.T) {
	reg := planner.NewRegistry(unavailableSnapshots{}, discard())

	w := doJSON(newAdminEngine(reg), http.MethodPost, "/api/admin/planner/user-1/reset", "admin-1", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
