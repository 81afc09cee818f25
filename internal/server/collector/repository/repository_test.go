package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/database"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewRepository(db, nil)
}

func seedAgent(t *testing.T, r *Repository, agentID string) {
	t.Helper()
	now := time.Now().UTC()
	err := r.CreateAgent(context.Background(), &models.AgentRecord{
		AgentID:       agentID,
		Hostname:      "host-" + agentID,
		ApprovalState: models.ApprovalPending,
		LastSeen:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("failed to seed agent: %v", err)
	}
}

func TestGetAgentMissingReturnsNil(t *testing.T) {
	r := newTestRepo(t)
	agent, err := r.GetAgent(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent != nil {
		t.Fatalf("expected nil for unknown agent, got %+v", agent)
	}
}

func TestApproveAgentAssignsSiteAndToken(t *testing.T) {
	r := newTestRepo(t)
	seedAgent(t, r, "agent-1")

	agent, err := r.ApproveAgent(context.Background(), "agent-1", "loja-centro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent.ApprovalState != models.ApprovalApproved {
		t.Fatalf("expected approved state, got %s", agent.ApprovalState)
	}
	if agent.Site != "loja-centro" {
		t.Fatalf("expected site bound, got %q", agent.Site)
	}
	if len(agent.Token) != 64 {
		t.Fatalf("expected 64-char hex token, got %q", agent.Token)
	}
}

func TestApproveAgentConflictsOnTakenSite(t *testing.T) {
	r := newTestRepo(t)
	seedAgent(t, r, "agent-1")
	seedAgent(t, r, "agent-2")
	ctx := context.Background()

	if _, err := r.ApproveAgent(ctx, "agent-1", "galpao"); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	_, err := r.ApproveAgent(ctx, "agent-2", "galpao")
	if !errors.Is(err, models.ErrConfigConflict) {
		t.Fatalf("expected site conflict, got %v", err)
	}

	// The losing agent is untouched.
	agent, _ := r.GetAgent(ctx, "agent-2")
	if agent.ApprovalState != models.ApprovalPending {
		t.Fatalf("conflicting approval must not change state, got %s", agent.ApprovalState)
	}
}

func TestApproveAgentIsIdempotentForSameAgent(t *testing.T) {
	r := newTestRepo(t)
	seedAgent(t, r, "agent-1")
	ctx := context.Background()

	if _, err := r.ApproveAgent(ctx, "agent-1", "galpao"); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	if _, err := r.ApproveAgent(ctx, "agent-1", "galpao"); err != nil {
		t.Fatalf("re-approving the holder must not conflict: %v", err)
	}
}

func TestApproveUnknownAgent(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.ApproveAgent(context.Background(), "ghost", "galpao")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestUpsertReportKeepsOnlyLatest(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	first := &models.SiteReport{Site: "galpao", AgentID: "agent-1", ReceivedAt: time.Now().UTC()}
	if err := first.SetReport(&models.Report{AgentID: "agent-1", Site: "galpao", AgentVersion: "1.0.0"}); err != nil {
		t.Fatal(err)
	}
	if err := r.UpsertReport(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &models.SiteReport{Site: "galpao", AgentID: "agent-1", ReceivedAt: time.Now().UTC()}
	if err := second.SetReport(&models.Report{AgentID: "agent-1", Site: "galpao", AgentVersion: "2.0.0"}); err != nil {
		t.Fatal(err)
	}
	if err := r.UpsertReport(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	reports, err := r.ListReports(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected one report row per site, got %d", len(reports))
	}

	stored, err := reports[0].Report()
	if err != nil {
		t.Fatalf("failed to decode stored report: %v", err)
	}
	if stored.AgentVersion != "2.0.0" {
		t.Fatalf("expected latest report retained, got version %s", stored.AgentVersion)
	}
}

func TestSiteConfigUpsertOverwrites(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	cfg := &models.SiteConfig{Site: "galpao", IntervalSeconds: 5}
	if err := cfg.SetCameras([]models.Camera{{ID: "c1", IP: "10.0.0.1"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.UpsertSiteConfig(ctx, cfg); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	cfg2 := &models.SiteConfig{Site: "galpao", IntervalSeconds: 60}
	if err := cfg2.SetCameras([]models.Camera{{ID: "c2", IP: "10.0.0.2"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.UpsertSiteConfig(ctx, cfg2); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := r.GetSiteConfig(ctx, "galpao")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.IntervalSeconds != 60 {
		t.Fatalf("expected overwritten interval, got %d", got.IntervalSeconds)
	}
	cams, _ := got.Cameras()
	if len(cams) != 1 || cams[0].ID != "c2" {
		t.Fatalf("expected overwritten cameras, got %+v", cams)
	}
}

func TestDeleteAgent(t *testing.T) {
	r := newTestRepo(t)
	seedAgent(t, r, "agent-1")
	ctx := context.Background()

	if err := r.DeleteAgent(ctx, "agent-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := r.DeleteAgent(ctx, "agent-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found on double delete, got %v", err)
	}
}

func TestTouchLastSeen(t *testing.T) {
	r := newTestRepo(t)
	seedAgent(t, r, "agent-1")
	ctx := context.Background()

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	if err := r.TouchLastSeen(ctx, "agent-1", at); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	agent, _ := r.GetAgent(ctx, "agent-1")
	if !agent.LastSeen.Equal(at) {
		t.Fatalf("expected last_seen %v, got %v", at, agent.LastSeen)
	}
}
