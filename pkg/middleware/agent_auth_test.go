package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/database"
	"github.com/rfcampos/sitewatch/pkg/logger"
)

func newAuthApp(t *testing.T, token string) *fiber.App {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	err = db.Create(&models.AgentRecord{
		AgentID:       "agent-1",
		Hostname:      "PC-07",
		Site:          "galpao",
		ApprovalState: models.ApprovalApproved,
		Token:         token,
		LastSeen:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	app.Get("/api/agents/:site/config", AgentTokenAuth(db, logger.NewNop()), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"agent_id": c.Locals(AgentIDContextKey)})
	})
	return app
}

func TestAgentTokenAuthAcceptsValidToken(t *testing.T) {
	app := newAuthApp(t, "secret")

	req := httptest.NewRequest("GET", "/api/agents/galpao/config", nil)
	req.Header.Set(HeaderAgentToken, "secret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAgentTokenAuthRejectsWrongToken(t *testing.T) {
	app := newAuthApp(t, "secret")

	req := httptest.NewRequest("GET", "/api/agents/galpao/config", nil)
	req.Header.Set(HeaderAgentToken, "wrong")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAgentTokenAuthAdvisoryWhenNoTokenAssigned(t *testing.T) {
	app := newAuthApp(t, "")

	// No token assigned yet: any request for the site is accepted.
	req := httptest.NewRequest("GET", "/api/agents/galpao/config", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAgentTokenAuthUnknownSite(t *testing.T) {
	app := newAuthApp(t, "secret")

	req := httptest.NewRequest("GET", "/api/agents/nowhere/config", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for site without approved agent, got %d", resp.StatusCode)
	}
}
