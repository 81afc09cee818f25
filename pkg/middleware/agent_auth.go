package middleware

import (
	"net/http"

	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/logger"
	"github.com/rfcampos/sitewatch/pkg/wrapper"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const AgentIDContextKey = "agent_id"

// HeaderAgentToken is the token header agents send on site-scoped calls.
const HeaderAgentToken = "X-Agent-Token"

// AgentTokenAuth guards the site-scoped agent endpoints. The check is
// advisory: when the approved agent for the site has no token assigned,
// requests are accepted unconditionally so an unauthenticated development
// setup keeps working.
//
// A site with no approved agent gets 401 rather than an empty config: a
// pending agent has no site yet and never calls these endpoints, so the
// only requests that land here with an unknown site are misaddressed or
// unauthorized ones, and rejecting them avoids disclosing which site
// names exist.
func AgentTokenAuth(db *gorm.DB, log *logger.CanonicalLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		site := c.Params("site")
		if site == "" {
			return c.Status(fiber.StatusBadRequest).JSON(wrapper.ResponseFailed(http.StatusBadRequest, "missing site", nil))
		}

		var agent models.AgentRecord
		err := db.Where("site = ? AND approval_state = ?", site, models.ApprovalApproved).First(&agent).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				log.Debug("no approved agent for site",
					zap.String("site", site),
					zap.String("path", c.Path()),
				)
				return c.Status(fiber.StatusUnauthorized).JSON(wrapper.ResponseFailed(http.StatusUnauthorized, "unknown site", nil))
			}

			log.Error("database error during agent lookup",
				zap.Error(err),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(wrapper.ResponseFailed(http.StatusInternalServerError, "authentication failed", nil))
		}

		if agent.Token != "" && c.Get(HeaderAgentToken) != agent.Token {
			log.Debug("invalid agent token",
				zap.String("site", site),
				zap.String("ip", c.IP()),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(wrapper.ResponseFailed(http.StatusUnauthorized, "invalid agent token", nil))
		}

		c.Locals(AgentIDContextKey, agent.AgentID)

		return c.Next()
	}
}
