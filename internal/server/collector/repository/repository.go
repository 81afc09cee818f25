package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/pubsub"
)

type Repository struct {
	DB  *gorm.DB
	Pub pubsub.Publisher
}

func NewRepository(db *gorm.DB, publisher pubsub.Publisher) *Repository {
	return &Repository{DB: db, Pub: publisher}
}

type IRepository interface {
	GetAgent(ctx context.Context, agentID string) (*models.AgentRecord, error)
	GetAgentBySite(ctx context.Context, site string) (*models.AgentRecord, error)
	CreateAgent(ctx context.Context, agent *models.AgentRecord) error
	UpdateAgent(ctx context.Context, agent *models.AgentRecord) error
	ListAgents(ctx context.Context) ([]models.AgentRecord, error)
	DeleteAgent(ctx context.Context, agentID string) error
	ApproveAgent(ctx context.Context, agentID, site string) (*models.AgentRecord, error)
	TouchLastSeen(ctx context.Context, agentID string, at time.Time) error

	GetSiteConfig(ctx context.Context, site string) (*models.SiteConfig, error)
	UpsertSiteConfig(ctx context.Context, cfg *models.SiteConfig) error

	UpsertReport(ctx context.Context, report *models.SiteReport) error
	GetLatestReport(ctx context.Context, site string) (*models.SiteReport, error)
	ListReports(ctx context.Context) ([]models.SiteReport, error)

	PublishAgentEvent(ctx context.Context, event string, agentID string, site string) error
}

func (r *Repository) GetAgent(ctx context.Context, agentID string) (*models.AgentRecord, error) {
	var agent models.AgentRecord
	if err := r.DB.WithContext(ctx).Where("agent_id = ?", agentID).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

func (r *Repository) GetAgentBySite(ctx context.Context, site string) (*models.AgentRecord, error) {
	var agent models.AgentRecord
	err := r.DB.WithContext(ctx).
		Where("site = ? AND approval_state = ?", site, models.ApprovalApproved).
		First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent by site: %w", err)
	}
	return &agent, nil
}

func (r *Repository) CreateAgent(ctx context.Context, agent *models.AgentRecord) error {
	if err := r.DB.WithContext(ctx).Create(agent).Error; err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

func (r *Repository) UpdateAgent(ctx context.Context, agent *models.AgentRecord) error {
	if err := r.DB.WithContext(ctx).Save(agent).Error; err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return nil
}

func (r *Repository) ListAgents(ctx context.Context) ([]models.AgentRecord, error) {
	var agents []models.AgentRecord
	if err := r.DB.WithContext(ctx).Order("created_at").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

func (r *Repository) DeleteAgent(ctx context.Context, agentID string) error {
	result := r.DB.WithContext(ctx).Where("agent_id = ?", agentID).Delete(&models.AgentRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete agent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ApproveAgent binds a pending agent to a site and mints its token. The
// whole decision runs in one transaction so two concurrent approvals can
// never claim the same site.
func (r *Repository) ApproveAgent(ctx context.Context, agentID, site string) (*models.AgentRecord, error) {
	var agent models.AgentRecord
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("agent_id = ?", agentID).First(&agent).Error; err != nil {
			return err
		}
		var holder models.AgentRecord
		err := tx.Where("site = ? AND approval_state = ? AND agent_id <> ?",
			site, models.ApprovalApproved, agentID).First(&holder).Error
		if err == nil {
			return fmt.Errorf("%w: site %q already assigned to agent %s",
				models.ErrConfigConflict, site, holder.AgentID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		token, err := generateSecureToken(32)
		if err != nil {
			return fmt.Errorf("failed to generate agent token: %w", err)
		}
		agent.Site = site
		agent.ApprovalState = models.ApprovalApproved
		agent.Token = token
		agent.UpdatedAt = time.Now().UTC()
		return tx.Save(&agent).Error
	})
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *Repository) TouchLastSeen(ctx context.Context, agentID string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.AgentRecord{}).
		Where("agent_id = ?", agentID).
		Update("last_seen", at).Error
}

func (r *Repository) GetSiteConfig(ctx context.Context, site string) (*models.SiteConfig, error) {
	var cfg models.SiteConfig
	if err := r.DB.WithContext(ctx).Where("site = ?", site).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get site config: %w", err)
	}
	return &cfg, nil
}

func (r *Repository) UpsertSiteConfig(ctx context.Context, cfg *models.SiteConfig) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "site"}},
		UpdateAll: true,
	}).Create(cfg).Error
	if err != nil {
		return fmt.Errorf("failed to store site config: %w", err)
	}
	return nil
}

// UpsertReport keeps only the latest report per site.
func (r *Repository) UpsertReport(ctx context.Context, report *models.SiteReport) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "site"}},
		UpdateAll: true,
	}).Create(report).Error
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (r *Repository) GetLatestReport(ctx context.Context, site string) (*models.SiteReport, error) {
	var report models.SiteReport
	if err := r.DB.WithContext(ctx).Where("site = ?", site).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

func (r *Repository) ListReports(ctx context.Context) ([]models.SiteReport, error) {
	var reports []models.SiteReport
	if err := r.DB.WithContext(ctx).Order("site").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// PublishAgentEvent notifies subscribers of approval and config changes.
// A nil publisher (Redis disabled) is a no-op. The event id is a UUID v7
// so subscribers can order and deduplicate deliveries.
func (r *Repository) PublishAgentEvent(ctx context.Context, event string, agentID string, site string) error {
	if r.Pub == nil {
		return nil
	}
	eventID := uuid.Must(uuid.NewV7()).String()
	payload := fmt.Sprintf(`{"event_id":%q,"event":%q,"agent_id":%q,"site":%q}`, eventID, event, agentID, site)
	return r.Pub.Publish(ctx, "sitewatch:agents", payload)
}

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
