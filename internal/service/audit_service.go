package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/J3ZZ3/empcare/internal/model"
	"github.com/J3ZZ3/empcare/internal/repository"

	"gorm.io/datatypes"
)

// --- DTOs ---

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     *string         `json:"user_id"`
	UserName   string          `json:"user_name"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  string          `json:"created_at"`
}

// --- Interface ---

type AuditService interface {
	ListAuditLogs(ctx context.Context, filter repository.AuditFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) ListAuditLogs(ctx context.Context, filter repository.AuditFilter) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		entry := AuditLogResponse{
			ID:         l.ID.String(),
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    json.RawMessage(l.Details),
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		}
		if l.UserID != nil {
			id := l.UserID.String()
			entry.UserID = &id
		}
		if l.User != nil {
			entry.UserName = l.User.FullName
		}
		res = append(res, entry)
	}
	return res, total, nil
}

// auditEntry builds the audit row every mutating service writes inside its
// transaction.
func auditEntry(actor Actor, action, entityID, entityName string, details map[string]interface{}) *model.AuditLog {
	payload, _ := json.Marshal(details)
	actorID := actor.ID
	return &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    datatypes.JSON(payload),
	}
}
