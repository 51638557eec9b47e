package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/perimeterhq/tenantd/internal/domain"
	"github.com/perimeterhq/tenantd/internal/metrics"
)

// Publisher pushes freshly written audit entries onto an operational event
// channel (live admin-console tail). Publishing is best effort and never
// fails the write path.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Service is the only writer of audit rows. It centralizes contextual
// enrichment so callers supply semantic fields only, and owns the retention
// policy.
type Service struct {
	repo   domain.AuditRepository
	events Publisher // nil when no event bus is configured
	logger zerolog.Logger
}

func NewService(repo domain.AuditRepository, events Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

// LogTenantEvent records one audit entry for a tenant lifecycle event.
// The event type must exist in the administered vocabulary; an unknown name
// aborts the write with domain.ErrInvalidEventType. details is serialized
// opaquely; a serialization failure is fatal to the call.
func (s *Service) LogTenantEvent(ctx context.Context, eventTypeName string, tenant *domain.Tenant, actorID string, details any) (*domain.AuditLog, error) {
	eventType, err := s.repo.GetEventTypeByName(ctx, eventTypeName)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("audit.LogTenantEvent: %q: %w", eventTypeName, domain.ErrInvalidEventType)
	}
	if err != nil {
		return nil, fmt.Errorf("audit.LogTenantEvent: resolve event type: %w", err)
	}

	entry := &domain.AuditLog{
		ID:          uuid.New(),
		EventTypeID: eventType.ID,
		EventType:   eventType.Name,
		TenantID:    tenant.ID,
		ActorID:     actorID,
		ActorType:   domain.ClassifyActor(actorID),
	}

	if meta, ok := RequestMetaFromContext(ctx); ok {
		entry.IPAddress = meta.ClientIP
		entry.UserAgent = meta.UserAgent
	}

	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("audit.LogTenantEvent: %w: %w", domain.ErrSerialization, err)
		}
		entry.Details = payload
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("audit.LogTenantEvent: %w: %w", domain.ErrAuditWrite, err)
	}

	metrics.AuditEventsTotal.WithLabelValues(entry.EventType).Inc()
	s.publish(ctx, entry)

	return entry, nil
}

func (s *Service) publish(ctx context.Context, entry *domain.AuditLog) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Msg("audit event publish: marshal")
		return
	}

	if err := s.events.Publish(ctx, AuditChannel(entry.TenantID), payload); err != nil {
		s.logger.Warn().Err(err).Str("tenant", entry.TenantID).Msg("audit event publish failed")
	}
}

// AuditChannel names the operational event channel for a tenant's audit
// stream.
func AuditChannel(tenantID string) string {
	return "audit:" + tenantID
}

// ExecuteRetentionPolicy bulk-deletes audit rows older than retentionDays
// and returns the count removed. retentionDays of 0 is an explicit
// purge-everything-before-now request, not an error.
func (s *Service) ExecuteRetentionPolicy(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("audit.ExecuteRetentionPolicy: retentionDays must be >= 0, got %d", retentionDays)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit.ExecuteRetentionPolicy: %w", err)
	}

	metrics.RetentionDeletedTotal.Add(float64(deleted))
	s.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("retention policy executed")

	return deleted, nil
}

// Read paths consumed by the administrative API. Page/size guards live here
// so every transport gets the same bounds.

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

func clampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]*domain.AuditLog, error) {
	logs, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("audit.ListByTenant: %w", err)
	}
	return logs, nil
}

func (s *Service) ListByTenantPaginated(ctx context.Context, tenantID string, from, to *time.Time, page, size int) ([]*domain.AuditLog, error) {
	page, size = clampPage(page, size)

	logs, err := s.repo.ListByTenantPaginated(ctx, tenantID, from, to, page, size)
	if err != nil {
		return nil, fmt.Errorf("audit.ListByTenantPaginated: %w", err)
	}
	return logs, nil
}

func (s *Service) ListByActorPaginated(ctx context.Context, actorID string, page, size int) ([]*domain.AuditLog, error) {
	page, size = clampPage(page, size)

	logs, err := s.repo.ListByActorPaginated(ctx, actorID, page, size)
	if err != nil {
		return nil, fmt.Errorf("audit.ListByActorPaginated: %w", err)
	}
	return logs, nil
}

func (s *Service) ListByEventTypePaginated(ctx context.Context, name string, page, size int) ([]*domain.AuditLog, error) {
	page, size = clampPage(page, size)

	logs, err := s.repo.ListByEventTypePaginated(ctx, name, page, size)
	if err != nil {
		return nil, fmt.Errorf("audit.ListByEventTypePaginated: %w", err)
	}
	return logs, nil
}

func (s *Service) ListEventTypes(ctx context.Context) ([]*domain.AuditEventType, error) {
	types, err := s.repo.ListEventTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit.ListEventTypes: %w", err)
	}
	return types, nil
}
