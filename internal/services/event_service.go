// internal/services/event_service.go
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sampledhq/sampled-backend/internal/models"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

// EventService persists ledger events for off-chain style indexers. Events
// are emitted after the owning transaction commits, so a consumer never sees
// an event for state that was rolled back.
type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

// Emit records an event asynchronously. Failures are logged and never
// propagate to the caller; the ledger state is already committed.
func (s *EventService) Emit(eventType string, payload map[string]interface{}) {
	go func() {
		if err := s.emit(eventType, payload); err != nil {
			logrus.WithError(err).WithField("event_type", eventType).Error("Failed to persist ledger event")
		}
	}()
}

func (s *EventService) emit(eventType string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	sum := sha256.Sum256(append([]byte(eventType+":"), data...))

	event := &models.LedgerEvent{
		Type:      eventType,
		Payload:   models.JSONB(payload),
		Hash:      hex.EncodeToString(sum[:]),
		CreatedAt: time.Now(),
	}

	return s.db.Create(event).Error
}

// GetEvents returns the event feed, newest first, optionally filtered by type.
func (s *EventService) GetEvents(eventType string, params utils.PaginationParams) ([]models.LedgerEvent, int64, error) {
	query := s.db.Model(&models.LedgerEvent{})
	if eventType != "" {
		query = query.Where("type = ?", eventType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	var events []models.LedgerEvent
	offset := (params.Page - 1) * params.Limit
	if err := query.Order("id DESC").Offset(offset).Limit(params.Limit).Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch events: %w", err)
	}

	return events, total, nil
}
