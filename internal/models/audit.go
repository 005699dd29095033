// internal/models/audit.go
package models

import "github.com/google/uuid"

// AuditLog records every mutating API request for operator forensics.
type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:255;not null"`
	ResourceType string     `json:"resource_type" gorm:"size:50"`
	ResourceID   string     `json:"resource_id" gorm:"size:64"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"size:255"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
}
