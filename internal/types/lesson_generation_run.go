package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type LessonGenerationRun struct {
  ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  LessonID      *uuid.UUID     `gorm:"type:uuid;index" json:"lesson_id,omitempty"`
  Status        string         `gorm:"column:status;not null;index" json:"status"` // queued|running|succeeded|failed
  Stage         string         `gorm:"column:stage;not null;index" json:"stage"`   // prompt|generate|normalize|quality|images|done
  Progress      int            `gorm:"column:progress;not null;default:0" json:"progress"`
  Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
  ModelAttempts int            `gorm:"column:model_attempts;not null;default:0" json:"model_attempts"`
  QualityPassed *bool          `gorm:"column:quality_passed" json:"quality_passed,omitempty"`
  Error         string         `gorm:"column:error" json:"error"`
  LastErrorAt   *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
  LockedAt      *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
  HeartbeatAt   *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
  Params        datatypes.JSON `gorm:"type:jsonb;column:params;not null" json:"params"`
  RepairNotes   datatypes.JSON `gorm:"type:jsonb;column:repair_notes" json:"repair_notes,omitempty"`
  QualityIssues datatypes.JSON `gorm:"type:jsonb;column:quality_issues" json:"quality_issues,omitempty"`
  Metadata      datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
  CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt     time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
  DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonGenerationRun) TableName() string { return "lesson_generation_run" }
