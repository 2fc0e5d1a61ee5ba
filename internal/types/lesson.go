package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type Lesson struct {
  ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  StudentID     *uuid.UUID     `gorm:"type:uuid;index" json:"student_id,omitempty"`
  Title         string         `gorm:"column:title;not null" json:"title"`
  Level         string         `gorm:"column:level;not null;index" json:"level"`
  Focus         string         `gorm:"column:focus" json:"focus"`
  EstimatedTime int            `gorm:"column:estimated_time;not null;default:60" json:"estimated_time"`
  Topic         string         `gorm:"column:topic" json:"topic"`
  QualityPassed bool           `gorm:"column:quality_passed;not null;default:false;index" json:"quality_passed"`
  Content       datatypes.JSON `gorm:"type:jsonb;column:content;not null" json:"content"`
  RepairNotes   datatypes.JSON `gorm:"type:jsonb;column:repair_notes" json:"repair_notes,omitempty"`
  ContentHash   string         `gorm:"column:content_hash;index" json:"content_hash"`
  CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt     time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
  DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
