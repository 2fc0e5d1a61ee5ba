package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
)

type LessonImage struct {
  ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  LessonID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"lesson_id"`
  UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  SectionType string         `gorm:"column:section_type;not null" json:"section_type"`
  Prompt      string         `gorm:"column:prompt" json:"prompt"`
  StorageKey  string         `gorm:"column:storage_key;not null" json:"storage_key"`
  URL         string         `gorm:"column:url;not null" json:"url"`
  MimeType    string         `gorm:"column:mime_type" json:"mime_type"`
  Placeholder bool           `gorm:"column:placeholder;not null;default:false" json:"placeholder"`
  Error       string         `gorm:"column:error" json:"error,omitempty"`
  CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonImage) TableName() string { return "lesson_image" }
