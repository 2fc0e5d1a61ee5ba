package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type AICallLog struct {
  ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
  RunID     *uuid.UUID     `gorm:"type:uuid;index" json:"run_id,omitempty"`
  CallType  string         `gorm:"column:call_type;not null" json:"call_type"` // lesson_json|image
  Provider  string         `gorm:"column:provider;not null" json:"provider"`
  Model     string         `gorm:"column:model;not null" json:"model"`
  Attempt   int            `gorm:"column:attempt;not null;default:1" json:"attempt"`
  LatencyMS int64          `gorm:"column:latency_ms;not null;default:0" json:"latency_ms"`
  Prompt    string         `gorm:"column:prompt" json:"prompt"`
  Response  string         `gorm:"column:response" json:"response"`
  Success   bool           `gorm:"column:success;not null" json:"success"`
  Error     string         `gorm:"column:error" json:"error"`
  Usage     datatypes.JSON `gorm:"type:jsonb;column:usage" json:"usage"`
  CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (AICallLog) TableName() string { return "ai_call_log" }
