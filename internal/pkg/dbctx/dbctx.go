package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction so a
// service method can join a caller-owned transaction or fall back to the pool.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
