package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the caller's context together with an optional GORM
// transaction. Repos run against Tx when it is set, otherwise against the
// shared connection.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
