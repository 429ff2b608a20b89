package repository

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Token store backends selectable through RESET_TOKEN_STORE
const (
	TokenStoreDatabase = "database"
	TokenStoreRedis    = "redis"
	TokenStoreMemory   = "memory"
)

// NewPasswordResetStore builds the configured backend. rdb is only used for the redis backend.
func NewPasswordResetStore(kind string, db *gorm.DB, rdb redis.UniversalClient, opts PasswordResetOptions) (PasswordResetRepository, error) {
	switch kind {
	case TokenStoreDatabase, "":
		if db == nil {
			return nil, fmt.Errorf("database token store needs a database connection")
		}
		return NewPasswordResetRepository(db, opts), nil
	case TokenStoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis token store needs a redis client")
		}
		return NewRedisPasswordResetRepository(rdb, opts.Clock), nil
	case TokenStoreMemory:
		return NewMemoryPasswordResetRepository(opts.Clock), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", kind)
	}
}
