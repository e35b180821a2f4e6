package service

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Compile-time check: *SessionStore must satisfy SessionInvalidator.
var _ SessionInvalidator = (*SessionStore)(nil)

// sessionScanCount is the SCAN page size for key enumeration.
const sessionScanCount = 200

// SessionStore revokes user sessions held in redis under
// session:<user>:<session-id>. Session issuance belongs to the external
// auth layer; this side only destroys.
type SessionStore struct {
	rdb *redis.Client
	log *logrus.Logger
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(rdb *redis.Client, log *logrus.Logger) *SessionStore {
	return &SessionStore{rdb: rdb, log: log}
}

// InvalidateUser deletes every session key belonging to the user. SCAN
// rather than KEYS so a large keyspace cannot block redis.
func (s *SessionStore) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	pattern := "session:" + userID.String() + ":*"

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, sessionScanCount).Result()
		if err != nil {
			return fmt.Errorf("scanning sessions: %w", err)
		}

		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("deleting sessions: %w", err)
			}
			removed += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if removed > 0 {
		s.log.WithFields(logrus.Fields{
			"user_id":  userID,
			"sessions": removed,
		}).Info("sessions invalidated")
	}

	return nil
}
