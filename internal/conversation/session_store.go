package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "call:session:"
	sessionTTL       = 24 * time.Hour
)

// SessionRegistry manages active call sessions in Redis so any instance
// can pick up the next turn of a call.
type SessionRegistry struct {
	rdb *redis.Client
}

// NewSessionRegistry creates a session registry backed by Redis.
func NewSessionRegistry(rdb *redis.Client) *SessionRegistry {
	return &SessionRegistry{rdb: rdb}
}

func sessionKey(callID string) string {
	return sessionKeyPrefix + callID
}

// Save persists or updates session state.
func (r *SessionRegistry) Save(ctx context.Context, session *Session) error {
	if session == nil || session.CallID == "" {
		return fmt.Errorf("session: call_id required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	return r.rdb.Set(ctx, sessionKey(session.CallID), data, sessionTTL).Err()
}

// Get retrieves session state. Returns nil, nil when the call is unknown
// or has expired.
func (r *SessionRegistry) Get(ctx context.Context, callID string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(callID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("session: get: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &session, nil
}

// Delete removes session state after the call record has been persisted.
func (r *SessionRegistry) Delete(ctx context.Context, callID string) error {
	return r.rdb.Del(ctx, sessionKey(callID)).Err()
}
