// internal/intake/store/session.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"transaction-intake/internal/common/database"
	stderrors "transaction-intake/internal/common/errors"
	"transaction-intake/internal/intake/draft"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "intake:session:"

// sessionState is the persisted shape of one wizard session.
type sessionState struct {
	SessionID string                 `json:"sessionId"`
	Draft     draft.TransactionDraft `json:"draft"`
	Step      int                    `json:"step"`
	UpdatedAt string                 `json:"updatedAt"`
}

// SessionStore persists wizard sessions in Redis so the stateless HTTP layer
// can pick a draft back up between requests. Each session expires after the
// configured TTL of inactivity.
type SessionStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewSessionStore(rdb *database.RedisClient, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: rdb, ttl: ttl}
}

// Create starts a fresh session and returns its id with a new store.
func (s *SessionStore) Create(ctx context.Context) (string, *Store, error) {
	sessionID := uuid.New().String()
	st := New()
	if err := s.Save(ctx, sessionID, st); err != nil {
		return "", nil, err
	}
	return sessionID, st, nil
}

// Load rebuilds the Store for a session id.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*Store, error) {
	raw, err := s.redis.Get(ctx, sessionKeyPrefix+sessionID)
	if err == redis.Nil {
		return nil, stderrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, stderrors.NewSessionStoreError(err.Error())
	}

	var state sessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, stderrors.NewSessionStoreError(fmt.Sprintf("corrupt session payload: %v", err))
	}
	if state.Draft.Documents == nil {
		state.Draft.Documents = map[string]bool{}
	}
	return FromState(state.Draft, state.Step), nil
}

// Save writes the session back and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, sessionID string, st *Store) error {
	state := sessionState{
		SessionID: sessionID,
		Draft:     st.Draft(),
		Step:      st.Step(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return stderrors.NewSessionStoreError(err.Error())
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+sessionID, payload, s.ttl); err != nil {
		return stderrors.NewSessionStoreError(err.Error())
	}
	return nil
}

// Delete drops the session entirely.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+sessionID); err != nil {
		return stderrors.NewSessionStoreError(err.Error())
	}
	return nil
}

// Count reports how many sessions are currently live. Expired keys are gone
// from Redis, so the count is exact at the time of the call.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	keys, err := s.redis.Keys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return 0, stderrors.NewSessionStoreError(err.Error())
	}
	return len(keys), nil
}

// TTL is the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}
