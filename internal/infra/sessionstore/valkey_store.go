package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

const (
	lockTTL             = 30 * time.Second
	defaultLockWait     = 20 * time.Millisecond
	defaultLockAttempts = 50
)

var errLockBusy = errors.New("session is locked by another update")

// releaseLock deletes the lock only if this caller still owns it.
var releaseLock = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ValkeyStore shares sessions across API replicas. Each Update holds a short
// per-session SET NX lock so transitions stay atomic.
type ValkeyStore struct {
	client       valkey.Client
	prefix       string
	lockWait     time.Duration
	lockAttempts int
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "predictor"
	}
	return &ValkeyStore{
		client:       client,
		prefix:       prefix,
		lockWait:     defaultLockWait,
		lockAttempts: defaultLockAttempts,
	}
}

// Create implements prediction.SessionStore.
func (s *ValkeyStore) Create(ctx context.Context, session prediction.Session, ttl time.Duration) error {
	return s.save(ctx, session, ttl)
}

// Get implements prediction.SessionStore.
func (s *ValkeyStore) Get(ctx context.Context, id string) (prediction.Session, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.sessionKey(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return prediction.Session{}, false, nil
		}
		return prediction.Session{}, false, err
	}
	var session prediction.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return prediction.Session{}, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return session, true, nil
}

// Update implements prediction.SessionStore.
func (s *ValkeyStore) Update(ctx context.Context, id string, ttl time.Duration, fn prediction.UpdateFunc) (prediction.Session, error) {
	token, err := s.acquire(ctx, id)
	if err != nil {
		return prediction.Session{}, err
	}
	defer s.release(context.WithoutCancel(ctx), id, token)

	current, ok, err := s.Get(ctx, id)
	if err != nil {
		return prediction.Session{}, err
	}
	if !ok {
		return prediction.Session{}, prediction.ErrSessionNotFound
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := s.save(ctx, next, ttl); err != nil {
		return current, err
	}
	return next, nil
}

func (s *ValkeyStore) acquire(ctx context.Context, id string) (string, error) {
	token := uuid.NewString()
	for attempt := 0; attempt < s.lockAttempts; attempt++ {
		// commands are recycled after Do, so build a fresh one per attempt
		cmd := s.client.B().Set().Key(s.lockKey(id)).Value(token).Nx().Ex(lockTTL).Build()
		err := s.client.Do(ctx, cmd).Error()
		if err == nil {
			return token, nil
		}
		if !valkey.IsValkeyNil(err) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.lockWait):
		}
	}
	return "", errLockBusy
}

func (s *ValkeyStore) release(ctx context.Context, id, token string) {
	_ = releaseLock.Exec(ctx, s.client, []string{s.lockKey(id)}, []string{token}).Error()
}

func (s *ValkeyStore) save(ctx context.Context, session prediction.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.sessionKey(session.ID)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

func (s *ValkeyStore) lockKey(id string) string {
	return fmt.Sprintf("%s:session:%s:lock", s.prefix, id)
}

var _ prediction.SessionStore = (*ValkeyStore)(nil)
