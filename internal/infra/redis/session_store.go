package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/repository"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore keeps the live session for an open checkout dialog in Redis.
// Entries expire with the TTL; an abandoned checkout simply ages out, no
// explicit cleanup pass needed.
type SessionStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionStore(client RedisClient, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) key(id string) string {
	return fmt.Sprintf("checkout_session:%s", id)
}

func (s *SessionStore) Put(ctx context.Context, sess *model.PaymentSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sess.ID), data, s.ttl)
}

func (s *SessionStore) Get(ctx context.Context, id string) (*model.PaymentSession, error) {
	data, err := s.client.Get(ctx, s.key(id))
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	var sess model.PaymentSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id))
}
