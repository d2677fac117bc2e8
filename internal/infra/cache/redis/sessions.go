package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "hostelfinder/internal/domain/auth"
	domainuser "hostelfinder/internal/domain/user"
)

const (
	sessionKeyPrefix     = "hostelfinder:session:"
	userSessionKeyPrefix = "hostelfinder:user_sessions:"
	defaultGrace         = 10 * time.Minute
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// SessionStore keeps sessions as JSON values. Keys outlive the session by
// Grace so that an expired session can still be observed and reported.
type SessionStore struct {
	Client *redis.Client
	Grace  time.Duration
	Now    func() time.Time
}

type sessionValue struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil || session.Token == "" {
		return domainauth.ErrTokenRequired
	}
	payload, err := json.Marshal(sessionValue{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return err
	}
	ttl := session.TTL(s.now()) + s.grace()
	userKey := userSessionKeyPrefix + string(session.UserID)
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+string(session.Token), payload, ttl)
		pipe.SAdd(ctx, userKey, string(session.Token))
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	return err
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	raw, err := s.Client.Get(ctx, sessionKeyPrefix+string(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var value sessionValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}
	return &domainauth.Session{
		Token:     domainauth.Token(value.Token),
		UserID:    domainuser.ID(value.UserID),
		CreatedAt: value.CreatedAt.UTC(),
		ExpiresAt: value.ExpiresAt.UTC(),
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	session, err := s.Get(ctx, token)
	if errors.Is(err, domainauth.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKeyPrefix+string(token))
		pipe.SRem(ctx, userSessionKeyPrefix+string(session.UserID), string(token))
		return nil
	})
	return err
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	userKey := userSessionKeyPrefix + string(userID)
	tokens, err := s.Client.SMembers(ctx, userKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKeyPrefix+token)
	}
	keys = append(keys, userKey)
	return s.Client.Del(ctx, keys...).Err()
}

func (s *SessionStore) grace() time.Duration {
	if s.Grace > 0 {
		return s.Grace
	}
	return defaultGrace
}

func (s *SessionStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
