package api

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"stealth-swap/pkg/session"
)

// ErrSessionNotFound means the session expired or never existed
var ErrSessionNotFound = errors.New("session not found")

// Factory builds a fresh swap session
type Factory func() *session.Session

// Store keeps swap sessions in memory. Sessions expire after ttl without
// access.
type Store struct {
	cache   *cache.Cache
	factory Factory
	log     *zap.Logger
}

// NewStore creates an in-memory session store
func NewStore(ttl, cleanupInterval time.Duration, factory Factory, log *zap.Logger) *Store {
	log = log.Named("sessions")
	log.Info("Initialized go-cache for sessions",
		zap.Duration("ttl", ttl),
		zap.Duration("cleanupInterval", cleanupInterval),
	)

	c := cache.New(ttl, cleanupInterval)
	c.OnEvicted(func(id string, _ interface{}) {
		log.Debug("session evicted", zap.String("id", id))
	})

	return &Store{
		cache:   c,
		factory: factory,
		log:     log,
	}
}

// Create starts a new session and returns its identifier
func (s *Store) Create() (string, *session.Session) {
	id := uuid.New().String()
	sess := s.factory()
	s.cache.SetDefault(id, sess)

	s.log.Debug("session created", zap.String("id", id))
	return id, sess
}

// Get returns a live session and extends its lifetime
func (s *Store) Get(id string) (*session.Session, error) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, ErrSessionNotFound
	}

	sess, ok := x.(*session.Session)
	if !ok {
		s.log.Warn("session cache data type mismatch", zap.String("id", id))
		return nil, ErrSessionNotFound
	}

	s.cache.SetDefault(id, sess)
	return sess, nil
}

// Delete ends a session
func (s *Store) Delete(id string) error {
	if _, found := s.cache.Get(id); !found {
		return ErrSessionNotFound
	}
	s.cache.Delete(id)
	return nil
}

// Count returns the number of live sessions
func (s *Store) Count() int {
	return s.cache.ItemCount()
}
