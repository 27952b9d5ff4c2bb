package web

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inklet/inklet/internal/cache"
	"github.com/inklet/inklet/internal/db"
	"github.com/inklet/inklet/internal/models"
)

const userKey = "user"

// ErrNoSession is returned when a session token does not resolve to a
// signed-in user.
var ErrNoSession = errors.New("no session")

// SessionStore resolves opaque session tokens to user identifiers
type SessionStore interface {
	Create(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Get(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}

// NewSessionStore returns a redis-backed store when the cache is available
// and an in-process store otherwise.
func NewSessionStore(c *cache.Cache) SessionStore {
	if c != nil {
		return &redisSessions{cache: c}
	}
	return NewMemorySessions()
}

// redisSessions keeps session records in redis so they survive restarts
type redisSessions struct {
	cache *cache.Cache
}

func (s *redisSessions) Create(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := s.cache.Set("session:"+token, strconv.FormatInt(userID, 10), ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (s *redisSessions) Get(ctx context.Context, token string) (int64, error) {
	raw, err := s.cache.Get("session:" + token)
	if err != nil {
		return 0, ErrNoSession
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrNoSession
	}
	return id, nil
}

func (s *redisSessions) Delete(ctx context.Context, token string) error {
	return s.cache.Delete("session:" + token)
}

// MemorySessions is an in-process session store, used when redis is
// disabled and in handler tests.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
}

type memorySession struct {
	userID  int64
	expires time.Time
}

// NewMemorySessions creates an empty in-process session store
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]memorySession)}
}

func (s *MemorySessions) Create(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{userID: userID, expires: time.Now().Add(ttl)}
	return token, nil
}

func (s *MemorySessions) Get(ctx context.Context, token string) (int64, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || time.Now().After(sess.expires) {
		return 0, ErrNoSession
	}
	return sess.userID, nil
}

func (s *MemorySessions) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// sessionMiddleware resolves the session cookie to a user and stashes it in
// the request context. Missing or stale sessions just leave the request
// anonymous.
func sessionMiddleware(sessions SessionStore, users *db.UserRepository, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err == nil && token != "" {
			if id, err := sessions.Get(c.Request.Context(), token); err == nil {
				if user, err := users.GetByID(c.Request.Context(), id); err == nil && user != nil {
					c.Set(userKey, user)
				}
			}
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user for this request, or nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// requireAuth redirects anonymous requests to sign-in, preserving the
// requested path.
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			redirectToLogin(c)
			return
		}
		c.Next()
	}
}
