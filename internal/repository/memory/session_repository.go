package memory

import (
	"time"

	"github.com/patrickmn/go-cache"

	"ai-reading-be/pkg/reading"
)

// SessionRepository holds the live controller of every open reading session,
// keyed by persistence.Key(userID, documentID). Idle sessions expire after
// the TTL.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

// OnEvicted registers a callback for sessions that expire or are deleted.
func (r *SessionRepository) OnEvicted(fn func(key string, controller *reading.Controller)) {
	r.cache.OnEvicted(func(key string, v interface{}) {
		if c, ok := v.(*reading.Controller); ok {
			fn(key, c)
		}
	})
}

func (r *SessionRepository) Save(key string, controller *reading.Controller) {
	r.cache.Set(key, controller, cache.DefaultExpiration)
}

// Get returns the controller and extends its lifetime.
func (r *SessionRepository) Get(key string) (*reading.Controller, bool) {
	x, found := r.cache.Get(key)
	if !found {
		return nil, false
	}
	c := x.(*reading.Controller)
	r.cache.Set(key, c, cache.DefaultExpiration)
	return c, true
}

func (r *SessionRepository) Delete(key string) {
	r.cache.Delete(key)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
