package memory

import (
	"sync"
	"time"

	"mirs-coach-be/pkg/mirs"

	"github.com/patrickmn/go-cache"
)

// ClassifierRepository keeps one classifier per scored conversation so the
// sticky category survives across turns without touching the database.
type ClassifierRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewClassifierRepository() *ClassifierRepository {
	// Default expiration of 1 hour, purge expired entries every 10 minutes.
	// An evicted classifier just means the next turn starts without a
	// remembered category.
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ClassifierRepository{
		cache: c,
	}
}

func key(userId, scoreId string) string {
	return userId + ":" + scoreId
}

// GetOrCreate returns the classifier for the conversation, building a fresh
// one via the factory when none is cached. Every hit refreshes the TTL.
func (r *ClassifierRepository) GetOrCreate(userId, scoreId string, create func() *mirs.Classifier) *mirs.Classifier {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(userId, scoreId)
	if x, found := r.cache.Get(k); found {
		r.cache.Set(k, x, cache.DefaultExpiration)
		return x.(*mirs.Classifier)
	}
	cl := create()
	r.cache.Set(k, cl, cache.DefaultExpiration)
	return cl
}

func (r *ClassifierRepository) Delete(userId, scoreId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(key(userId, scoreId))
}
