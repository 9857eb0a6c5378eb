package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/crmdesk/crm-service/internal/domain"
)

// AgentLoader fetches an agent from the backing store.
type AgentLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
}

// AgentCache keeps recently authenticated agents in memory so that every request
// does not hit Postgres for the principal lookup.
type AgentCache struct {
	loader AgentLoader
	lru    *expirable.LRU[string, domain.Agent]
}

// NewAgentCache builds a cache with the given capacity and entry TTL.
func NewAgentCache(loader AgentLoader, size int, ttl time.Duration) *AgentCache {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AgentCache{
		loader: loader,
		lru:    expirable.NewLRU[string, domain.Agent](size, nil, ttl),
	}
}

// Get returns a copy of the cached agent or loads it.
func (c *AgentCache) Get(ctx context.Context, id string) (*domain.Agent, error) {
	if agent, ok := c.lru.Get(id); ok {
		return &agent, nil
	}
	agent, err := c.loader.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.lru.Add(id, *agent)
	return agent, nil
}

// Invalidate drops an agent after a profile or permission change.
func (c *AgentCache) Invalidate(id string) {
	c.lru.Remove(id)
}

// Len reports the number of live entries.
func (c *AgentCache) Len() int {
	return c.lru.Len()
}
