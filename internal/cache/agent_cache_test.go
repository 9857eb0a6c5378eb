package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/crm-service/internal/domain"
)

type countingLoader struct {
	calls  int
	agents map[string]domain.Agent
}

func (l *countingLoader) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	l.calls++
	a, ok := l.agents[id]
	if !ok {
		return nil, errors.New("missing")
	}
	return &a, nil
}

func TestAgentCacheHitsAfterFirstLoad(t *testing.T) {
	loader := &countingLoader{agents: map[string]domain.Agent{"a1": {ID: "a1", AgentType: domain.AgentTypeSales}}}
	c := NewAgentCache(loader, 8, time.Minute)

	first, err := c.Get(context.Background(), "a1")
	require.NoError(t, err)
	second, err := c.Get(context.Background(), "a1")
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, c.Len())
}

func TestAgentCacheReturnsCopies(t *testing.T) {
	loader := &countingLoader{agents: map[string]domain.Agent{"a1": {ID: "a1", Name: "Ana"}}}
	c := NewAgentCache(loader, 8, time.Minute)

	a, err := c.Get(context.Background(), "a1")
	require.NoError(t, err)
	a.Name = "changed"

	b, err := c.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", b.Name)
}

func TestAgentCacheInvalidate(t *testing.T) {
	loader := &countingLoader{agents: map[string]domain.Agent{"a1": {ID: "a1"}}}
	c := NewAgentCache(loader, 8, time.Minute)

	_, err := c.Get(context.Background(), "a1")
	require.NoError(t, err)
	c.Invalidate("a1")
	_, err = c.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestAgentCacheDoesNotStoreErrors(t *testing.T) {
	loader := &countingLoader{agents: map[string]domain.Agent{}}
	c := NewAgentCache(loader, 8, time.Minute)

	_, err := c.Get(context.Background(), "ghost")
	assert.Error(t, err)
	assert.Zero(t, c.Len())
}
