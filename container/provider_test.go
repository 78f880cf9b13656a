package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	BaseProvider
	name       string
	registered *[]string
	booted     *[]string
}

func (p *recordingProvider) Register(c *Container) error {
	*p.registered = append(*p.registered, p.name)
	return c.Singleton(p.name, func(c *Container) (any, error) {
		return p.name + "-instance", nil
	})
}

func (p *recordingProvider) Boot(c *Container) error {
	*p.booted = append(*p.booted, p.name)
	return nil
}

type deferredProvider struct {
	recordingProvider
}

func (p *deferredProvider) IsDeferred() bool   { return true }
func (p *deferredProvider) Provides() []string { return []string{p.name} }

func TestProvidersRegisterAndBootInOrder(t *testing.T) {
	c := New()
	registry := NewProviderRegistry(c)
	var registered, booted []string

	for _, name := range []string{"config", "logger", "eventBus"} {
		p := &recordingProvider{name: name, registered: &registered, booted: &booted}
		require.NoError(t, registry.Register(p))
	}

	assert.Equal(t, []string{"config", "logger", "eventBus"}, registered)
	assert.Empty(t, booted, "boot must wait for Boot()")

	require.NoError(t, registry.Boot())
	assert.Equal(t, []string{"config", "logger", "eventBus"}, booted)

	// Boot is idempotent.
	require.NoError(t, registry.Boot())
	assert.Len(t, booted, 3)
}

func TestProviderRegisteredTwiceIsNoOp(t *testing.T) {
	c := New()
	registry := NewProviderRegistry(c)
	var registered, booted []string

	p := &recordingProvider{name: "svc", registered: &registered, booted: &booted}
	require.NoError(t, registry.Register(p))
	require.NoError(t, registry.Register(p))

	assert.Len(t, registered, 1)
}

func TestProviderAfterBootBootsImmediately(t *testing.T) {
	c := New()
	registry := NewProviderRegistry(c)
	var registered, booted []string

	require.NoError(t, registry.Boot())

	p := &recordingProvider{name: "late", registered: &registered, booted: &booted}
	require.NoError(t, registry.Register(p))

	assert.Equal(t, []string{"late"}, booted)
}

func TestDeferredProviderLoadsOnFirstGet(t *testing.T) {
	c := New()
	registry := NewProviderRegistry(c)
	var registered, booted []string

	p := &deferredProvider{recordingProvider{name: "server", registered: &registered, booted: &booted}}
	require.NoError(t, registry.Register(p))
	require.NoError(t, registry.Boot())

	assert.Empty(t, registered, "deferred provider must not register before first Get")

	got, err := c.Get("server")
	require.NoError(t, err)
	assert.Equal(t, "server-instance", got)
	assert.Equal(t, []string{"server"}, registered)
	assert.Equal(t, []string{"server"}, booted)

	// The real singleton is in place now.
	again, err := c.Get("server")
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Len(t, registered, 1)
}

func TestDeferredProviderVisibleViaHas(t *testing.T) {
	c := New()
	registry := NewProviderRegistry(c)
	var registered, booted []string

	p := &deferredProvider{recordingProvider{name: "server", registered: &registered, booted: &booted}}
	require.NoError(t, registry.Register(p))

	assert.True(t, c.Has("server"))
	assert.Empty(t, registered)
}
