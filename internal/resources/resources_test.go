package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefreshIsScopedByRootCluster(t *testing.T) {
	r := NewRefresher()
	var eastCalls, westCalls int
	r.OnRefreshRequest("/clusters/east", func() { eastCalls++ })
	r.OnRefreshRequest("/clusters/west", func() { westCalls++ })

	r.RequestRefresh("/clusters/east")
	assert.Equal(t, 1, eastCalls)
	assert.Equal(t, 0, westCalls)

	r.RequestRefresh("/clusters/west")
	assert.Equal(t, 1, eastCalls)
	assert.Equal(t, 1, westCalls)
}

func TestCleanupStopsInvocations(t *testing.T) {
	r := NewRefresher()
	var calls int
	cleanup := r.OnRefreshRequest("/clusters/east", func() { calls++ })

	r.RequestRefresh("/clusters/east")
	cleanup()
	r.RequestRefresh("/clusters/east")
	assert.Equal(t, 1, calls)

	// Idempotent cleanup.
	assert.NotPanics(t, cleanup)
}

func TestMultipleListenersSameCluster(t *testing.T) {
	r := NewRefresher()
	var a, b int
	r.OnRefreshRequest("/clusters/east", func() { a++ })
	cleanupB := r.OnRefreshRequest("/clusters/east", func() { b++ })

	r.RequestRefresh("/clusters/east")
	cleanupB()
	r.RequestRefresh("/clusters/east")

	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}

func TestRefreshWithNoListenersIsNoop(t *testing.T) {
	r := NewRefresher()
	assert.NotPanics(t, func() { r.RequestRefresh("/clusters/east") })
}
