package uart

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntrypointExecutesSerially(t *testing.T) {
	ep := NewEntrypoint()
	ep.Start()
	defer ep.Stop()

	var inFlight, maxInFlight int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ep.Exec(func() {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				mu.Lock()
				inFlight--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "no two operations may overlap")
}

func TestEntrypointExecBlocksUntilDone(t *testing.T) {
	ep := NewEntrypoint()
	ep.Start()
	defer ep.Stop()

	ran := false
	ep.Exec(func() { ran = true })

	assert.True(t, ran, "Exec must not return before the operation ran")
}

func TestEntrypointExecAfterStop(t *testing.T) {
	ep := NewEntrypoint()
	ep.Start()
	ep.Stop()

	ran := false
	ep.Exec(func() { ran = true })

	assert.True(t, ran, "operations after Stop run inline")
}

func TestEntrypointSerializesAfterStop(t *testing.T) {
	ep := NewEntrypoint()
	ep.Start()
	ep.Stop()

	var inFlight, maxInFlight int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ep.Exec(func() {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				inFlight--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight,
		"inline operations after Stop may not overlap either")
}

func TestEntrypointStartIdempotent(t *testing.T) {
	ep := NewEntrypoint()
	ep.Start()
	ep.Start()
	defer ep.Stop()

	done := make(chan struct{})
	ep.Exec(func() { close(done) })
	<-done
}
