package transport

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

func noTimeout(*pendingRequest) error { return errors.New("unexpected timeout") }

func TestPendingTableResolve(t *testing.T) {
	pt := newPendingTable()
	p, err := pt.register(protocol.NewIntID(1), "tools/list", 0, noTimeout)
	require.NoError(t, err)
	assert.Equal(t, 1, pt.len())

	resp, err := protocol.NewResponse(protocol.NewIntID(1), map[string]int{"n": 1})
	require.NoError(t, err)
	assert.True(t, pt.resolve(resp))
	assert.Zero(t, pt.len())

	o := <-p.done
	assert.NoError(t, o.err)
	assert.Same(t, resp, o.resp)

	// a second response for the same id finds nothing
	assert.False(t, pt.resolve(resp))
}

func TestPendingTableRejectsDuplicateID(t *testing.T) {
	pt := newPendingTable()
	_, err := pt.register(protocol.NewIntID(7), "ping", 0, noTimeout)
	require.NoError(t, err)

	_, err = pt.register(protocol.NewIntID(7), "ping", 0, noTimeout)
	assert.Error(t, err)

	// ids of different kinds never collide
	_, err = pt.register(protocol.NewStringID("7"), "ping", 0, noTimeout)
	assert.NoError(t, err)
}

func TestPendingTableTimeout(t *testing.T) {
	pt := newPendingTable()
	timeoutErr := errors.New("timed out")

	p, err := pt.register(protocol.NewIntID(3), "tools/call", 20*time.Millisecond, func(*pendingRequest) error {
		return timeoutErr
	})
	require.NoError(t, err)

	select {
	case o := <-p.done:
		assert.Same(t, timeoutErr, o.err)
	case <-time.After(time.Second):
		t.Fatal("entry was not settled by its timer")
	}
	assert.Zero(t, pt.len())

	late, _ := protocol.NewResponse(protocol.NewIntID(3), nil)
	assert.False(t, pt.resolve(late))
}

func TestPendingTableFailAll(t *testing.T) {
	pt := newPendingTable()
	a, _ := pt.register(protocol.NewIntID(5), "a", time.Minute, noTimeout)
	b, _ := pt.register(protocol.NewIntID(6), "b", time.Minute, noTimeout)

	exitErr := errors.New("exited")
	assert.Equal(t, 2, pt.failAll(exitErr))
	assert.Zero(t, pt.len())

	assert.Same(t, exitErr, (<-a.done).err)
	assert.Same(t, exitErr, (<-b.done).err)

	_, err := pt.register(protocol.NewIntID(7), "c", time.Minute, noTimeout)
	assert.Same(t, exitErr, err)
	assert.Zero(t, pt.len())

	pt.open()
	c, err := pt.register(protocol.NewIntID(7), "c", 0, noTimeout)
	require.NoError(t, err)
	assert.True(t, pt.remove(c))
}

func TestPendingRequestSettlesOnce(t *testing.T) {
	p := &pendingRequest{id: protocol.NewIntID(1), done: make(chan outcome, 1)}

	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins <- p.settle(outcome{err: errors.New("x")})
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for w := range wins {
		if w {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, p.done, 1)
}
