package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

// outcome is what a waiting Send receives: a response or an error
type outcome struct {
	resp *protocol.Response
	err  error
}

// pendingRequest is an entry in the correlation table. It is settled
// exactly once, by whichever of response, timeout, abort or teardown
// gets there first.
type pendingRequest struct {
	id      protocol.ID
	method  string
	started time.Time
	done    chan outcome
	once    sync.Once
	timer   *time.Timer
}

func (p *pendingRequest) settle(o outcome) bool {
	settled := false
	p.once.Do(func() {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.done <- o
		settled = true
	})
	return settled
}

// pendingTable maps request ids to waiting callers. Once failAll has run
// the table is closed and register returns the failAll error until open.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingRequest
	closed  error
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pendingRequest)}
}

// register adds an entry for id. When timeout is positive the entry is
// removed and settled with onTimeout's error once it elapses.
func (pt *pendingTable) register(id protocol.ID, method string, timeout time.Duration, onTimeout func(*pendingRequest) error) (*pendingRequest, error) {
	key := id.Key()

	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.closed != nil {
		return nil, pt.closed
	}
	if _, exists := pt.entries[key]; exists {
		return nil, fmt.Errorf("request id %s is already in flight", id)
	}

	p := &pendingRequest{
		id:      id,
		method:  method,
		started: time.Now(),
		done:    make(chan outcome, 1),
	}
	if timeout > 0 {
		p.timer = time.AfterFunc(timeout, func() {
			if pt.remove(p) {
				p.settle(outcome{err: onTimeout(p)})
			}
		})
	}
	pt.entries[key] = p
	return p, nil
}

// resolve hands resp to the entry waiting on its id. It returns false
// when no such entry exists, e.g. because it already timed out.
func (pt *pendingTable) resolve(resp *protocol.Response) bool {
	key := resp.ID.Key()

	pt.mu.Lock()
	p, ok := pt.entries[key]
	if ok {
		delete(pt.entries, key)
	}
	pt.mu.Unlock()

	if !ok {
		return false
	}
	return p.settle(outcome{resp: resp})
}

// remove deletes p if it is still the entry for its id
func (pt *pendingTable) remove(p *pendingRequest) bool {
	key := p.id.Key()

	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.entries[key] != p {
		return false
	}
	delete(pt.entries, key)
	return true
}

// open accepts registrations again after failAll
func (pt *pendingTable) open() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.closed = nil
}

// failAll settles every entry with err, empties the table and closes it
func (pt *pendingTable) failAll(err error) int {
	pt.mu.Lock()
	entries := pt.entries
	pt.entries = make(map[string]*pendingRequest)
	pt.closed = err
	pt.mu.Unlock()

	for _, p := range entries {
		p.settle(outcome{err: err})
	}
	return len(entries)
}

func (pt *pendingTable) len() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return len(pt.entries)
}
