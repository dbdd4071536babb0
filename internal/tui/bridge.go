package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"voxquery/internal/domain"
)

// eventsMsg carries everything the workflow reported since the last flush.
type eventsMsg struct {
	snapshot *domain.Snapshot
	reason   domain.CaptureReason
	failures []failure
}

type failure struct {
	code   domain.ErrorCode
	detail string
}

// EventBridge forwards workflow events into a running program. Events are
// coalesced and delivered from a pump goroutine, so emitting from inside
// Update never blocks the event loop.
type EventBridge struct {
	mu       sync.Mutex
	program  *tea.Program
	snapshot *domain.Snapshot
	reason   domain.CaptureReason
	failures []failure

	wake chan struct{}
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewEventBridge() *EventBridge {
	return &EventBridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Attach starts delivering to p. Events emitted earlier are delivered too.
func (b *EventBridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()

	b.wg.Add(1)
	go b.pump()
	b.signal()
}

// Close stops the pump. Pending events are dropped.
func (b *EventBridge) Close() {
	b.once.Do(func() { close(b.done) })
	b.wg.Wait()
}

func (b *EventBridge) SessionChanged(snapshot domain.Snapshot) {
	b.mu.Lock()
	b.snapshot = &snapshot
	b.mu.Unlock()
	b.signal()
}

func (b *EventBridge) CaptureChanged(_ domain.CaptureStatus, reason domain.CaptureReason) {
	b.mu.Lock()
	b.reason = reason
	b.mu.Unlock()
	b.signal()
}

func (b *EventBridge) Failure(code domain.ErrorCode, detail string) {
	b.mu.Lock()
	b.failures = append(b.failures, failure{code: code, detail: detail})
	b.mu.Unlock()
	b.signal()
}

func (b *EventBridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *EventBridge) pump() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
			if msg, p, ok := b.take(); ok {
				p.Send(msg)
			}
		}
	}
}

func (b *EventBridge) take() (eventsMsg, *tea.Program, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.program == nil || (b.snapshot == nil && b.reason == "" && len(b.failures) == 0) {
		return eventsMsg{}, nil, false
	}
	msg := eventsMsg{snapshot: b.snapshot, reason: b.reason, failures: b.failures}
	b.snapshot, b.reason, b.failures = nil, "", nil
	return msg, b.program, true
}
