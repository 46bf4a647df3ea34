package channel

import (
	"errors"
	"sync"
	"sync/atomic"

	"phpcore/pkg/conc"
	"phpcore/pkg/value"
)

// ErrClosed is returned by Send on a closed channel
var ErrClosed = errors.New("channel: send on closed channel")

// Channel is a bounded FIFO of values with blocking and non-blocking
// send and receive.
//
// A requested capacity of 0 yields a one-slot buffer; there is no
// rendezvous handoff. The channel owns every buffered value: Send retains
// into the buffer and Recv hands that reference to the receiver.
type Channel struct {
	mu       conc.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf   []value.Value
	head  int
	count int

	closed atomic.Bool
	sends  atomic.Uint64
	recvs  atomic.Uint64
}

// New creates an open channel holding at most capacity values
func New(capacity int) *Channel {
	if capacity < 1 {
		capacity = 1
	}
	ch := &Channel{buf: make([]value.Value, capacity)}
	ch.notEmpty = sync.NewCond(&ch.mu)
	ch.notFull = sync.NewCond(&ch.mu)
	return ch
}

// Send blocks until there is room and enqueues a retained copy of v.
// It returns ErrClosed if the channel is closed on entry or while waiting.
func (ch *Channel) Send(v value.Value) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for ch.count == len(ch.buf) && !ch.closed.Load() {
		ch.notFull.Wait()
	}
	if ch.closed.Load() {
		return ErrClosed
	}
	ch.push(v)
	return nil
}

// TrySend enqueues v if there is room and the channel is open
func (ch *Channel) TrySend(v value.Value) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed.Load() || ch.count == len(ch.buf) {
		return false
	}
	ch.push(v)
	return true
}

func (ch *Channel) push(v value.Value) {
	ch.buf[(ch.head+ch.count)%len(ch.buf)] = v.Retain()
	ch.count++
	ch.sends.Add(1)
	ch.notEmpty.Signal()
}

// Recv blocks until a value is available. It reports false only once the
// channel is closed and drained. The caller owns the returned value.
func (ch *Channel) Recv() (value.Value, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for ch.count == 0 && !ch.closed.Load() {
		ch.notEmpty.Wait()
	}
	if ch.count == 0 {
		return value.Null, false
	}
	return ch.pop(), true
}

// TryRecv dequeues a value if one is buffered
func (ch *Channel) TryRecv() (value.Value, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.count == 0 {
		return value.Null, false
	}
	return ch.pop(), true
}

func (ch *Channel) pop() value.Value {
	v := ch.buf[ch.head]
	ch.buf[ch.head] = value.Null
	ch.head = (ch.head + 1) % len(ch.buf)
	ch.count--
	ch.recvs.Add(1)
	ch.notFull.Signal()
	return v
}

// Close marks the channel closed and wakes every waiter. Buffered values
// stay receivable. Closing twice is a no-op.
func (ch *Channel) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed.Swap(true) {
		return
	}
	ch.notEmpty.Broadcast()
	ch.notFull.Broadcast()
}

// Destroy closes the channel and releases every buffered value
func (ch *Channel) Destroy() {
	ch.Close()

	ch.mu.Lock()
	drained := make([]value.Value, 0, ch.count)
	for ch.count > 0 {
		v := ch.buf[ch.head]
		ch.buf[ch.head] = value.Null
		ch.head = (ch.head + 1) % len(ch.buf)
		ch.count--
		drained = append(drained, v)
	}
	ch.mu.Unlock()

	for _, v := range drained {
		v.Release()
	}
}

// Len returns the number of buffered values
func (ch *Channel) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.count
}

// Cap returns the buffer size
func (ch *Channel) Cap() int { return len(ch.buf) }

// IsClosed reports whether Close has been called
func (ch *Channel) IsClosed() bool { return ch.closed.Load() }

// SendCount returns the number of values ever enqueued
func (ch *Channel) SendCount() uint64 { return ch.sends.Load() }

// RecvCount returns the number of values ever dequeued
func (ch *Channel) RecvCount() uint64 { return ch.recvs.Load() }
