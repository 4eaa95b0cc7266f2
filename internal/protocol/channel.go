// ABOUTME: Lock-free single-producer single-consumer command queue
// ABOUTME: Unbounded, never drops, send and try-receive never block
package protocol

import (
	"errors"
	"sync/atomic"
)

// ErrReceiverClosed is returned by Send after the receiving side is closed.
var ErrReceiverClosed = errors.New("command receiver closed")

type node struct {
	cmd  Command
	next atomic.Pointer[node]
}

// queue is a linked list with a stub head. The producer only touches tail,
// the consumer only touches head; next pointers are the handoff.
type queue struct {
	head   *node
	tail   *node
	closed atomic.Bool
}

// Sender is the producing half. It must be used from one goroutine.
type Sender struct {
	q *queue
}

// Receiver is the consuming half. It must be used from one goroutine.
type Receiver struct {
	q *queue
}

// NewChannel creates a connected Sender/Receiver pair.
func NewChannel() (*Sender, *Receiver) {
	stub := &node{}
	q := &queue{head: stub, tail: stub}
	return &Sender{q: q}, &Receiver{q: q}
}

// Send enqueues cmd. It never blocks.
func (s *Sender) Send(cmd Command) error {
	if s.q.closed.Load() {
		return ErrReceiverClosed
	}
	n := &node{cmd: cmd}
	s.q.tail.next.Store(n)
	s.q.tail = n
	return nil
}

// TryReceive dequeues the oldest pending command, if any.
func (r *Receiver) TryReceive() (Command, bool) {
	next := r.q.head.next.Load()
	if next == nil {
		return Command{}, false
	}
	r.q.head = next
	cmd := next.cmd
	next.cmd = Command{}
	return cmd, true
}

// Drain calls fn for every pending command in order and returns the count.
func (r *Receiver) Drain(fn func(Command)) int {
	n := 0
	for {
		cmd, ok := r.TryReceive()
		if !ok {
			return n
		}
		fn(cmd)
		n++
	}
}

// Close marks the stream torn down. Later sends fail.
func (r *Receiver) Close() {
	r.q.closed.Store(true)
}
