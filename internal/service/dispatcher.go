package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrDispatcherClosed is returned by Submit after Close
var ErrDispatcherClosed = errors.New("dispatcher closed")

// DefaultMessageTimeout bounds the handling of a single chat message
const DefaultMessageTimeout = 60 * time.Second

// Message is one inbound chat event queued for its sender
type Message struct {
	Sender string
	Token  string
	Text   string
}

// MessageHandler handles one chat message
type MessageHandler interface {
	HandleIncomingMessage(ctx context.Context, sender string, token string, text string) error
}

// Dispatcher runs at most one handler per sender at a time and preserves each
// sender's arrival order. Different senders are handled concurrently.
type Dispatcher struct {
	handler MessageHandler
	timeout time.Duration

	mu     sync.Mutex
	queues map[string][]Message
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher in front of handler
func NewDispatcher(handler MessageHandler, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultMessageTimeout
	}
	return &Dispatcher{
		handler: handler,
		timeout: timeout,
		queues:  make(map[string][]Message),
	}
}

// Submit enqueues msg behind any pending messages of the same sender
func (d *Dispatcher) Submit(msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	queue, running := d.queues[msg.Sender]
	d.queues[msg.Sender] = append(queue, msg)
	if !running {
		d.wg.Add(1)
		go d.drain(msg.Sender)
	}
	return nil
}

// drain is the single writer for sender. It exits once the sender's queue is empty.
func (d *Dispatcher) drain(sender string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		queue := d.queues[sender]
		if len(queue) == 0 {
			delete(d.queues, sender)
			d.mu.Unlock()
			return
		}
		msg := queue[0]
		d.queues[sender] = queue[1:]
		d.mu.Unlock()

		d.handle(msg)
	}
}

func (d *Dispatcher) handle(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while handling message", "sender", msg.Sender, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	if err := d.handler.HandleIncomingMessage(ctx, msg.Sender, msg.Token, msg.Text); err != nil {
		slog.Error("Error handling message", "sender", msg.Sender, "error", err)
	}
}

// Close stops accepting messages and waits for queued ones until ctx is done
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
