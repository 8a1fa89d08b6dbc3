package relay

import (
	"context"
	"errors"
	"sync"

	"payshield/internal/logger"
)

const mailboxSize = 64

var ErrClosed = errors.New("relay: closed")

// Hub is an in-process relay shared by every tab of one process.
// Each subscriber drains its own mailbox on its own goroutine, so a
// publisher never runs subscriber code. A full mailbox drops the
// message; the receiving tab corrects itself on its next provider
// notification.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*mailbox
	nextID uint64
	closed bool
}

type mailbox struct {
	ch   chan Message
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*mailbox)}
}

func (h *Hub) Publish(_ context.Context, msg Message) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	boxes := make([]*mailbox, 0, len(h.subs))
	for id := uint64(0); id < h.nextID; id++ {
		if mb, ok := h.subs[id]; ok {
			boxes = append(boxes, mb)
		}
	}
	h.mu.Unlock()

	for _, mb := range boxes {
		select {
		case mb.ch <- msg:
		default:
			logger.Warn("relay mailbox full, message dropped", map[string]any{
				"origin": msg.Origin,
				"seq":    msg.Seq,
			})
		}
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, fn func(Message)) (func(), error) {
	mb := &mailbox{
		ch:   make(chan Message, mailboxSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = mb
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-mb.done:
				return
			case msg := <-mb.ch:
				fn(msg)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			_, live := h.subs[id]
			delete(h.subs, id)
			h.mu.Unlock()
			if live {
				close(mb.done)
			}
		})
	}, nil
}

func (h *Hub) Close() error {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*mailbox)
	h.closed = true
	h.mu.Unlock()

	for _, mb := range subs {
		close(mb.done)
	}
	return nil
}
