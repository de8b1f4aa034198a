package audit

import (
	"context"

	"github.com/google/uuid"

	"creditlens/pkg/requestcontext"
)

// Sink persists a batch of events.
type Sink interface {
	Append(ctx context.Context, events ...Event) error
}

// Publisher stamps events and hands them to the buffer. Emit never blocks on
// the sink.
type Publisher struct {
	buffer *RingBuffer
}

func NewPublisher(buffer *RingBuffer) *Publisher {
	return &Publisher{buffer: buffer}
}

// Emit queues an event, filling ID, Timestamp and RequestID when absent.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx).UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	p.buffer.Enqueue(event)
}
