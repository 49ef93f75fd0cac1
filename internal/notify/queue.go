package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/notifyrr/notifyrr/internal/discord"
)

// QueuedMessage is a fully built message awaiting delivery.
// It carries no back-reference to the candidate that produced it.
type QueuedMessage struct {
	ID         string
	Subscriber string
	ItemID     string
	Title      string
	WebhookURL string
	Payload    discord.Message
	QueuedAt   time.Time
}

// SendQueue is an ordered buffer of messages drained one per tick,
// decoupling message production from network I/O and rate-limiting
// outbound traffic when many items become ready at once.
type SendQueue struct {
	mu    sync.Mutex
	items []*QueuedMessage
}

// NewSendQueue creates an empty queue.
func NewSendQueue() *SendQueue {
	return &SendQueue{}
}

// Enqueue appends a message to the tail of the queue and returns it with
// its assigned id.
func (q *SendQueue) Enqueue(msg QueuedMessage) *QueuedMessage {
	msg.ID = uuid.NewString()
	msg.QueuedAt = time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, &msg)
	return &msg
}

// Pop removes and returns the oldest message.
// Removal happens here, before any delivery attempt: a delivery failure
// never puts the message back.
func (q *SendQueue) Pop() (*QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

// Len returns the number of queued messages.
func (q *SendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
