package notify

import (
	"sync"
	"time"
)

// candidateKey identifies a pending (item, subscriber) pair. Keying the map
// on the pair keeps duplicate insertions structurally impossible.
type candidateKey struct {
	ItemID     string
	Subscriber string
}

// Candidate is one (item, subscriber) pair awaiting a readiness decision.
type Candidate struct {
	ItemID     string
	Subscriber Subscriber
	Retries    int
	AddedAt    time.Time
}

// Tracker holds candidates between poll ticks. All methods are safe for
// concurrent use; the poll loop, the ingestion path, and the status API all
// touch it.
type Tracker struct {
	mu      sync.Mutex
	pending map[candidateKey]*Candidate
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		pending: make(map[candidateKey]*Candidate),
	}
}

// Add registers a new candidate with a zero retry count.
// Returns false if the (item, subscriber) pair is already pending.
func (t *Tracker) Add(itemID string, sub Subscriber) bool {
	key := candidateKey{ItemID: itemID, Subscriber: sub.Name}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.pending[key]; exists {
		return false
	}
	t.pending[key] = &Candidate{
		ItemID:     itemID,
		Subscriber: sub,
		AddedAt:    time.Now(),
	}
	return true
}

// Snapshot returns copies of all pending candidates at this instant.
// The poll loop iterates the snapshot so concurrent insertions and removals
// can't disturb the scan.
func (t *Tracker) Snapshot() []Candidate {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Candidate, 0, len(t.pending))
	for _, c := range t.pending {
		out = append(out, *c)
	}
	return out
}

// Take removes and returns the candidate for the pair, if still pending.
// Promotion removes the candidate before building the message, so a slow
// build cannot race a later tick into double-processing.
func (t *Tracker) Take(itemID, subscriber string) (Candidate, bool) {
	key := candidateKey{ItemID: itemID, Subscriber: subscriber}

	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.pending[key]
	if !ok {
		return Candidate{}, false
	}
	delete(t.pending, key)
	return *c, true
}

// IncrementRetries bumps the retry counter for a still-pending candidate.
func (t *Tracker) IncrementRetries(itemID, subscriber string) {
	key := candidateKey{ItemID: itemID, Subscriber: subscriber}

	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.pending[key]; ok {
		c.Retries++
	}
}

// Len returns the number of pending candidates.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
