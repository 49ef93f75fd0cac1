package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notifyrr/notifyrr/internal/catalog"
	"github.com/notifyrr/notifyrr/internal/discord"
	"github.com/notifyrr/notifyrr/internal/events"
	"github.com/notifyrr/notifyrr/internal/history"
	"github.com/notifyrr/notifyrr/internal/metrics"
)

// ErrUnknownSubscriber is returned by SendTest for an unconfigured name.
var ErrUnknownSubscriber = errors.New("unknown subscriber")

// Defaults. The fallback factor stretches the retry budget when the item's
// library extracts chapter images during scans: metadata then only appears
// after extraction, whose duration depends on bitrate, duration, codec, and
// host throughput, so the budget has to be generous.
const (
	DefaultRecheckInterval = 10 * time.Second
	DefaultSendInterval    = time.Second
	DefaultMaxRetries      = 10
	DefaultFallbackFactor  = 5.5
)

// Sender delivers one built message to a webhook URL.
type Sender interface {
	Execute(ctx context.Context, webhookURL string, msg discord.Message) error
}

// Config tunes the pipeline's timing and retry budget.
type Config struct {
	RecheckInterval time.Duration
	SendInterval    time.Duration
	MaxRetries      int
	FallbackFactor  float64
}

func (c Config) withDefaults() Config {
	if c.RecheckInterval <= 0 {
		c.RecheckInterval = DefaultRecheckInterval
	}
	if c.SendInterval <= 0 {
		c.SendInterval = DefaultSendInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.FallbackFactor <= 0 {
		c.FallbackFactor = DefaultFallbackFactor
	}
	return c
}

// Deps are the notifier's collaborators. Bus, Catalog, Source, and Sender
// are required; the rest may be nil.
type Deps struct {
	Bus     *events.Bus
	Catalog catalog.Client
	Source  OptionsSource
	Sender  Sender
	Builder *Builder
	History *history.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Notifier runs the notification pipeline: an ingestion loop fed by the
// event bus, a readiness poll loop, and a send-queue drain loop.
type Notifier struct {
	bus     *events.Bus
	catalog catalog.Client
	source  OptionsSource
	sender  Sender
	builder *Builder
	hist    *history.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config

	tracker *Tracker
	queue   *SendQueue

	deferredMu sync.Mutex
	deferred   []deferredIngest
}

// deferredIngest is an item-added event whose initial catalog lookup failed.
// It is retried on poll ticks so one catalog hiccup does not lose the
// announcement.
type deferredIngest struct {
	evt      *events.ItemAdded
	attempts int
}

// New creates a notifier.
func New(deps Deps, cfg Config) *Notifier {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builder := deps.Builder
	if builder == nil {
		builder = NewBuilder(nil, logger)
	}
	return &Notifier{
		bus:     deps.Bus,
		catalog: deps.Catalog,
		source:  deps.Source,
		sender:  deps.Sender,
		builder: builder,
		hist:    deps.History,
		metrics: deps.Metrics,
		logger:  logger.With("component", "notifier"),
		cfg:     cfg.withDefaults(),
		tracker: NewTracker(),
		queue:   NewSendQueue(),
	}
}

// PendingCount returns the number of candidates awaiting readiness.
func (n *Notifier) PendingCount() int { return n.tracker.Len() }

// QueueDepth returns the number of messages awaiting delivery.
func (n *Notifier) QueueDepth() int { return n.queue.Len() }

// Start runs the three pipeline loops until ctx is canceled. Each loop owns
// its own ticker, so a tick can never overlap itself; in-flight work finishes
// before the loop observes cancellation.
func (n *Notifier) Start(ctx context.Context) error {
	added := n.bus.Subscribe(events.EventItemAdded, 100)
	defer n.bus.Unsubscribe(added)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return n.runIngest(ctx, added) })
	g.Go(func() error { return n.runPoll(ctx) })
	g.Go(func() error { return n.runSend(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (n *Notifier) runIngest(ctx context.Context, added <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-added:
			if !ok {
				return nil
			}
			if ia, ok := evt.(*events.ItemAdded); ok {
				n.handleItemAdded(ctx, ia)
			}
		}
	}
}

// handleItemAdded runs the eligibility filter for every configured
// subscriber and tracks the matches. It runs on the event-delivery path;
// the visibility query is its only expensive step.
func (n *Notifier) handleItemAdded(ctx context.Context, evt *events.ItemAdded) {
	if !n.ingestItem(ctx, evt) {
		n.deferIngest(evt, 1)
	}
}

// ingestItem returns false when the catalog lookup failed and the event
// should be retried.
func (n *Notifier) ingestItem(ctx context.Context, evt *events.ItemAdded) bool {
	item, err := n.catalog.GetItem(ctx, evt.ItemID)
	if err != nil {
		n.logger.Warn("failed to fetch added item, will retry",
			"item_id", evt.ItemID,
			"error", err)
		return false
	}

	for _, sub := range n.source.Subscribers() {
		ok, err := Eligible(ctx, n.catalog, item, sub)
		if err != nil {
			n.logger.Error("eligibility check failed",
				"item_id", item.ID,
				"subscriber", sub.Name,
				"error", err)
			continue
		}
		if !ok {
			continue
		}

		if !n.tracker.Add(item.ID, sub) {
			n.logger.Debug("candidate already pending",
				"item_id", item.ID,
				"subscriber", sub.Name)
			continue
		}

		if n.metrics != nil {
			n.metrics.CandidatesTracked.Inc()
		}
		n.logger.Debug("tracking candidate",
			"item_id", item.ID,
			"name", item.Name,
			"subscriber", sub.Name)
	}
	return true
}

func (n *Notifier) deferIngest(evt *events.ItemAdded, attempts int) {
	if attempts > n.cfg.MaxRetries {
		n.logger.Error("dropping added item, catalog lookups kept failing",
			"item_id", evt.ItemID,
			"attempts", attempts)
		return
	}
	n.deferredMu.Lock()
	n.deferred = append(n.deferred, deferredIngest{evt: evt, attempts: attempts})
	n.deferredMu.Unlock()
}

// retryDeferred re-runs ingestion for events whose lookup failed earlier.
func (n *Notifier) retryDeferred(ctx context.Context) {
	n.deferredMu.Lock()
	pending := n.deferred
	n.deferred = nil
	n.deferredMu.Unlock()

	for _, d := range pending {
		if !n.ingestItem(ctx, d.evt) {
			n.deferIngest(d.evt, d.attempts+1)
		}
	}
}

func (n *Notifier) runPoll(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.RecheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n.checkPending(ctx)
		}
	}
}

// checkPending runs one readiness poll over a snapshot of the tracker,
// after retrying any ingestions that failed on the event path.
func (n *Notifier) checkPending(ctx context.Context) {
	n.retryDeferred(ctx)

	candidates := n.tracker.Snapshot()
	if len(candidates) > 0 {
		n.logger.Debug("checking pending candidates", "count", len(candidates))
	}

	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n.processCandidate(ctx, c)
	}
}

// processCandidate decides readiness for one candidate. A failure here is
// isolated: it never aborts the remaining candidates or the poll loop.
func (n *Notifier) processCandidate(ctx context.Context, c Candidate) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("panic while processing candidate",
				"item_id", c.ItemID,
				"subscriber", c.Subscriber.Name,
				"panic", r)
		}
	}()

	item, err := n.catalog.GetItem(ctx, c.ItemID)
	if err != nil {
		// Transient lookup failure: leave the candidate untouched, no
		// retry increment, try again next tick.
		n.logger.Warn("item lookup failed, will retry",
			"item_id", c.ItemID,
			"subscriber", c.Subscriber.Name,
			"error", err)
		return
	}

	limit := float64(n.cfg.MaxRetries)
	if item.ChapterImageExtraction {
		limit *= n.cfg.FallbackFactor
	}
	fallback := float64(c.Retries) >= limit

	if !item.HasProviderIDs() && !fallback {
		n.tracker.IncrementRetries(c.ItemID, c.Subscriber.Name)
		return
	}

	// Remove before building: a slow build must not let the next tick see
	// this candidate again.
	cand, ok := n.tracker.Take(c.ItemID, c.Subscriber.Name)
	if !ok {
		return
	}

	srv := n.source.Server()
	payload := n.builder.MediaAdded(ctx, item, cand.Subscriber, srv, fallback)
	title := itemTitle(item)

	n.queue.Enqueue(QueuedMessage{
		Subscriber: cand.Subscriber.Name,
		ItemID:     item.ID,
		Title:      title,
		WebhookURL: cand.Subscriber.WebhookURL,
		Payload:    payload,
	})

	if n.metrics != nil {
		mode := metrics.ModeMetadata
		if fallback {
			mode = metrics.ModeFallback
		}
		n.metrics.Promotions.WithLabelValues(mode).Inc()
	}

	if err := n.bus.Publish(ctx, &events.ItemAnnounced{
		BaseEvent:  events.NewBaseEvent(events.EventItemAnnounced, events.EntityItem, item.ID),
		ItemID:     item.ID,
		Subscriber: cand.Subscriber.Name,
		Title:      title,
		Fallback:   fallback,
		Retries:    cand.Retries,
	}); err != nil {
		n.logger.Error("failed to publish ItemAnnounced event", "item_id", item.ID, "error", err)
	}

	n.logger.Info("item ready, message queued",
		"item_id", item.ID,
		"title", title,
		"subscriber", cand.Subscriber.Name,
		"fallback", fallback,
		"retries", cand.Retries)
}

func (n *Notifier) runSend(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n.drainOne(ctx)
		}
	}
}

// drainOne delivers at most one message per tick. The message is already
// off the queue when delivery runs; a failure is logged and swallowed, never
// retried, and never stops subsequent ticks.
func (n *Notifier) drainOne(ctx context.Context) {
	msg, ok := n.queue.Pop()
	if !ok {
		return
	}

	err := n.sender.Execute(ctx, msg.WebhookURL, msg.Payload)
	n.record(history.KindMediaAdded, msg.Subscriber, msg.ItemID, msg.Title, err)
	if err != nil {
		n.logger.Error("failed to execute webhook",
			"message_id", msg.ID,
			"subscriber", msg.Subscriber,
			"error", err)
		return
	}

	n.logger.Debug("webhook delivered",
		"message_id", msg.ID,
		"subscriber", msg.Subscriber,
		"title", msg.Title)
}

// SendTest builds and delivers a test message for the named subscriber,
// bypassing the tracker and queue. Transport failures are returned to the
// caller instead of being swallowed.
func (n *Notifier) SendTest(ctx context.Context, name string) error {
	var sub *Subscriber
	for _, s := range n.source.Subscribers() {
		if s.Name == name {
			sub = &s
			break
		}
	}
	if sub == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSubscriber, name)
	}

	msg := n.builder.Test(*sub, n.source.Server())
	err := n.sender.Execute(ctx, sub.WebhookURL, msg)
	n.record(history.KindTest, sub.Name, "", "It worked!", err)
	if err != nil {
		return fmt.Errorf("test notification for %s: %w", name, err)
	}
	return nil
}

// record writes a delivery outcome to the history store and metrics.
// Both are optional and best-effort.
func (n *Notifier) record(kind, subscriber, itemID, title string, deliveryErr error) {
	outcome := metrics.OutcomeDelivered
	errText := ""
	if deliveryErr != nil {
		outcome = metrics.OutcomeFailed
		errText = deliveryErr.Error()
	}

	if n.metrics != nil {
		n.metrics.Deliveries.WithLabelValues(kind, outcome).Inc()
	}
	if n.hist == nil {
		return
	}
	if err := n.hist.Add(&history.Record{
		Subscriber: subscriber,
		ItemID:     itemID,
		Title:      title,
		Kind:       kind,
		Delivered:  deliveryErr == nil,
		Error:      errText,
	}); err != nil {
		n.logger.Error("failed to record delivery history", "error", err)
	}
}
