package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lalder95/auctiond/internal/domain"
)

// busEvent is the wire shape of engine events. Fields not present on a given
// event type are simply zero.
type busEvent struct {
	Event       string `json:"event"`
	LotID       string `json:"lot_id"`
	Player      string `json:"player"`
	BidderID    string `json:"bidder_id"`
	Amount      int    `json:"amount"`
	BidsRemoved int64  `json:"bids_removed"`
}

// Bridge subscribes to engine event channels and forwards each event to the
// Notifier. It is a pure consumer; a sender failure never feeds back into the
// engine.
type Bridge struct {
	bus      domain.SignalBus
	notifier *Notifier
	channels []string
	logger   *slog.Logger
}

// NewBridge creates a Bridge that listens on the given pub/sub channels.
func NewBridge(bus domain.SignalBus, notifier *Notifier, channels []string, logger *slog.Logger) *Bridge {
	return &Bridge{
		bus:      bus,
		notifier: notifier,
		channels: channels,
		logger:   logger.With(slog.String("component", "notify_bridge")),
	}
}

// Run consumes events until ctx is cancelled. It blocks and should be started
// in its own goroutine (or errgroup).
func (b *Bridge) Run(ctx context.Context) error {
	merged := make(chan []byte, 128)

	for _, channel := range b.channels {
		sub, err := b.bus.Subscribe(ctx, channel)
		if err != nil {
			return fmt.Errorf("notify: subscribe %s: %w", channel, err)
		}
		go func() {
			for payload := range sub {
				select {
				case merged <- payload:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-merged:
			b.handle(ctx, payload)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, payload []byte) {
	var ev busEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		b.logger.WarnContext(ctx, "dropping undecodable event",
			slog.String("error", err.Error()),
		)
		return
	}

	title, message, ok := render(ev)
	if !ok {
		return
	}

	if err := b.notifier.Notify(ctx, ev.Event, title, message); err != nil {
		b.logger.WarnContext(ctx, "notification delivery failed",
			slog.String("event", ev.Event),
			slog.String("error", err.Error()),
		)
	}
}

// render formats one event for human consumption. Unknown event types are
// skipped.
func render(ev busEvent) (title, message string, ok bool) {
	switch ev.Event {
	case "bid_accepted":
		return "New bid",
			fmt.Sprintf("%s: $%d by %s on %s", ev.Player, ev.Amount, ev.BidderID, ev.LotID),
			true
	case "lot_reset":
		return "Lot reset",
			fmt.Sprintf("%s (%s): %d bids removed", ev.Player, ev.LotID, ev.BidsRemoved),
			true
	default:
		return "", "", false
	}
}
