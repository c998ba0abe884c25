package worker

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/LanceLiang2011/whoblockwho/bot"
	"github.com/LanceLiang2011/whoblockwho/ledger"
	"github.com/LanceLiang2011/whoblockwho/types"
	"github.com/LanceLiang2011/whoblockwho/world"
)

// Notifier is the slice of the transport the poll loop needs.
type Notifier interface {
	ListNotifications(ctx context.Context, limit int) ([]types.Notification, error)
	UpdateSeen(ctx context.Context) error
}

// Worker polls the notification stream at a fixed interval and feeds each
// unseen mention through the dispatcher exactly once.
type Worker struct {
	client Notifier
	bot    *bot.Service
	ledger ledger.Ledger
	config types.BotConfig
}

func NewWorker(client Notifier, bot *bot.Service, ledger ledger.Ledger, config types.BotConfig) *Worker {
	return &Worker{
		client,
		bot,
		ledger,
		config,
	}
}

// Run polls immediately, then at every tick, until ctx is cancelled.
// Cancellation stops new cycles; an in-flight mention is allowed to finish.
func (w *Worker) Run(ctx context.Context) {
	interval := w.config.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	log.Printf("worker/mention start polling every %v", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.poll(ctx)

		select {
		case <-ctx.Done():
			log.Printf("worker/mention stopped: %v", ctx.Err())
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	cycle := uuid.New().String()

	limit := w.config.MaxPerPoll
	if limit <= 0 {
		limit = 50
	}

	notifications, err := w.client.ListNotifications(ctx, limit)
	if err != nil {
		log.Printf("worker/mention/%v ListNotifications: %v", cycle, err)
		return
	}

	unread := 0
	for _, n := range notifications {
		if n.Reason != world.MentionReason || n.IsRead {
			continue
		}
		unread++

		// the mark must land before any handling network call starts, so a
		// second poll observing an in-flight mention never double-processes
		if !w.ledger.MarkIfNew(n.URI) {
			continue
		}

		log.Printf("worker/mention/%v handling mention from @%v: %v", cycle, n.Author.Handle, n.URI)

		explanation, sent := w.bot.HandleMention(ctx, n)
		if sent {
			log.Printf("worker/mention/%v replied: %v", cycle, explanation.Text)
		} else {
			log.Printf("worker/mention/%v reply failed for %v (will not retry)", cycle, n.URI)
		}
	}

	if unread > 0 {
		if err := w.client.UpdateSeen(ctx); err != nil {
			log.Printf("worker/mention/%v UpdateSeen: %v", cycle, err)
		}
	}
}
