package api

import (
	"time"

	"github.com/LanceLiang2011/whoblockwho/bot"
	"github.com/LanceLiang2011/whoblockwho/ledger"
)

// Health is the liveness report of the bot process.
type Health struct {
	Status    string  `json:"status"`
	Service   string  `json:"service"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

// Stats is the running tally of mention handling.
type Stats struct {
	MentionsHandled int64  `json:"mentionsHandled"`
	RepliesSent     int64  `json:"repliesSent"`
	LedgerSize      int    `json:"ledgerSize"`
	StartedAt       string `json:"startedAt"`
}

type Service struct {
	bot       *bot.Service
	ledger    ledger.Ledger
	startedAt time.Time
}

func NewService(bot *bot.Service, ledger ledger.Ledger) *Service {
	return &Service{
		bot:       bot,
		ledger:    ledger,
		startedAt: time.Now(),
	}
}

func (s *Service) Health() Health {
	return Health{
		Status:    "healthy",
		Service:   "whoblockwho-bot",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startedAt).Seconds(),
	}
}

func (s *Service) Stats() Stats {
	return Stats{
		MentionsHandled: s.bot.Handled(),
		RepliesSent:     s.bot.Replied(),
		LedgerSize:      s.ledger.Len(),
		StartedAt:       s.startedAt.UTC().Format(time.RFC3339),
	}
}
