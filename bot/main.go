package bot

import (
	"context"
	"log"
	"sync/atomic"

	"go.opentelemetry.io/otel"

	"github.com/LanceLiang2011/whoblockwho/parser"
	"github.com/LanceLiang2011/whoblockwho/response"
	"github.com/LanceLiang2011/whoblockwho/types"
)

var tracer = otel.Tracer("bot")

// Explanation is the single human-readable verdict produced for a mention,
// with the refs that thread it correctly.
type Explanation struct {
	Text   string
	Root   types.PostRef
	Parent types.PostRef
}

// Walker recovers the original post behind a referenced one.
type Walker interface {
	Walk(ctx context.Context, parent types.PostRef) *parser.Original
}

// Analyzer explains which block relationship hides the original.
type Analyzer interface {
	Analyze(ctx context.Context, viewer, author types.Actor, inter *types.Actor, kind parser.Kind) string
}

// Poster publishes the outgoing reply.
type Poster interface {
	CreatePost(ctx context.Context, post types.ReplyPost) (types.PostRef, error)
}

// Service handles one mention end to end: walk, analyze, compose, reply.
type Service struct {
	walker   Walker
	analyzer Analyzer
	poster   Poster

	handled atomic.Int64
	replied atomic.Int64
}

func NewService(walker Walker, analyzer Analyzer, poster Poster) *Service {
	return &Service{
		walker:   walker,
		analyzer: analyzer,
		poster:   poster,
	}
}

// HandleMention produces exactly one Explanation for the mention and
// attempts to post it. The returned bool reports submission success; a
// failed submission is logged and never retried within the cycle.
func (s *Service) HandleMention(ctx context.Context, n types.Notification) (Explanation, bool) {
	ctx, span := tracer.Start(ctx, "HandleMention")
	defer span.End()

	s.handled.Add(1)

	explanation := s.explain(ctx, n)

	_, err := s.poster.CreatePost(ctx, response.Compose(explanation.Text, explanation.Root, explanation.Parent))
	if err != nil {
		log.Printf("bot/mention CreatePost %v: %v", n.URI, err)
		return explanation, false
	}

	s.replied.Add(1)
	return explanation, true
}

// explain resolves the mention to its verdict text and thread refs. The
// thread root is computed once here and reused verbatim for the reply.
func (s *Service) explain(ctx context.Context, n types.Notification) Explanation {
	mention := n.Ref()

	record, err := n.DecodePostRecord()
	if err != nil || record.Reply == nil {
		// a mention that is not a reply has nothing to point at
		return Explanation{Text: response.HelpText, Root: mention, Parent: mention}
	}

	root := mention
	if record.Reply.Root.URI != "" && record.Reply.Root.URI != record.Reply.Parent.URI {
		root = record.Reply.Root
	}

	original := s.walker.Walk(ctx, record.Reply.Parent)
	if original == nil {
		return Explanation{Text: response.HelpText, Root: root, Parent: mention}
	}

	text := s.analyzer.Analyze(ctx, n.Author.Actor(), original.Author, original.Intermediate, original.Kind)
	text = response.WithOriginalLink(text, original.Ref)

	return Explanation{Text: text, Root: root, Parent: mention}
}

// Handled reports how many mentions entered handling.
func (s *Service) Handled() int64 {
	return s.handled.Load()
}

// Replied reports how many replies were successfully submitted.
func (s *Service) Replied() int64 {
	return s.replied.Load()
}
