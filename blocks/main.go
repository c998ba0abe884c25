package blocks

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"

	"github.com/LanceLiang2011/whoblockwho/parser"
	"github.com/LanceLiang2011/whoblockwho/types"
)

var tracer = otel.Tracer("blocks")

// Client is the slice of the transport the analyzer needs.
type Client interface {
	GetRelationships(ctx context.Context, actor string, others []string) ([]types.Relationship, error)
}

// Service reduces the pairwise block relationships of an actor triple to a
// single explanatory message.
type Service struct {
	client Client
}

func NewService(client Client) *Service {
	return &Service{
		client,
	}
}

// Analyze queries the pairwise relationships among viewer, author and the
// optional intermediate actor and selects one explanation by fixed
// priority. Each lookup is independent and fails open, so the result is
// always a usable message and depends only on the priority order.
func (s *Service) Analyze(ctx context.Context, viewer, author types.Actor, inter *types.Actor, kind parser.Kind) string {
	ctx, span := tracer.Start(ctx, "Analyze")
	defer span.End()

	viewerAuthor := s.pair(ctx, viewer, author)

	var viewerInter, interAuthor types.Relationship
	if inter != nil {
		viewerInter = s.pair(ctx, viewer, *inter)
		interAuthor = s.pair(ctx, *inter, author)
	}

	prefix := fmt.Sprintf("The original post is by %s", author.Name())

	switch {
	case viewerAuthor.BlockedBy:
		return fmt.Sprintf("%s. It is hidden because %s has blocked you.", prefix, author.Name())
	case viewerAuthor.Blocking:
		return fmt.Sprintf("%s. It is hidden because you have blocked %s.", prefix, author.Name())
	}

	if inter != nil {
		verb := interVerb(kind)
		switch {
		case interAuthor.BlockedBy:
			return fmt.Sprintf("%s and %s by %s. It is hidden from %s because %s has blocked them.",
				prefix, verb, inter.Name(), inter.Name(), author.Name())
		case interAuthor.Blocking:
			return fmt.Sprintf("%s and %s by %s. It is hidden because %s has blocked %s.",
				prefix, verb, inter.Name(), inter.Name(), author.Name())
		case viewerInter.BlockedBy:
			return fmt.Sprintf("%s. You cannot see this because %s has blocked you.", prefix, inter.Name())
		case viewerInter.Blocking:
			return fmt.Sprintf("%s. It appears hidden because you have blocked %s.", prefix, inter.Name())
		}

		return fmt.Sprintf("%s and %s by %s. No block relationship explains the hidden content; the post may have been deleted or restricted by moderation.",
			prefix, verb, inter.Name())
	}

	return fmt.Sprintf("%s. No block relationship explains the hidden content; the post may have been deleted or restricted by moderation.", prefix)
}

// pair queries the directional block state between a and b from a's
// viewpoint. Any failure degrades to the no-block default; the analysis
// must never be blocked on a relationship lookup.
func (s *Service) pair(ctx context.Context, a, b types.Actor) types.Relationship {
	relationships, err := s.client.GetRelationships(ctx, a.DID, []string{b.DID})
	if err != nil {
		log.Printf("blocks/pair GetRelationships %v->%v: %v (assuming no block)", a.DID, b.DID, err)
		return types.Relationship{DID: b.DID}
	}

	for _, rel := range relationships {
		if rel.DID == b.DID {
			return rel
		}
	}

	return types.Relationship{DID: b.DID}
}

func interVerb(kind parser.Kind) string {
	switch kind {
	case parser.KindQuote:
		return "quoted"
	case parser.KindReply:
		return "replied to"
	default:
		return "reposted"
	}
}
