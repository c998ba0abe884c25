package parser

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"

	"github.com/LanceLiang2011/whoblockwho/types"
	"github.com/LanceLiang2011/whoblockwho/world"
)

var tracer = otel.Tracer("parser")

// Kind says how the intermediate actor re-surfaced the original post.
type Kind string

const (
	KindRepost Kind = "repost"
	KindQuote  Kind = "quote"
	KindReply  Kind = "reply"
)

// Original is the outcome of walking a post graph: the hidden post's author
// and ref, plus the re-surfacing actor when one is distinguishable.
type Original struct {
	Author       types.Actor
	Ref          types.PostRef
	Intermediate *types.Actor
	Kind         Kind
}

// Client is the slice of the transport the walker needs.
type Client interface {
	GetPosts(ctx context.Context, uris []string) ([]types.PostView, error)
	GetProfile(ctx context.Context, actor string) (types.Profile, error)
}

// Service walks the reply/embed graph of a referenced post to recover the
// original, possibly hidden, post and its author.
type Service struct {
	client Client
}

func NewService(client Client) *Service {
	return &Service{
		client,
	}
}

// ResolveAuthor recovers the best-known author identity from a content ref
// alone. The did comes from the uri without a network call; the profile
// lookup only upgrades it with the current handle. It fails only when the
// did itself could not be extracted.
func (s *Service) ResolveAuthor(ctx context.Context, uri string) (types.Actor, bool) {
	did, _, _, err := types.ParseAtURI(uri)
	if err != nil {
		log.Printf("parser/resolve malformed uri %v: %v", uri, err)
		return types.Actor{}, false
	}

	profile, err := s.client.GetProfile(ctx, did)
	if err != nil {
		// identifier-only success: the did is still authoritative
		log.Printf("parser/resolve GetProfile %v: %v", did, err)
		return types.Actor{DID: did}, true
	}

	return profile.Actor(), true
}

// Walk classifies the parent ref by its collection discriminator and
// recovers the original post behind it. It returns nil when there is no
// hidden-content puzzle to solve, and never returns an error: every failing
// sub-fetch degrades to "could not resolve".
func (s *Service) Walk(ctx context.Context, parent types.PostRef) *Original {
	ctx, span := tracer.Start(ctx, "Walk")
	defer span.End()

	_, collection, _, err := types.ParseAtURI(parent.URI)
	if err != nil {
		log.Printf("parser/walk malformed parent uri %v: %v", parent.URI, err)
		return nil
	}

	switch collection {
	case world.RepostCollection:
		return s.walkRepost(ctx, parent)
	case world.PostCollection:
		return s.walkDirectPost(ctx, parent)
	}

	log.Printf("parser/walk unknown collection %v in %v", collection, parent.URI)
	return nil
}

func (s *Service) walkRepost(ctx context.Context, ref types.PostRef) *Original {
	repost, ok := s.fetchView(ctx, ref.URI)
	if !ok {
		return nil
	}

	reposter := repost.Author.Actor()

	// the declared subject is the primary source for the original
	record, err := repost.DecodeRepostRecord()
	if err == nil && record.Subject.URI != "" {
		if author, ok := s.ResolveAuthor(ctx, record.Subject.URI); ok {
			return &Original{
				Author:       author,
				Ref:          record.Subject,
				Intermediate: &reposter,
				Kind:         KindRepost,
			}
		}
	}

	// the rendered view can diverge from the declared subject when the
	// platform itself could not render it; the placeholder's own uri is
	// then the only recoverable address
	if repost.Embed != nil && repost.Embed.Record != nil {
		embedded := repost.Embed.Record

		if embedded.Blocked || embedded.NotFound {
			if author, ok := s.ResolveAuthor(ctx, embedded.URI); ok {
				return &Original{
					Author:       author,
					Ref:          types.PostRef{URI: embedded.URI, CID: embedded.CID},
					Intermediate: &reposter,
					Kind:         KindRepost,
				}
			}
		}

		if embedded.Author != nil {
			return &Original{
				Author:       embedded.Author.Actor(),
				Ref:          types.PostRef{URI: embedded.URI, CID: embedded.CID},
				Intermediate: &reposter,
				Kind:         KindRepost,
			}
		}
	}

	log.Printf("parser/walk no original recoverable from repost %v", ref.URI)
	return nil
}

func (s *Service) walkDirectPost(ctx context.Context, ref types.PostRef) *Original {
	post, ok := s.fetchView(ctx, ref.URI)
	if !ok {
		return nil
	}

	poster := post.Author.Actor()

	// reply-to-hidden-post: the declared root is the true thread origin, so
	// it is probed before the immediate parent, and the first hidden ref
	// wins. Information from the two is never merged.
	record, err := post.DecodePostRecord()
	if err == nil && record.Reply != nil {
		rootURI := record.Reply.Root.URI
		parentURI := record.Reply.Parent.URI

		if rootURI != "" && rootURI != parentURI {
			if original := s.resolveHidden(ctx, record.Reply.Root); original != nil {
				original.Intermediate = &poster
				original.Kind = KindReply
				return original
			}
		}

		if parentURI != "" && parentURI != ref.URI {
			if original := s.resolveHidden(ctx, record.Reply.Parent); original != nil {
				original.Intermediate = &poster
				original.Kind = KindReply
				return original
			}
		}
	}

	// quote-post: a blocked or missing embedded record is the hidden
	// original; a fully visible embed means there is nothing to explain
	if post.Embed != nil && post.Embed.Record != nil {
		embedded := post.Embed.Record

		if embedded.Blocked || embedded.NotFound {
			if author, ok := s.ResolveAuthor(ctx, embedded.URI); ok {
				return &Original{
					Author:       author,
					Ref:          types.PostRef{URI: embedded.URI, CID: embedded.CID},
					Intermediate: &poster,
					Kind:         KindQuote,
				}
			}
		}
	}

	return nil
}

// resolveHidden reports ref's author only when the referenced post is
// hidden: unfetchable, absent from the response, or flagged by the
// platform. A post that renders normally is not the content being hidden
// from anyone, so it resolves to nil.
func (s *Service) resolveHidden(ctx context.Context, ref types.PostRef) *Original {
	views, err := s.client.GetPosts(ctx, []string{ref.URI})
	if err != nil || len(views) == 0 {
		if author, ok := s.ResolveAuthor(ctx, ref.URI); ok {
			return &Original{Author: author, Ref: ref}
		}
		return nil
	}

	view := views[0]
	if view.Blocked || view.NotFound {
		if author, ok := s.ResolveAuthor(ctx, ref.URI); ok {
			return &Original{Author: author, Ref: ref}
		}
		return nil
	}

	return nil
}

// fetchView fetches a single rendered view, treating any failure or an
// empty response as an unusable reference.
func (s *Service) fetchView(ctx context.Context, uri string) (types.PostView, bool) {
	views, err := s.client.GetPosts(ctx, []string{uri})
	if err != nil {
		log.Printf("parser/walk GetPosts %v: %v", uri, err)
		return types.PostView{}, false
	}
	if len(views) == 0 {
		log.Printf("parser/walk no view returned for %v", uri)
		return types.PostView{}, false
	}
	return views[0], true
}
