package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LanceLiang2011/whoblockwho/types"
)

type fakeClient struct {
	views    map[string]types.PostView
	fetchErr map[string]error
	profiles map[string]types.Profile
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		views:    make(map[string]types.PostView),
		fetchErr: make(map[string]error),
		profiles: make(map[string]types.Profile),
	}
}

func (f *fakeClient) GetPosts(ctx context.Context, uris []string) ([]types.PostView, error) {
	var views []types.PostView
	for _, uri := range uris {
		if err, ok := f.fetchErr[uri]; ok {
			return nil, err
		}
		if view, ok := f.views[uri]; ok {
			views = append(views, view)
		}
		// hidden records simply do not appear in the response
	}
	return views, nil
}

func (f *fakeClient) GetProfile(ctx context.Context, actor string) (types.Profile, error) {
	profile, ok := f.profiles[actor]
	if !ok {
		return types.Profile{}, fmt.Errorf("profile not found: %s", actor)
	}
	return profile, nil
}

func (f *fakeClient) addProfile(did, handle string) {
	f.profiles[did] = types.Profile{DID: did, Handle: handle}
}

func (f *fakeClient) addView(uri string, author types.Profile, record any, embed *types.EmbedView) {
	raw, _ := json.Marshal(record)
	f.views[uri] = types.PostView{
		URI:    uri,
		CID:    "cid-" + uri,
		Author: author,
		Record: raw,
		Embed:  embed,
	}
}

var (
	alice  = types.Profile{DID: "did:plc:alice", Handle: "alice.bsky.social"}
	bob    = types.Profile{DID: "did:plc:bob", Handle: "bob.bsky.social"}
	carol  = types.Profile{DID: "did:plc:carol", Handle: "carol.bsky.social"}
	dave   = types.Profile{DID: "did:plc:dave", Handle: "dave.bsky.social"}
	viewer = types.Profile{DID: "did:plc:viewer", Handle: "viewer.bsky.social"}
)

const (
	alicePostURI = "at://did:plc:alice/app.bsky.feed.post/orig"
	bobRepostURI = "at://did:plc:bob/app.bsky.feed.repost/3k"
	bobPostURI   = "at://did:plc:bob/app.bsky.feed.post/3k"
	davePostURI  = "at://did:plc:dave/app.bsky.feed.post/root"
)

func TestResolveAuthor(t *testing.T) {
	client := newFakeClient()
	client.addProfile(alice.DID, alice.Handle)
	s := NewService(client)
	ctx := context.Background()

	t.Run("full resolution", func(t *testing.T) {
		actor, ok := s.ResolveAuthor(ctx, alicePostURI)
		require.True(t, ok)
		assert.Equal(t, alice.Actor(), actor)
	})

	t.Run("identifier-only when profile lookup fails", func(t *testing.T) {
		actor, ok := s.ResolveAuthor(ctx, davePostURI)
		require.True(t, ok)
		assert.Equal(t, dave.DID, actor.DID)
		assert.Empty(t, actor.Handle)
	})

	t.Run("fails only on malformed uri", func(t *testing.T) {
		_, ok := s.ResolveAuthor(ctx, "https://not-an-at-uri")
		assert.False(t, ok)
	})
}

func TestWalkRepostWithDeclaredSubject(t *testing.T) {
	client := newFakeClient()
	client.addProfile(alice.DID, alice.Handle)
	client.addView(bobRepostURI, bob, types.RepostRecord{
		Subject: types.PostRef{URI: alicePostURI, CID: "bafy"},
	}, nil)
	s := NewService(client)

	original := s.Walk(context.Background(), types.PostRef{URI: bobRepostURI})
	require.NotNil(t, original)
	assert.Equal(t, alice.Actor(), original.Author)
	assert.Equal(t, alicePostURI, original.Ref.URI)
	require.NotNil(t, original.Intermediate)
	assert.Equal(t, bob.Actor(), *original.Intermediate)
	assert.Equal(t, KindRepost, original.Kind)
}

func TestWalkRepostFallsBackToBlockedEmbedURI(t *testing.T) {
	// declared subject and rendered view diverge: the subject is absent but
	// the embed carries a blocked placeholder with its own uri
	client := newFakeClient()
	client.addProfile(alice.DID, alice.Handle)
	client.addView(bobRepostURI, bob, map[string]string{"createdAt": "2024-05-01T00:00:00Z"},
		&types.EmbedView{Record: &types.EmbedRecord{URI: alicePostURI, Blocked: true}})
	s := NewService(client)

	original := s.Walk(context.Background(), types.PostRef{URI: bobRepostURI})
	require.NotNil(t, original)
	assert.Equal(t, alice.Actor(), original.Author)
	require.NotNil(t, original.Intermediate)
	assert.Equal(t, bob.DID, original.Intermediate.DID)
	assert.Equal(t, KindRepost, original.Kind)
}

func TestWalkQuoteWithNotFoundEmbed(t *testing.T) {
	client := newFakeClient()
	client.addProfile(carol.DID, carol.Handle)
	quoteURI := "at://did:plc:bob/app.bsky.feed.post/quote"
	hiddenURI := "at://did:plc:carol/app.bsky.feed.post/hidden"
	client.addView(quoteURI, bob, types.PostRecord{Text: "look"},
		&types.EmbedView{Record: &types.EmbedRecord{URI: hiddenURI, NotFound: true}})
	s := NewService(client)

	original := s.Walk(context.Background(), types.PostRef{URI: quoteURI})
	require.NotNil(t, original)
	assert.Equal(t, carol.Actor(), original.Author)
	assert.Equal(t, hiddenURI, original.Ref.URI)
	require.NotNil(t, original.Intermediate)
	assert.Equal(t, bob.Actor(), *original.Intermediate)
	assert.Equal(t, KindQuote, original.Kind)
}

func TestWalkQuoteWithVisibleEmbedIsNil(t *testing.T) {
	client := newFakeClient()
	quoteURI := "at://did:plc:bob/app.bsky.feed.post/quote"
	client.addView(quoteURI, bob, types.PostRecord{Text: "look"},
		&types.EmbedView{Record: &types.EmbedRecord{URI: alicePostURI, Author: &alice}})
	s := NewService(client)

	// nothing is hidden, so there is nothing to explain
	assert.Nil(t, s.Walk(context.Background(), types.PostRef{URI: quoteURI}))
}

func TestWalkReplyWithHiddenRoot(t *testing.T) {
	client := newFakeClient()
	client.addProfile(dave.DID, dave.Handle)
	parentOfMention := "at://did:plc:bob/app.bsky.feed.post/reply"
	visibleParent := "at://did:plc:carol/app.bsky.feed.post/mid"
	client.addView(parentOfMention, bob, types.PostRecord{
		Text: "replying",
		Reply: &types.ReplyRef{
			Root:   types.PostRef{URI: davePostURI},
			Parent: types.PostRef{URI: visibleParent},
		},
	}, nil)
	// davePostURI is absent from getPosts responses: hidden

	s := NewService(client)
	original := s.Walk(context.Background(), types.PostRef{URI: parentOfMention})
	require.NotNil(t, original)
	assert.Equal(t, dave.Actor(), original.Author)
	assert.Equal(t, davePostURI, original.Ref.URI)
	require.NotNil(t, original.Intermediate)
	assert.Equal(t, bob.Actor(), *original.Intermediate)
	assert.Equal(t, KindReply, original.Kind)
}

func TestWalkReplyRootPrecedesParent(t *testing.T) {
	// both root and parent are hidden: the declared root wins outright and
	// no information is merged from the parent
	client := newFakeClient()
	client.addProfile(dave.DID, dave.Handle)
	client.addProfile(carol.DID, carol.Handle)
	replyURI := "at://did:plc:bob/app.bsky.feed.post/reply"
	hiddenParent := "at://did:plc:carol/app.bsky.feed.post/alsohidden"
	client.addView(replyURI, bob, types.PostRecord{
		Reply: &types.ReplyRef{
			Root:   types.PostRef{URI: davePostURI},
			Parent: types.PostRef{URI: hiddenParent},
		},
	}, nil)

	s := NewService(client)
	original := s.Walk(context.Background(), types.PostRef{URI: replyURI})
	require.NotNil(t, original)
	assert.Equal(t, dave.Actor(), original.Author)
}

func TestWalkReplyFallsBackToParentWhenRootVisible(t *testing.T) {
	client := newFakeClient()
	client.addProfile(carol.DID, carol.Handle)
	replyURI := "at://did:plc:bob/app.bsky.feed.post/reply"
	hiddenParent := "at://did:plc:carol/app.bsky.feed.post/hidden"
	client.addView(davePostURI, dave, types.PostRecord{Text: "the visible root"}, nil)
	client.addView(replyURI, bob, types.PostRecord{
		Reply: &types.ReplyRef{
			Root:   types.PostRef{URI: davePostURI},
			Parent: types.PostRef{URI: hiddenParent},
		},
	}, nil)

	s := NewService(client)
	original := s.Walk(context.Background(), types.PostRef{URI: replyURI})
	require.NotNil(t, original)
	assert.Equal(t, carol.Actor(), original.Author)
	assert.Equal(t, KindReply, original.Kind)
}

func TestWalkReplyFetchErrorCountsAsHidden(t *testing.T) {
	client := newFakeClient()
	client.addProfile(dave.DID, dave.Handle)
	replyURI := "at://did:plc:bob/app.bsky.feed.post/reply"
	client.addView(replyURI, bob, types.PostRecord{
		Reply: &types.ReplyRef{
			Root:   types.PostRef{URI: davePostURI},
			Parent: types.PostRef{URI: "at://did:plc:carol/app.bsky.feed.post/mid"},
		},
	}, nil)
	client.fetchErr[davePostURI] = fmt.Errorf("network timeout")

	s := NewService(client)
	original := s.Walk(context.Background(), types.PostRef{URI: replyURI})
	require.NotNil(t, original)
	assert.Equal(t, dave.Actor(), original.Author)
}

func TestWalkTotality(t *testing.T) {
	client := newFakeClient()
	client.addView(bobPostURI, bob, types.PostRecord{Text: "plain post, no reply, no embed"}, nil)
	s := NewService(client)
	ctx := context.Background()

	tests := []struct {
		name   string
		parent types.PostRef
	}{
		{"plain post", types.PostRef{URI: bobPostURI}},
		{"unknown collection", types.PostRef{URI: "at://did:plc:bob/app.bsky.feed.like/3k"}},
		{"malformed uri", types.PostRef{URI: "not a uri at all"}},
		{"unfetchable repost", types.PostRef{URI: "at://did:plc:gone/app.bsky.feed.repost/3k"}},
		{"empty ref", types.PostRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Nil(t, s.Walk(ctx, tt.parent))
			})
		})
	}
}

func TestWalkResultAlwaysHasAuthor(t *testing.T) {
	client := newFakeClient()
	client.addProfile(alice.DID, alice.Handle)
	client.addView(bobRepostURI, bob, types.RepostRecord{
		Subject: types.PostRef{URI: alicePostURI},
	}, nil)
	s := NewService(client)

	original := s.Walk(context.Background(), types.PostRef{URI: bobRepostURI})
	require.NotNil(t, original)
	assert.NotEmpty(t, original.Author.DID)
}
