package atclient

import (
	"context"
	"log"
	"regexp"

	"github.com/LanceLiang2011/whoblockwho/types"
)

// Facet is a rich-text annotation span over the post text, addressed in
// byte offsets as the platform requires.
type Facet struct {
	Index    FacetIndex     `json:"index"`
	Features []FacetFeature `json:"features"`
}

type FacetIndex struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type FacetFeature struct {
	Type string `json:"$type"`
	DID  string `json:"did,omitempty"`
	URI  string `json:"uri,omitempty"`
}

type postRecord struct {
	Type      string          `json:"$type"`
	Text      string          `json:"text"`
	CreatedAt string          `json:"createdAt"`
	Reply     *types.ReplyRef `json:"reply,omitempty"`
	Facets    []Facet         `json:"facets,omitempty"`
}

var (
	mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9][a-zA-Z0-9.-]*\.[a-zA-Z]{2,})`)
	linkPattern    = regexp.MustCompile(`https?://[^\s)\]]+`)
)

// DetectFacets finds @handle mentions and bare links in text and resolves
// mention handles to dids. A handle that fails to resolve is left as plain
// text rather than failing the whole post.
func (c *Client) DetectFacets(ctx context.Context, text string) []Facet {
	var facets []Facet

	for _, match := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		handle := text[match[2]:match[3]]
		did, err := c.resolveHandle(ctx, handle)
		if err != nil {
			log.Printf("atclient/facets resolveHandle %v: %v", handle, err)
			continue
		}
		facets = append(facets, Facet{
			Index: FacetIndex{ByteStart: match[0], ByteEnd: match[1]},
			Features: []FacetFeature{
				{Type: "app.bsky.richtext.facet#mention", DID: did},
			},
		})
	}

	for _, match := range linkPattern.FindAllStringIndex(text, -1) {
		facets = append(facets, Facet{
			Index: FacetIndex{ByteStart: match[0], ByteEnd: match[1]},
			Features: []FacetFeature{
				{Type: "app.bsky.richtext.facet#link", URI: text[match[0]:match[1]]},
			},
		})
	}

	return facets
}
