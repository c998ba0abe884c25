package response

import (
	"strings"

	"github.com/LanceLiang2011/whoblockwho/types"
	"github.com/LanceLiang2011/whoblockwho/world"
)

// HelpText is the fallback sent when a mention holds no hidden-content
// puzzle the walker could recognize.
const HelpText = "I couldn't find a hidden post to analyze. Mention me in a reply to a repost or quote that shows \"[Post unavailable]\" and I'll tell you who blocked whom."

// Compose renders the explanation as a threaded reply payload. Parent is
// always the mention being answered; root is the thread root the
// dispatcher computed once. Facet detection is the transport's concern.
func Compose(text string, root, parent types.PostRef) types.ReplyPost {
	return types.ReplyPost{
		Text: text,
		Reply: &types.ReplyRef{
			Root:   root,
			Parent: parent,
		},
	}
}

// WithOriginalLink appends the public web address of the original post when
// its ref converts cleanly; otherwise the text is returned unchanged.
func WithOriginalLink(text string, original types.PostRef) string {
	link, ok := PostWebURL(original.URI)
	if !ok {
		return text
	}
	return text + " Original post: " + link
}

// PostWebURL converts an at:// post uri to its bsky.app web address.
func PostWebURL(atURI string) (string, bool) {
	did, collection, rkey, err := types.ParseAtURI(atURI)
	if err != nil || collection != world.PostCollection || rkey == "" {
		return "", false
	}
	return strings.Join([]string{world.ProfileWebURL, did, "post", rkey}, "/"), true
}
