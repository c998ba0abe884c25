package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PostRef is the address of a post or repost record plus its content hash.
// The URI is always treated as untrusted and possibly stale.
type PostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// ParseAtURI splits an at:// URI into its did, collection and record key
// parts. Malformed input fails closed.
func ParseAtURI(uri string) (did, collection, rkey string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return "", "", "", fmt.Errorf("not an at:// uri: %s", uri)
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" {
		return "", "", "", fmt.Errorf("malformed at:// uri: %s", uri)
	}
	did = parts[0]
	collection = parts[1]
	if len(parts) > 2 {
		rkey = parts[2]
	}
	return did, collection, rkey, nil
}

// ReplyRef is the thread root/parent pair of a reply record.
type ReplyRef struct {
	Root   PostRef `json:"root"`
	Parent PostRef `json:"parent"`
}

// Actor is a network identity. The DID is immutable; the handle may lag
// behind resolution and is empty when only the DID was recoverable.
type Actor struct {
	DID    string `json:"did"`
	Handle string `json:"handle,omitempty"`
}

// Name returns the best display form for reply text.
func (a Actor) Name() string {
	if a.Handle != "" {
		return "@" + a.Handle
	}
	return a.DID
}

// Profile is a profile view returned by the transport layer.
type Profile struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
}

func (p Profile) Actor() Actor {
	return Actor{DID: p.DID, Handle: p.Handle}
}

// Relationship is the directional block state between the queried actor and
// one other, from the queried actor's viewpoint. The zero value is the
// fail-open default used when a lookup could not be completed.
type Relationship struct {
	DID       string
	Blocking  bool
	BlockedBy bool
}

// UnmarshalJSON maps the wire shape, where blocking is the at:// URI of the
// block record when present, onto plain booleans.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	var raw struct {
		DID       string `json:"did"`
		Blocking  string `json:"blocking"`
		BlockedBy bool   `json:"blockedBy"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.DID = raw.DID
	r.Blocking = raw.Blocking != ""
	r.BlockedBy = raw.BlockedBy
	return nil
}

// Notification is one inbound notification event. The record payload is
// decoded once at the boundary, never probed downstream.
type Notification struct {
	URI       string          `json:"uri"`
	CID       string          `json:"cid"`
	Author    Profile         `json:"author"`
	Reason    string          `json:"reason"`
	Record    json.RawMessage `json:"record"`
	IsRead    bool            `json:"isRead"`
	IndexedAt time.Time       `json:"indexedAt"`
}

// Ref returns the notification's own content ref.
func (n Notification) Ref() PostRef {
	return PostRef{URI: n.URI, CID: n.CID}
}

// DecodePostRecord decodes the notification's record as a post record.
func (n Notification) DecodePostRecord() (PostRecord, error) {
	var rec PostRecord
	err := json.Unmarshal(n.Record, &rec)
	return rec, err
}

// PostRecord is the stored record of an ordinary post.
type PostRecord struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Reply     *ReplyRef `json:"reply,omitempty"`
}

// RepostRecord is the stored record of a repost; Subject is the declared
// reference to the reposted content.
type RepostRecord struct {
	Subject   PostRef   `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReplyPost is the outbound reply payload handed to the transport layer.
// Facet detection happens there, not in the composer.
type ReplyPost struct {
	Text  string
	Reply *ReplyRef
}
