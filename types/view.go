package types

import (
	"encoding/json"
)

// PostView is a rendered post or repost as returned by the platform. The
// record payload stays raw until a caller decodes it against the collection
// named in the URI.
type PostView struct {
	URI      string          `json:"uri"`
	CID      string          `json:"cid"`
	Author   Profile         `json:"author"`
	Record   json.RawMessage `json:"record"`
	Embed    *EmbedView      `json:"embed,omitempty"`
	Blocked  bool            `json:"blocked,omitempty"`
	NotFound bool            `json:"notFound,omitempty"`
}

func (p PostView) Ref() PostRef {
	return PostRef{URI: p.URI, CID: p.CID}
}

// DecodePostRecord decodes the view's record as an ordinary post record.
func (p PostView) DecodePostRecord() (PostRecord, error) {
	var rec PostRecord
	err := json.Unmarshal(p.Record, &rec)
	return rec, err
}

// DecodeRepostRecord decodes the view's record as a repost record.
func (p PostView) DecodeRepostRecord() (RepostRecord, error) {
	var rec RepostRecord
	err := json.Unmarshal(p.Record, &rec)
	return rec, err
}

// EmbedRecord is the normalized form of an embedded sub-view. Blocked and
// NotFound mark placeholder records the platform refused to render; for
// those only the URI (and sometimes the author DID) is populated.
type EmbedRecord struct {
	URI      string
	CID      string
	Author   *Profile
	Blocked  bool
	NotFound bool
}

// EmbedView is the decoded embed of a rendered post. Only quote-style embeds
// carry a Record; media, external-link and unknown embed kinds decode to an
// empty EmbedView rather than an error.
type EmbedView struct {
	Record *EmbedRecord
}

const (
	embedRecordView          = "app.bsky.embed.record#view"
	embedRecordWithMediaView = "app.bsky.embed.recordWithMedia#view"
	embedViewRecord          = "app.bsky.embed.record#viewRecord"
	embedViewNotFound        = "app.bsky.embed.record#viewNotFound"
	embedViewBlocked         = "app.bsky.embed.record#viewBlocked"
)

type taggedEmbed struct {
	Type   string          `json:"$type"`
	Record json.RawMessage `json:"record"`
}

// UnmarshalJSON decodes the embed once, keyed by the declared type tag.
// Unknown tags fail closed to "no embed recognized", never to an error.
func (e *EmbedView) UnmarshalJSON(data []byte) error {
	var outer taggedEmbed
	if err := json.Unmarshal(data, &outer); err != nil {
		return err
	}

	inner := outer.Record
	if outer.Type == embedRecordWithMediaView {
		// media wrapper holds the quote one level deeper
		var wrapped taggedEmbed
		if err := json.Unmarshal(outer.Record, &wrapped); err != nil {
			return nil
		}
		inner = wrapped.Record
	} else if outer.Type != embedRecordView {
		return nil
	}

	if len(inner) == 0 {
		return nil
	}

	var rec struct {
		Type     string   `json:"$type"`
		URI      string   `json:"uri"`
		CID      string   `json:"cid"`
		Author   *Profile `json:"author"`
		Blocked  bool     `json:"blocked"`
		NotFound bool     `json:"notFound"`
	}
	if err := json.Unmarshal(inner, &rec); err != nil {
		return nil
	}

	switch rec.Type {
	case embedViewRecord:
		e.Record = &EmbedRecord{URI: rec.URI, CID: rec.CID, Author: rec.Author}
	case embedViewBlocked:
		e.Record = &EmbedRecord{URI: rec.URI, Author: rec.Author, Blocked: true}
	case embedViewNotFound:
		e.Record = &EmbedRecord{URI: rec.URI, NotFound: true}
	}

	return nil
}
