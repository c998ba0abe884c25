package atclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/LanceLiang2011/whoblockwho/types"
	"github.com/LanceLiang2011/whoblockwho/world"
)

var (
	UserAgent = "Whoblockwho/1.0 (Bluesky Bot)"
)

var tracer = otel.Tracer("atclient")

// Session holds the credentials returned by createSession.
type Session struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// Client talks XRPC to a Bluesky PDS. Profile lookups go through memcache
// when a memcache client is configured; everything else hits the network
// directly with a bounded timeout.
type Client struct {
	mc      *memcache.Client
	config  types.BotConfig
	http    *http.Client
	session *Session
}

func NewClient(mc *memcache.Client, config types.BotConfig) *Client {
	if config.PDSURL == "" {
		config.PDSURL = world.DefaultPDSURL
	}
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		mc:     mc,
		config: config,
		http:   &http.Client{Timeout: timeout},
	}
}

// Session returns the current session, or nil before Login succeeded.
func (c *Client) Session() *Session {
	return c.session
}

// Login authenticates with the PDS. This is the only call whose failure is
// fatal to the process.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	var session Session
	err := c.procedure(ctx, world.CreateSessionProc, map[string]string{
		"identifier": c.config.Handle,
		"password":   c.config.AppPassword,
	}, &session)
	if err != nil {
		return errors.Wrap(err, "createSession")
	}

	c.session = &session
	return nil
}

// GetPosts fetches rendered views for up to 25 uris. Only views the
// platform could render are returned; hidden records simply do not appear.
func (c *Client) GetPosts(ctx context.Context, uris []string) ([]types.PostView, error) {
	ctx, span := tracer.Start(ctx, "GetPosts")
	defer span.End()

	params := url.Values{}
	for _, uri := range uris {
		params.Add("uris", uri)
	}

	var result struct {
		Posts []types.PostView `json:"posts"`
	}
	err := c.query(ctx, world.GetPostsProc, params, &result)
	if err != nil {
		return nil, err
	}

	return result.Posts, nil
}

// GetProfile fetches a profile view for a did or handle, through the
// memcache read-through cache when one is configured.
func (c *Client) GetProfile(ctx context.Context, actor string) (types.Profile, error) {
	ctx, span := tracer.Start(ctx, "GetProfile")
	defer span.End()

	// try cache
	if c.mc != nil {
		cache, err := c.mc.Get(actor)
		if err == nil {
			var profile types.Profile
			if err := json.Unmarshal(cache.Value, &profile); err == nil {
				return profile, nil
			}
		}
	}

	params := url.Values{}
	params.Set("actor", actor)

	var profile types.Profile
	err := c.query(ctx, world.GetProfileProc, params, &profile)
	if err != nil {
		return types.Profile{}, err
	}

	// cache
	if c.mc != nil {
		profileBytes, err := json.Marshal(profile)
		if err == nil {
			c.mc.Set(&memcache.Item{
				Key:        actor,
				Value:      profileBytes,
				Expiration: 1800, // 30 minutes
			})
		}
	}

	return profile, nil
}

// GetRelationships queries pairwise block state between actor and others,
// from actor's viewpoint.
func (c *Client) GetRelationships(ctx context.Context, actor string, others []string) ([]types.Relationship, error) {
	ctx, span := tracer.Start(ctx, "GetRelationships")
	defer span.End()

	params := url.Values{}
	params.Set("actor", actor)
	for _, other := range others {
		params.Add("others", other)
	}

	var result struct {
		Relationships []types.Relationship `json:"relationships"`
	}
	err := c.query(ctx, world.GetRelationshipsProc, params, &result)
	if err != nil {
		return nil, err
	}

	return result.Relationships, nil
}

// ListNotifications lists the account's most recent notifications.
func (c *Client) ListNotifications(ctx context.Context, limit int) ([]types.Notification, error) {
	ctx, span := tracer.Start(ctx, "ListNotifications")
	defer span.End()

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var result struct {
		Notifications []types.Notification `json:"notifications"`
	}
	err := c.query(ctx, world.ListNotificationsProc, params, &result)
	if err != nil {
		return nil, err
	}

	return result.Notifications, nil
}

// UpdateSeen marks the notification stream as read up to now.
func (c *Client) UpdateSeen(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "UpdateSeen")
	defer span.End()

	return c.procedure(ctx, world.UpdateSeenProc, map[string]string{
		"seenAt": time.Now().UTC().Format(time.RFC3339),
	}, nil)
}

// CreatePost publishes a reply post. Mention and link facets are detected
// here so that composers upstream only deal in plain text.
func (c *Client) CreatePost(ctx context.Context, post types.ReplyPost) (types.PostRef, error) {
	ctx, span := tracer.Start(ctx, "CreatePost")
	defer span.End()

	if c.session == nil {
		return types.PostRef{}, fmt.Errorf("not logged in")
	}

	record := postRecord{
		Type:      world.PostCollection,
		Text:      post.Text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Reply:     post.Reply,
		Facets:    c.DetectFacets(ctx, post.Text),
	}

	var result struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	err := c.procedure(ctx, world.CreateRecordProc, map[string]any{
		"repo":       c.session.DID,
		"collection": world.PostCollection,
		"record":     record,
	}, &result)
	if err != nil {
		return types.PostRef{}, errors.Wrap(err, "createRecord")
	}

	return types.PostRef{URI: result.URI, CID: result.CID}, nil
}

// resolveHandle resolves a handle to its did without a full profile fetch.
func (c *Client) resolveHandle(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("handle", handle)

	var result struct {
		DID string `json:"did"`
	}
	err := c.query(ctx, world.ResolveHandleProc, params, &result)
	if err != nil {
		return "", err
	}

	return result.DID, nil
}

func (c *Client) query(ctx context.Context, proc string, params url.Values, out any) error {
	endpoint := c.config.PDSURL + "/xrpc/" + proc
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

func (c *Client) procedure(ctx context.Context, proc string, body any, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.PDSURL+"/xrpc/"+proc, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if c.session != nil && !strings.HasSuffix(req.URL.Path, world.CreateSessionProc) {
		req.Header.Set("Authorization", "Bearer "+c.session.AccessJwt)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		log.Printf("atclient %s [%d]: %s", req.URL.Path, resp.StatusCode, string(respBody))
		return fmt.Errorf("xrpc error %d: %s", resp.StatusCode, req.URL.Path)
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(respBody, out)
}
