package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/jfmyers9/spinpost/internal/content"
	"github.com/jfmyers9/spinpost/internal/stats"
	"github.com/rs/zerolog"
)

// DefaultBlueskyService is the PDS entryway used when none is configured
const DefaultBlueskyService = "https://bsky.social"

const (
	linkFeature = "app.bsky.richtext.facet#link"
	tagFeature  = "app.bsky.richtext.facet#tag"
	postType    = "app.bsky.feed.post"
)

// BlueskyConfig holds Bluesky credentials
type BlueskyConfig struct {
	Handle     string
	Password   string // app password
	Service    string
	HTTPClient *http.Client
}

// Bluesky posts rich text with link and hashtag facets over XRPC
type Bluesky struct {
	cfg        BlueskyConfig
	httpClient *http.Client
	now        func() time.Time
	logger     zerolog.Logger
}

// NewBluesky creates a Bluesky poster
func NewBluesky(cfg BlueskyConfig, logger zerolog.Logger) *Bluesky {
	if cfg.Service == "" {
		cfg.Service = DefaultBlueskyService
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Bluesky{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
		logger:     logger.With().Str("component", "bluesky").Logger(),
	}
}

func (b *Bluesky) Name() string { return "bluesky" }

func (b *Bluesky) IsConfigured() bool { return len(b.Missing()) == 0 }

// Missing lists the unset environment variables
func (b *Bluesky) Missing() []string {
	var missing []string
	if b.cfg.Handle == "" {
		missing = append(missing, "BSKY_HANDLE")
	}
	if b.cfg.Password == "" {
		missing = append(missing, "BSKY_PASSWORD")
	}
	return missing
}

func (b *Bluesky) BuildContent(s stats.Summary) content.Post {
	return content.RichText(s)
}

type session struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

type facetIndex struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type facetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri,omitempty"`
	Tag  string `json:"tag,omitempty"`
}

type facet struct {
	Index    facetIndex     `json:"index"`
	Features []facetFeature `json:"features"`
}

type postRecord struct {
	Type      string   `json:"$type"`
	Text      string   `json:"text"`
	CreatedAt string   `json:"createdAt"`
	Facets    []facet  `json:"facets,omitempty"`
	Langs     []string `json:"langs,omitempty"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// Post logs in with the app password and creates a feed post record
func (b *Bluesky) Post(ctx context.Context, p content.Post) (Result, error) {
	sess, err := b.createSession(ctx)
	if err != nil {
		return Result{}, err
	}

	rec := createRecordRequest{
		Repo:       sess.Did,
		Collection: postType,
		Record: postRecord{
			Type:      postType,
			Text:      p.Text,
			CreatedAt: b.now().UTC().Format(time.RFC3339Nano),
			Facets:    toFacets(p.Facets),
			Langs:     []string{"en"},
		},
	}

	var out createRecordResponse
	if err := b.xrpc(ctx, "com.atproto.repo.createRecord", sess.AccessJwt, rec, &out); err != nil {
		return Result{}, err
	}

	handle := sess.Handle
	if handle == "" {
		handle = sess.Did
	}
	url := fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, path.Base(out.URI))

	b.logger.Debug().Str("uri", out.URI).Msg("Created post record")
	return Result{ID: out.URI, URL: url}, nil
}

func (b *Bluesky) createSession(ctx context.Context) (*session, error) {
	req := map[string]string{
		"identifier": b.cfg.Handle,
		"password":   b.cfg.Password,
	}
	var sess session
	if err := b.xrpc(ctx, "com.atproto.server.createSession", "", req, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// xrpc calls a procedure (POST) with a JSON body
func (b *Bluesky) xrpc(ctx context.Context, nsid, token string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", nsid, err)
	}

	u := strings.TrimRight(b.cfg.Service, "/") + "/xrpc/" + nsid
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	b.logger.Debug().Str("nsid", nsid).Msg("XRPC call")

	body, err := send(b.httpClient, req, b.Name())
	if err != nil {
		return err
	}
	return decode(body, out, b.Name())
}

func toFacets(in []content.Facet) []facet {
	if len(in) == 0 {
		return nil
	}
	out := make([]facet, 0, len(in))
	for _, f := range in {
		feat := facetFeature{Type: linkFeature, URI: f.URI}
		if f.Tag != "" {
			feat = facetFeature{Type: tagFeature, Tag: f.Tag}
		}
		out = append(out, facet{
			Index:    facetIndex{ByteStart: f.ByteStart, ByteEnd: f.ByteEnd},
			Features: []facetFeature{feat},
		})
	}
	return out
}
