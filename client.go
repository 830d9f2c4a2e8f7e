package pacote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	slogcontext "github.com/veqryn/slog-context"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/jablko/pacote/cache"
	"github.com/jablko/pacote/internal/log"
	"github.com/jablko/pacote/packument"
	"github.com/jablko/pacote/trust"
)

// version identifies this client in protocol headers.
const version = "0.1.0"

const (
	defaultRegistry  = "https://registry.npmjs.org"
	defaultUserAgent = "pacote-go/" + version
	defaultTag       = "latest"

	// corgiAccept asks for the compact packument representation, falling
	// back to the full document when the registry cannot serve it.
	corgiAccept = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8, */*"
	fullAccept  = "application/json"

	headerVersion    = "pacote-version"
	headerReqType    = "pacote-req-type"
	headerPkgID      = "pacote-pkg-id"
	headerLocalCache = "X-Local-Cache"
)

// Client resolves package requests against one registry. The cache and
// trust store are explicit dependencies with caller-controlled lifetimes.
type Client struct {
	registry  string
	http      *http.Client
	userAgent string

	cache            *cache.Cache
	trust            trust.Store
	picker           VersionPicker
	fullMetadata     bool
	verifySignatures bool
	before           *time.Time
	defaultTag       string
}

// New creates a Client for a registry base URL. An empty registry selects
// the public npm registry.
func New(registry string, opts ...Option) (*Client, error) {
	if registry == "" {
		registry = defaultRegistry
	}
	registry = strings.TrimRight(registry, "/")
	if _, err := trust.NormalizeRegistry(registry); err != nil {
		return nil, err
	}

	c := &Client{
		registry:   registry,
		userAgent:  defaultUserAgent,
		defaultTag: defaultTag,
		picker:     SemverPicker{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = newHTTPClient(c.userAgent)
	}
	if c.cache == nil {
		c.cache = cache.New()
	}
	return c, nil
}

// Registry returns the normalized registry base URL.
func (c *Client) Registry() string {
	return c.registry
}

// PackumentURL builds the canonical packument URL for a package name:
// registry base plus the URL-escaped name, with the scope separator encoded.
func (c *Client) PackumentURL(name string) string {
	return c.registry + "/" + strings.ReplaceAll(name, "/", "%2f")
}

// Packument fetches the metadata document for a package name, going through
// the single-flight cache keyed by the canonical URL. Concurrent callers for
// the same name share one upstream request; a failed fetch leaves no cache
// entry behind.
//
// The request uses the compact representation unless full-metadata mode is
// active. A not-found response to a compact request is retried exactly once
// asking for the full document; a not-found in full mode propagates.
func (c *Client) Packument(ctx context.Context, name string) (*packument.Packument, error) {
	packumentURL := c.PackumentURL(name)
	return c.cache.GetOrFetch(ctx, packumentURL, func(ctx context.Context) (p *packument.Packument, err error) {
		done := log.Operation(ctx, "fetch packument", slog.String("name", name), slog.String("url", packumentURL))
		defer func() { done(err) }()

		// A before cutoff needs the time map, which the corgi document omits.
		fullMetadata := c.fullMetadata || c.before != nil

		p, err = c.fetchPackument(ctx, packumentURL, name, fullMetadata)
		var notFound *NotFoundError
		if err != nil && errors.As(err, &notFound) && !fullMetadata {
			slogcontext.FromCtx(ctx).Debug("corgi packument not found, retrying with full metadata", slog.String("name", name))
			p, err = c.fetchPackument(ctx, packumentURL, name, true)
		}
		return p, err
	})
}

func (c *Client) fetchPackument(ctx context.Context, packumentURL, name string, fullMetadata bool) (*packument.Packument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, packumentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build packument request for %s: %w", name, err)
	}
	accept := corgiAccept
	if fullMetadata {
		accept = fullAccept
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerVersion, version)
	req.Header.Set(headerReqType, "packument")
	req.Header.Set(headerPkgID, "registry:"+name)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch packument for %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Spec: name, URL: packumentURL}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %s fetching packument for %s", resp.Status, name)
	}

	p := &packument.Packument{}
	if err := json.NewDecoder(resp.Body).Decode(p); err != nil {
		return nil, fmt.Errorf("decode packument for %s: %w", name, err)
	}
	p.ServedFromCache = resp.Header.Get(headerLocalCache) != ""
	p.Size = resp.ContentLength
	return p, nil
}

// userAgentTransport wraps an http.RoundTripper and injects a User-Agent
// header.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// newHTTPClient returns the default HTTP client: the retrying transport with
// the identifying User-Agent layered on top. Retry and backoff policy live
// entirely in the transport.
func newHTTPClient(userAgent string) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			base:      retry.DefaultClient.Transport,
			userAgent: userAgent,
		},
	}
}
