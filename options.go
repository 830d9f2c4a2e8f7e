package pacote

import (
	"net/http"
	"time"

	"github.com/jablko/pacote/cache"
	"github.com/jablko/pacote/integrity"
	"github.com/jablko/pacote/trust"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default retrying HTTP client. The transport
// owns timeouts, retries and authentication; this module treats it as an
// opaque fetch capability.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithCache supplies the packument cache. The caller owns its lifetime:
// share one cache across a whole command, or pass a fresh one per call.
func WithCache(packuments *cache.Cache) Option {
	return func(c *Client) {
		c.cache = packuments
	}
}

// WithTrustStore supplies the registry signing keys used when signature
// verification is enabled.
func WithTrustStore(store trust.Store) Option {
	return func(c *Client) {
		c.trust = store
	}
}

// WithVerifySignatures toggles publisher signature verification. When
// disabled, declared signatures are carried through unvalidated.
func WithVerifySignatures(verify bool) Option {
	return func(c *Client) {
		c.verifySignatures = verify
	}
}

// WithFullMetadata requests the full packument representation up front
// instead of the compact one.
func WithFullMetadata(full bool) Option {
	return func(c *Client) {
		c.fullMetadata = full
	}
}

// WithBefore restricts resolution to versions published at or before the
// cutoff. Forces full metadata, since compact documents carry no publish
// times.
func WithBefore(cutoff time.Time) Option {
	return func(c *Client) {
		c.before = &cutoff
	}
}

// WithDefaultTag sets the dist-tag used for requests without a selector.
// Defaults to "latest".
func WithDefaultTag(tag string) Option {
	return func(c *Client) {
		c.defaultTag = tag
	}
}

// WithPicker replaces the version matching policy. The default picker
// implements semver ranges, exact versions and dist-tags.
func WithPicker(picker VersionPicker) Option {
	return func(c *Client) {
		c.picker = picker
	}
}

// RequestOption configures a single fetch request.
type RequestOption func(*request)

type request struct {
	expected integrity.Digest
}

// WithExpectedIntegrity supplies a caller-side integrity expectation (from a
// lockfile, typically) to reconcile against the registry's declaration.
func WithExpectedIntegrity(expected integrity.Digest) RequestOption {
	return func(r *request) {
		r.expected = expected
	}
}
