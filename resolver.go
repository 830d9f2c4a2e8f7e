package pacote

import (
	"context"
	"log/slog"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/jablko/pacote/integrity"
	"github.com/jablko/pacote/packument"
	"github.com/jablko/pacote/ref"
	"github.com/jablko/pacote/verify"
)

// ResolvedPackage is the final, fully verified outcome of a resolution:
// where the tarball lives, which integrity to hold its bytes to, and the
// signatures that were accepted (or carried through unvalidated when
// verification is disabled). Immutable once produced.
type ResolvedPackage struct {
	Manifest  *packument.Manifest
	Tarball   string
	Integrity integrity.Digest
	// Signatures is the ordered set declared on the manifest. When
	// SignaturesVerified is false they were carried through without
	// validation and remain available for later audit.
	Signatures         []packument.Signature
	SignaturesVerified bool
}

// TarballDescriptor locates a package tarball together with the integrity
// its content must satisfy. It does not fetch any bytes.
type TarballDescriptor struct {
	URL       string
	Integrity integrity.Digest
}

// Fetcher is the per-request resolution capability. A fetcher is bound to
// one request; Manifest memoizes, so repeated calls return the identical
// resolved package without repeating network or verification work.
type Fetcher interface {
	// Spec returns the parsed request this fetcher serves.
	Spec() ref.Ref
	// Manifest resolves, verifies and returns the resolved package.
	Manifest(ctx context.Context) (*ResolvedPackage, error)
	// Resolve returns the tarball URL for the request.
	Resolve(ctx context.Context) (string, error)
	// Tarball returns the tarball location and its canonical integrity.
	Tarball(ctx context.Context) (TarballDescriptor, error)
}

// Fetcher builds the fetcher for a raw request string, dispatching on the
// parsed request kind. Source-control and local-directory requests have no
// fetcher here and fail with *UnsupportedSpecError.
func (c *Client) Fetcher(raw string, opts ...RequestOption) (Fetcher, error) {
	r, err := ref.Parse(raw)
	if err != nil {
		return nil, err
	}
	req := &request{}
	for _, opt := range opts {
		opt(req)
	}
	switch {
	case r.Registry():
		return &registryFetcher{client: c, spec: r, expected: req.expected}, nil
	case r.Kind == ref.KindRemote:
		return &remoteFetcher{spec: r, expected: req.expected}, nil
	default:
		return nil, &UnsupportedSpecError{Spec: r.String(), Kind: r.Kind}
	}
}

// Manifest resolves a raw request string in one call.
func (c *Client) Manifest(ctx context.Context, raw string, opts ...RequestOption) (*ResolvedPackage, error) {
	f, err := c.Fetcher(raw, opts...)
	if err != nil {
		return nil, err
	}
	return f.Manifest(ctx)
}

// Resolve resolves a raw request string to its tarball URL.
func (c *Client) Resolve(ctx context.Context, raw string, opts ...RequestOption) (string, error) {
	f, err := c.Fetcher(raw, opts...)
	if err != nil {
		return "", err
	}
	return f.Resolve(ctx)
}

// registryFetcher resolves version, range and tag requests through the
// registry packument.
type registryFetcher struct {
	client   *Client
	spec     ref.Ref
	expected integrity.Digest

	mu       sync.Mutex
	resolved *ResolvedPackage
}

func (f *registryFetcher) Spec() ref.Ref {
	return f.spec
}

// Manifest runs the resolution sequence: fetch packument, select one
// version, reconcile integrity, verify signatures, assemble the resolved
// package. The result is memoized per fetcher; failures are not, so a
// caller may retry after a transient error.
func (f *registryFetcher) Manifest(ctx context.Context) (*ResolvedPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved != nil {
		return f.resolved, nil
	}

	c := f.client
	p, err := c.Packument(ctx, f.spec.Name)
	if err != nil {
		return nil, err
	}

	selected, err := c.picker.Pick(p, f.spec, Policy{DefaultTag: c.defaultTag, Before: c.before})
	if err != nil {
		return nil, err
	}
	manifest := normalizeManifest(selected, p)

	declared, err := distIntegrity(manifest.Dist)
	if err != nil {
		return nil, err
	}
	canonical, err := integrity.Reconcile(f.expected, declared)
	if err != nil {
		return nil, err
	}

	verified := false
	if c.verifySignatures && len(manifest.Dist.Signatures) > 0 {
		keys, err := c.trust.Keys(c.registry)
		if err != nil {
			return nil, err
		}
		message := verify.Message(manifest.ID(), canonical.String())
		if err := verify.Signatures(ctx, manifest.ID(), message, manifest.Dist.Signatures, keys, nil); err != nil {
			return nil, err
		}
		verified = true
		slogcontext.FromCtx(ctx).Debug("registry signatures verified",
			slog.String("spec", manifest.ID()), slog.Int("signatures", len(manifest.Dist.Signatures)))
	}

	f.resolved = &ResolvedPackage{
		Manifest:           manifest,
		Tarball:            manifest.Dist.Tarball,
		Integrity:          canonical,
		Signatures:         manifest.Dist.Signatures,
		SignaturesVerified: verified,
	}
	return f.resolved, nil
}

func (f *registryFetcher) Resolve(ctx context.Context) (string, error) {
	resolved, err := f.Manifest(ctx)
	if err != nil {
		return "", err
	}
	if resolved.Tarball == "" {
		return "", &NoTarballError{Spec: f.spec.String()}
	}
	return resolved.Tarball, nil
}

func (f *registryFetcher) Tarball(ctx context.Context) (TarballDescriptor, error) {
	url, err := f.Resolve(ctx)
	if err != nil {
		return TarballDescriptor{}, err
	}
	return TarballDescriptor{URL: url, Integrity: f.resolved.Integrity}, nil
}

// remoteFetcher serves direct tarball URL requests. There is no packument
// and no registry-declared integrity; the caller's expectation, if any,
// becomes the canonical integrity.
type remoteFetcher struct {
	spec     ref.Ref
	expected integrity.Digest
}

func (f *remoteFetcher) Spec() ref.Ref {
	return f.spec
}

func (f *remoteFetcher) Manifest(_ context.Context) (*ResolvedPackage, error) {
	canonical, err := integrity.Reconcile(f.expected, nil)
	if err != nil {
		return nil, err
	}
	return &ResolvedPackage{
		Manifest: &packument.Manifest{
			Name: f.spec.Name,
			Dist: packument.Dist{Tarball: f.spec.Selector},
		},
		Tarball:   f.spec.Selector,
		Integrity: canonical,
	}, nil
}

func (f *remoteFetcher) Resolve(ctx context.Context) (string, error) {
	resolved, err := f.Manifest(ctx)
	if err != nil {
		return "", err
	}
	if resolved.Tarball == "" {
		return "", &NoTarballError{Spec: f.spec.String()}
	}
	return resolved.Tarball, nil
}

func (f *remoteFetcher) Tarball(ctx context.Context) (TarballDescriptor, error) {
	resolved, err := f.Manifest(ctx)
	if err != nil {
		return TarballDescriptor{}, err
	}
	return TarballDescriptor{URL: resolved.Tarball, Integrity: resolved.Integrity}, nil
}

// normalizeManifest copies the selected manifest and fills identity fields
// some registries omit on version records. The packument itself, shared
// through the cache, is never mutated.
func normalizeManifest(selected *packument.Manifest, p *packument.Packument) *packument.Manifest {
	manifest := *selected
	if manifest.Name == "" {
		manifest.Name = p.Name
	}
	return &manifest
}

// distIntegrity derives the registry-declared integrity of a dist record:
// the integrity field when present, the legacy shasum lifted to SRI form
// otherwise, or an empty digest when the registry asserts nothing.
func distIntegrity(dist packument.Dist) (integrity.Digest, error) {
	switch {
	case dist.Integrity != "":
		return integrity.Parse(dist.Integrity)
	case dist.Shasum != "":
		return integrity.FromHex(dist.Shasum, integrity.ShasumAlgorithm)
	default:
		return integrity.Digest{}, nil
	}
}
