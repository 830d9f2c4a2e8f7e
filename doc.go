// Package pacote resolves abstract package requests (name plus version
// selector) against an npm-style registry into concrete, cryptographically
// verified package records: a tarball URL, a reconciled content-integrity
// digest and validated publisher signatures.
//
// A Client is bound to one registry and carries the caller-owned packument
// cache and trust-key store. Requests go through a Fetcher, obtained per
// request, whose Manifest result is memoized:
//
//	c, err := pacote.New("https://registry.npmjs.org",
//		pacote.WithCache(cache.New()),
//		pacote.WithTrustStore(keys),
//		pacote.WithVerifySignatures(true))
//	resolved, err := c.Manifest(ctx, "lodash@^4.17.0")
//
// Tarball streaming, extraction and registry authentication are out of
// scope; the HTTP client is an opaque fetch capability.
package pacote
