package pacote

import (
	"errors"
	"fmt"

	"github.com/jablko/pacote/ref"
)

// coder is implemented by every error this module surfaces with a stable
// machine-readable code.
type coder interface {
	Code() string
}

// ErrorCode extracts the stable error code from err, or the empty string
// when err carries none. Codes surfaced at the boundary:
//
//	E404                 upstream packument not found
//	ETARGET              no version matches the selector
//	EINTEGRITY           integrity conflict
//	EMISSINGSIGNATUREKEY signature key absent from the trust store
//	EEXPIREDSIGNATUREKEY signature key expired
//	EINTEGRITYSIGNATURE  signature bytes invalid
//	ENOTARBALL           selected manifest has no tarball field
//	EUNSUPPORTED         request kind has no fetcher
func ErrorCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// NotFoundError reports an upstream 404 for a packument URL.
type NotFoundError struct {
	Spec string
	URL  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("404 Not Found - GET %s - %s not found", e.URL, e.Spec)
}

func (e *NotFoundError) Code() string { return "E404" }

// NoMatchingVersionError reports that no published version satisfies the
// request selector.
type NoMatchingVersionError struct {
	Name     string
	Selector string
	// DistTags is the document's tag table at resolution time, for
	// diagnostics.
	DistTags map[string]string
}

func (e *NoMatchingVersionError) Error() string {
	return fmt.Sprintf("no matching version found for %s@%s", e.Name, e.Selector)
}

func (e *NoMatchingVersionError) Code() string { return "ETARGET" }

// NoTarballError reports a selected manifest without a tarball URL.
type NoTarballError struct {
	Spec string
}

func (e *NoTarballError) Error() string {
	return fmt.Sprintf("invalid manifest: no tarball field for %s", e.Spec)
}

func (e *NoTarballError) Code() string { return "ENOTARBALL" }

// UnsupportedSpecError reports a request kind this module has no fetcher
// for (source-control and local-directory requests).
type UnsupportedSpecError struct {
	Spec string
	Kind ref.Kind
}

func (e *UnsupportedSpecError) Error() string {
	return fmt.Sprintf("%s specs are not supported: %s", e.Kind, e.Spec)
}

func (e *UnsupportedSpecError) Code() string { return "EUNSUPPORTED" }
