// Package ref parses package request strings ("lodash", "@scope/pkg@^1.2.0",
// "https://host/pkg.tgz") into a name, a selector and a request kind.
//
// The kind is a tagged dispatch value: registry-backed requests (exact
// version, range, dist-tag) are handled by the registry fetcher, while
// remote, git and directory requests route to their own fetchers.
package ref

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind classifies what a request selector points at.
type Kind string

const (
	// KindVersion is an exact published version ("1.2.3").
	KindVersion Kind = "version"
	// KindRange is a semver range ("^1.2.0", ">=2 <3").
	KindRange Kind = "range"
	// KindTag is a dist-tag name ("latest", "beta"). The empty selector is a
	// tag request for the policy's default tag.
	KindTag Kind = "tag"
	// KindRemote is a direct tarball URL.
	KindRemote Kind = "remote"
	// KindGit is a source-control URL.
	KindGit Kind = "git"
	// KindDirectory is a local directory path.
	KindDirectory Kind = "directory"
)

// Ref is a parsed package request.
type Ref struct {
	// Raw is the input string, unmodified.
	Raw string
	// Name is the package name, empty for remote/git/directory requests
	// given without an alias.
	Name string
	// Selector is the version, range, tag, URL or path the request asks for.
	Selector string
	Kind     Kind
}

// nameRegexp follows the registry's naming rules: optional @scope/ prefix,
// lowercase URL-safe characters, no leading dot or underscore.
var nameRegexp = regexp.MustCompile(`^(@[a-z0-9\-*~][a-z0-9\-*._~]*/)?[a-z0-9\-~][a-z0-9\-._~]*$`)

// tagRegexp rejects selectors that could not be a dist-tag (whitespace,
// path separators, URL-encoding hazards).
var tagRegexp = regexp.MustCompile(`^[^\s/\\]+$`)

// Parse parses a raw request string into a Ref.
func Parse(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("empty package spec")
	}

	if kind, ok := selectorKind(raw); ok {
		return Ref{Raw: raw, Selector: raw, Kind: kind}, nil
	}

	name, selector := splitName(raw)
	if !nameRegexp.MatchString(name) {
		return Ref{}, fmt.Errorf("invalid package name %q in spec %q", name, raw)
	}

	r := Ref{Raw: raw, Name: name, Selector: selector}
	if kind, ok := selectorKind(selector); ok {
		// aliased form, e.g. "foo@https://host/foo.tgz"
		r.Kind = kind
		return r, nil
	}

	switch {
	case selector == "":
		r.Kind = KindTag
	case isExactVersion(selector):
		r.Kind = KindVersion
	case isRange(selector):
		r.Kind = KindRange
	default:
		if !tagRegexp.MatchString(selector) {
			return Ref{}, fmt.Errorf("invalid selector %q in spec %q", selector, raw)
		}
		r.Kind = KindTag
	}
	return r, nil
}

// String renders the request as "name@selector", falling back to the raw
// input for requests without a name.
func (r Ref) String() string {
	if r.Name == "" {
		return r.Raw
	}
	if r.Selector == "" {
		return r.Name
	}
	return r.Name + "@" + r.Selector
}

// Registry reports whether the request resolves through a registry
// packument (version, range or tag kinds).
func (r Ref) Registry() bool {
	switch r.Kind {
	case KindVersion, KindRange, KindTag:
		return true
	}
	return false
}

// splitName splits "name@selector" at the last "@" past the scope marker.
// A missing selector yields an empty string.
func splitName(raw string) (name, selector string) {
	at := strings.LastIndex(raw, "@")
	if at <= 0 {
		return raw, ""
	}
	return raw[:at], raw[at+1:]
}

// selectorKind classifies non-registry selectors by their scheme or path
// shape. Returns false for anything that could be a registry selector.
func selectorKind(s string) (Kind, bool) {
	switch {
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return KindRemote, true
	case strings.HasPrefix(s, "git+"), strings.HasPrefix(s, "git://"),
		strings.HasPrefix(s, "github:"), strings.HasPrefix(s, "ssh://"):
		return KindGit, true
	case strings.HasPrefix(s, "file:"), strings.HasPrefix(s, "./"),
		strings.HasPrefix(s, "../"), strings.HasPrefix(s, "/"),
		s == ".", s == "..":
		return KindDirectory, true
	}
	return "", false
}

func isExactVersion(s string) bool {
	_, err := semver.StrictNewVersion(strings.TrimPrefix(s, "="))
	return err == nil
}

func isRange(s string) bool {
	_, err := semver.NewConstraint(s)
	return err == nil
}
