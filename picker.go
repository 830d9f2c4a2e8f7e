package pacote

import (
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/jablko/pacote/packument"
	"github.com/jablko/pacote/ref"
)

// Policy carries the matching inputs the picker consumes.
type Policy struct {
	// DefaultTag is resolved for requests without a selector.
	DefaultTag string
	// Before, when set, excludes versions published after the cutoff.
	Before *time.Time
}

// VersionPicker selects exactly one manifest from a packument, or fails
// with a *NoMatchingVersionError. Implementations own the matching
// algorithm; the resolver owns everything around it.
type VersionPicker interface {
	Pick(p *packument.Packument, r ref.Ref, policy Policy) (*packument.Manifest, error)
}

// SemverPicker is the default picker: exact versions, semver ranges and
// dist-tags, constrained by the policy's publish-time cutoff.
type SemverPicker struct{}

func (SemverPicker) Pick(p *packument.Packument, r ref.Ref, policy Policy) (*packument.Manifest, error) {
	allowed := func(version string) bool {
		if policy.Before == nil {
			return true
		}
		published := p.PublishedAt(version)
		return !published.IsZero() && !published.After(*policy.Before)
	}

	switch r.Kind {
	case ref.KindVersion:
		version := strings.TrimPrefix(r.Selector, "=")
		if m := p.Version(version); m != nil && allowed(version) {
			return m, nil
		}

	case ref.KindRange:
		constraint, err := semver.NewConstraint(r.Selector)
		if err != nil {
			break
		}
		if m := pickHighest(p, constraint, allowed); m != nil {
			return m, nil
		}

	case ref.KindTag:
		tag := r.Selector
		if tag == "" {
			tag = policy.DefaultTag
		}
		if version, ok := p.Tag(tag); ok {
			if m := p.Version(version); m != nil && allowed(version) {
				return m, nil
			}
			// The default tag pointing past the cutoff degrades to the
			// newest allowed version; an explicit tag does not.
			if policy.Before != nil && tag == policy.DefaultTag {
				if m := pickHighest(p, nil, allowed); m != nil {
					return m, nil
				}
			}
		}
	}

	return nil, &NoMatchingVersionError{
		Name:     p.Name,
		Selector: r.Selector,
		DistTags: p.DistTags,
	}
}

// pickHighest returns the manifest of the highest allowed version, filtered
// by constraint when non-nil. Versions that do not parse as semver are
// skipped rather than failing the whole pick.
func pickHighest(p *packument.Packument, constraint *semver.Constraints, allowed func(string) bool) *packument.Manifest {
	var best *semver.Version
	bestRaw := ""
	for raw := range p.Versions {
		if !allowed(raw) {
			continue
		}
		version, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if constraint != nil && !constraint.Check(version) {
			continue
		}
		if best == nil || version.GreaterThan(best) {
			best = version
			bestRaw = raw
		}
	}
	if best == nil {
		return nil
	}
	return p.Versions[bestRaw]
}
