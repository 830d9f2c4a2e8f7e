// Package packument holds the npm registry document types: the per-package
// metadata document ("packument") listing all published versions and
// dist-tags, and the per-version manifest with its dist record.
package packument

import (
	"time"
)

// Packument is the full metadata document served by the registry for one
// package name.
type Packument struct {
	Name     string               `json:"name"`
	DistTags map[string]string    `json:"dist-tags,omitempty"`
	Versions map[string]*Manifest `json:"versions,omitempty"`
	// Time maps version strings to publish timestamps. Only present in the
	// full (non-corgi) representation; the "created" and "modified" entries
	// are document-level, not versions.
	Time map[string]time.Time `json:"time,omitempty"`

	// Transport annotations, derived from response headers rather than the
	// document body.
	ServedFromCache bool  `json:"-"`
	Size            int64 `json:"-"`
}

// Manifest is the metadata of one published version.
type Manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Description          string            `json:"description,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
	Bin                  map[string]string `json:"bin,omitempty"`
	Engines              map[string]string `json:"engines,omitempty"`
	Deprecated           string            `json:"deprecated,omitempty"`
	Dist                 Dist              `json:"dist"`
}

// Dist locates the version's tarball and carries its integrity metadata.
type Dist struct {
	Tarball    string      `json:"tarball"`
	Shasum     string      `json:"shasum,omitempty"`
	Integrity  string      `json:"integrity,omitempty"`
	Signatures []Signature `json:"signatures,omitempty"`
}

// Signature is one publisher signature over the manifest identity and its
// integrity, as declared on the dist record.
type Signature struct {
	KeyID     string `json:"keyid"`
	Signature string `json:"sig"`
}

// ID returns the "name@version" identity string of the manifest.
func (m *Manifest) ID() string {
	return m.Name + "@" + m.Version
}

// Version returns the manifest for an exact version, or nil.
func (p *Packument) Version(version string) *Manifest {
	return p.Versions[version]
}

// Tag resolves a dist-tag to its version string. The second return reports
// whether the tag exists.
func (p *Packument) Tag(tag string) (string, bool) {
	version, ok := p.DistTags[tag]
	return version, ok
}

// PublishedAt returns the publish time of a version. Zero time when the
// document has no time entry for it (compact representations omit the time
// map entirely).
func (p *Packument) PublishedAt(version string) time.Time {
	return p.Time[version]
}
