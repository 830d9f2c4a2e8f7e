// Package trust holds the public keys used to validate publisher signatures.
// A Store maps a registry (host plus path, no scheme) to the keys that
// registry publishes; it is supplied by the caller and read-only once built.
package trust

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// PublicKey is one trusted registry signing key.
type PublicKey struct {
	KeyID string `json:"keyid"`
	// Key is the key material: either a PEM block or base64-encoded SPKI
	// DER, as registries publish it.
	Key string `json:"key"`
	// Expires, when set, is the instant after which the key must not be
	// used for verification.
	Expires *time.Time `json:"expires,omitempty"`
}

// Expired reports whether the key has an expiry at or before now.
func (k PublicKey) Expired(now time.Time) bool {
	return k.Expires != nil && !k.Expires.After(now)
}

// Material parses the key material into a crypto public key.
func (k PublicKey) Material() (crypto.PublicKey, error) {
	der := []byte(nil)
	if strings.Contains(k.Key, "-----BEGIN") {
		block, _ := pem.Decode([]byte(k.Key))
		if block == nil {
			return nil, fmt.Errorf("key %s: no PEM block found", k.KeyID)
		}
		der = block.Bytes
	} else {
		raw, err := base64.StdEncoding.DecodeString(k.Key)
		if err != nil {
			return nil, fmt.Errorf("key %s: invalid base64 key material: %w", k.KeyID, err)
		}
		der = raw
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("key %s: parse public key: %w", k.KeyID, err)
	}
	return pub, nil
}

// Store maps a normalized registry ("host/path") to its published keys.
type Store map[string][]PublicKey

// Keys returns the keys for a registry base URL. The lookup key is the
// registry's host plus path with trailing slashes stripped, matching how
// per-registry key configuration is addressed.
func (s Store) Keys(registry string) ([]PublicKey, error) {
	key, err := NormalizeRegistry(registry)
	if err != nil {
		return nil, err
	}
	return s[key], nil
}

// Lookup finds one key by id for a registry base URL.
func (s Store) Lookup(registry, keyID string) (PublicKey, bool) {
	keys, err := s.Keys(registry)
	if err != nil {
		return PublicKey{}, false
	}
	for _, k := range keys {
		if k.KeyID == keyID {
			return k, true
		}
	}
	return PublicKey{}, false
}

// NormalizeRegistry reduces a registry base URL to its host+path store key,
// dropping the scheme and trailing slashes.
func NormalizeRegistry(registry string) (string, error) {
	u, err := url.Parse(registry)
	if err != nil {
		return "", fmt.Errorf("invalid registry URL %q: %w", registry, err)
	}
	return u.Host + strings.TrimRight(u.Path, "/"), nil
}

// Load decodes a store from JSON or YAML bytes shaped as
//
//	{"registry.example.com": [{"keyid": ..., "key": ..., "expires": ...}]}
func Load(data []byte) (Store, error) {
	var store Store
	if err := yaml.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("decode trust store: %w", err)
	}
	return store, nil
}

// LoadFile reads a trust store from a JSON or YAML file.
func LoadFile(path string) (Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust store: %w", err)
	}
	return Load(data)
}
