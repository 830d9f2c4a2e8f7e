// Package integrity implements Subresource-Integrity digest sets as used by
// npm registries: one or more "algorithm-base64value" entries asserting the
// expected content of a tarball.
//
// A Digest maps each hash algorithm to the set of trusted values for it.
// Reconcile merges a caller expectation with the registry's declaration and
// is the only place two digest sets are ever combined.
package integrity

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Digest maps a hash algorithm name ("sha512", "sha1", ...) to the base64
// digest values trusted for that algorithm. Multiple algorithms, and multiple
// values per algorithm, may coexist for the same content.
type Digest map[string][]string

// ShasumAlgorithm is the fixed algorithm under which legacy hex shasum
// fields are represented. Treated as weaker provenance than a proper
// integrity field.
const ShasumAlgorithm = "sha1"

// strongest-first ranking used for deterministic String output. Unknown
// algorithms sort after these, alphabetically.
var algorithmRank = map[string]int{
	"sha512": 0,
	"sha384": 1,
	"sha256": 2,
	"sha1":   3,
}

// Parse parses an SRI string ("sha512-xxx sha1-yyy ...") into a Digest.
// Entries are whitespace-separated; trailing SRI option suffixes
// ("?opt") are discarded. An empty string yields an empty Digest.
func Parse(sri string) (Digest, error) {
	digest := Digest{}
	for _, entry := range strings.Fields(sri) {
		algorithm, value, ok := strings.Cut(entry, "-")
		if !ok || algorithm == "" || value == "" {
			return nil, fmt.Errorf("invalid integrity entry %q", entry)
		}
		value, _, _ = strings.Cut(value, "?")
		if _, err := base64.StdEncoding.DecodeString(value); err != nil {
			return nil, fmt.Errorf("invalid integrity value for %s: %w", algorithm, err)
		}
		if !slices.Contains(digest[algorithm], value) {
			digest[algorithm] = append(digest[algorithm], value)
		}
	}
	return digest, nil
}

// FromHex builds a single-entry Digest from a hex-encoded digest value, used
// to lift legacy shasum fields into SRI form.
func FromHex(hexValue, algorithm string) (Digest, error) {
	raw, err := hex.DecodeString(hexValue)
	if err != nil {
		return nil, fmt.Errorf("invalid hex digest for %s: %w", algorithm, err)
	}
	return Digest{algorithm: []string{base64.StdEncoding.EncodeToString(raw)}}, nil
}

// IsEmpty reports whether no algorithm has any value.
func (d Digest) IsEmpty() bool {
	for _, values := range d {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// String renders the digest as a canonical SRI string: algorithms ordered
// strongest first, values sorted within each algorithm. The output is
// deterministic and is the integrity component of signature messages.
func (d Digest) String() string {
	algorithms := make([]string, 0, len(d))
	for algorithm, values := range d {
		if len(values) > 0 {
			algorithms = append(algorithms, algorithm)
		}
	}
	slices.SortFunc(algorithms, func(a, b string) int {
		rankA, okA := algorithmRank[a]
		rankB, okB := algorithmRank[b]
		switch {
		case okA && okB:
			return rankA - rankB
		case okA:
			return -1
		case okB:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})

	var entries []string
	for _, algorithm := range algorithms {
		values := slices.Clone(d[algorithm])
		slices.Sort(values)
		for _, value := range values {
			entries = append(entries, algorithm+"-"+value)
		}
	}
	return strings.Join(entries, " ")
}

// Hex returns the first value for the given algorithm in hex encoding, for
// callers that address content by hex digest. Empty string when the
// algorithm is absent or the value is not valid base64.
func (d Digest) Hex(algorithm string) string {
	values := d[algorithm]
	if len(values) == 0 {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(values[0])
	if err != nil {
		return ""
	}
	return hex.EncodeToString(raw)
}

// ConflictError reports two digest sets asserting different values for the
// same algorithm. Always fatal; never downgraded.
type ConflictError struct {
	Algorithm string
	Expected  []string
	Actual    []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("integrity conflict for %s: expected %s, got %s",
		e.Algorithm, strings.Join(e.Expected, ","), strings.Join(e.Actual, ","))
}

// Code returns the stable error code for integrity conflicts.
func (e *ConflictError) Code() string { return "EINTEGRITY" }

// Reconcile merges an expected digest with an incoming one and returns the
// union. A pure function: neither input is modified.
//
// Algorithms present on both sides must share at least one confirming value;
// otherwise reconciliation fails with a *ConflictError naming the algorithm
// and both value sets. Algorithms present on only one side never conflict
// (typically an older record carrying only a legacy shasum next to a modern
// expectation) and are carried into the result unchanged.
func Reconcile(expected, incoming Digest) (Digest, error) {
	if expected == nil {
		expected = Digest{}
	}
	merged := Digest{}
	for algorithm, values := range expected {
		merged[algorithm] = slices.Clone(values)
	}
	for algorithm, values := range incoming {
		have, overlap := merged[algorithm]
		if overlap && len(have) > 0 && len(values) > 0 && !intersects(have, values) {
			return nil, &ConflictError{
				Algorithm: algorithm,
				Expected:  slices.Clone(have),
				Actual:    slices.Clone(values),
			}
		}
		for _, value := range values {
			if !slices.Contains(merged[algorithm], value) {
				merged[algorithm] = append(merged[algorithm], value)
			}
		}
	}
	return merged, nil
}

func intersects(a, b []string) bool {
	for _, value := range a {
		if slices.Contains(b, value) {
			return true
		}
	}
	return false
}
