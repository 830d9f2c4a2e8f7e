package pacote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jablko/pacote/packument"
	"github.com/jablko/pacote/ref"
)

func testPackument() *packument.Packument {
	return &packument.Packument{
		Name: "pkg",
		DistTags: map[string]string{
			"latest": "2.0.0",
			"beta":   "3.0.0-beta.1",
		},
		Versions: map[string]*packument.Manifest{
			"1.0.0":        {Name: "pkg", Version: "1.0.0"},
			"1.5.0":        {Name: "pkg", Version: "1.5.0"},
			"2.0.0":        {Name: "pkg", Version: "2.0.0"},
			"3.0.0-beta.1": {Name: "pkg", Version: "3.0.0-beta.1"},
		},
		Time: map[string]time.Time{
			"1.0.0":        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			"1.5.0":        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			"2.0.0":        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			"3.0.0-beta.1": time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func mustRef(t *testing.T, raw string) ref.Ref {
	t.Helper()
	r, err := ref.Parse(raw)
	require.NoError(t, err)
	return r
}

func TestSemverPickerPick(t *testing.T) {
	policy := Policy{DefaultTag: "latest"}
	picker := SemverPicker{}

	t.Run("exact version", func(t *testing.T) {
		r := require.New(t)
		m, err := picker.Pick(testPackument(), mustRef(t, "pkg@1.5.0"), policy)
		r.NoError(err)
		r.Equal("1.5.0", m.Version)
	})

	t.Run("range picks highest satisfying", func(t *testing.T) {
		r := require.New(t)
		m, err := picker.Pick(testPackument(), mustRef(t, "pkg@^1.0.0"), policy)
		r.NoError(err)
		r.Equal("1.5.0", m.Version)
	})

	t.Run("range excludes prereleases", func(t *testing.T) {
		r := require.New(t)
		m, err := picker.Pick(testPackument(), mustRef(t, "pkg@>=1.0.0"), policy)
		r.NoError(err)
		r.Equal("2.0.0", m.Version)
	})

	t.Run("dist tag", func(t *testing.T) {
		r := require.New(t)
		m, err := picker.Pick(testPackument(), mustRef(t, "pkg@beta"), policy)
		r.NoError(err)
		r.Equal("3.0.0-beta.1", m.Version)
	})

	t.Run("empty selector resolves the default tag", func(t *testing.T) {
		r := require.New(t)
		m, err := picker.Pick(testPackument(), mustRef(t, "pkg"), policy)
		r.NoError(err)
		r.Equal("2.0.0", m.Version)
	})

	t.Run("no match carries name and selector", func(t *testing.T) {
		r := require.New(t)
		_, err := picker.Pick(testPackument(), mustRef(t, "pkg@^9.0.0"), policy)
		var target *NoMatchingVersionError
		r.ErrorAs(err, &target)
		r.Equal("pkg", target.Name)
		r.Equal("^9.0.0", target.Selector)
		r.Equal("ETARGET", target.Code())
	})

	t.Run("unknown tag fails", func(t *testing.T) {
		r := require.New(t)
		_, err := picker.Pick(testPackument(), mustRef(t, "pkg@nightly"), policy)
		var target *NoMatchingVersionError
		r.ErrorAs(err, &target)
	})
}

func TestSemverPickerBefore(t *testing.T) {
	cutoff := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	policy := Policy{DefaultTag: "latest", Before: &cutoff}
	picker := SemverPicker{}

	t.Run("range is constrained to the cutoff", func(t *testing.T) {
		r := require.New(t)
		m, err := picker.Pick(testPackument(), mustRef(t, "pkg@>=1.0.0"), policy)
		r.NoError(err)
		r.Equal("1.5.0", m.Version)
	})

	t.Run("exact version past the cutoff fails", func(t *testing.T) {
		r := require.New(t)
		_, err := picker.Pick(testPackument(), mustRef(t, "pkg@2.0.0"), policy)
		var target *NoMatchingVersionError
		r.ErrorAs(err, &target)
	})

	t.Run("default tag past the cutoff degrades to newest allowed", func(t *testing.T) {
		r := require.New(t)
		m, err := picker.Pick(testPackument(), mustRef(t, "pkg"), policy)
		r.NoError(err)
		r.Equal("1.5.0", m.Version)
	})

	t.Run("explicit tag past the cutoff fails", func(t *testing.T) {
		r := require.New(t)
		_, err := picker.Pick(testPackument(), mustRef(t, "pkg@beta"), policy)
		var target *NoMatchingVersionError
		r.ErrorAs(err, &target)
	})

	t.Run("versions without publish times are excluded", func(t *testing.T) {
		r := require.New(t)
		p := testPackument()
		delete(p.Time, "1.5.0")
		m, err := picker.Pick(p, mustRef(t, "pkg@>=1.0.0"), policy)
		r.NoError(err)
		r.Equal("1.0.0", m.Version)
	})
}
