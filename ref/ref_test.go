package ref

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Ref
	}{
		{
			name: "bare name is a default-tag request",
			raw:  "lodash",
			want: Ref{Raw: "lodash", Name: "lodash", Kind: KindTag},
		},
		{
			name: "exact version",
			raw:  "lodash@4.17.21",
			want: Ref{Raw: "lodash@4.17.21", Name: "lodash", Selector: "4.17.21", Kind: KindVersion},
		},
		{
			name: "exact version with equals prefix",
			raw:  "lodash@=4.17.21",
			want: Ref{Raw: "lodash@=4.17.21", Name: "lodash", Selector: "=4.17.21", Kind: KindVersion},
		},
		{
			name: "caret range",
			raw:  "lodash@^4.17.0",
			want: Ref{Raw: "lodash@^4.17.0", Name: "lodash", Selector: "^4.17.0", Kind: KindRange},
		},
		{
			name: "compound range",
			raw:  "lodash@>=4 <5",
			want: Ref{Raw: "lodash@>=4 <5", Name: "lodash", Selector: ">=4 <5", Kind: KindRange},
		},
		{
			name: "dist tag",
			raw:  "lodash@beta",
			want: Ref{Raw: "lodash@beta", Name: "lodash", Selector: "beta", Kind: KindTag},
		},
		{
			name: "scoped name without selector",
			raw:  "@types/node",
			want: Ref{Raw: "@types/node", Name: "@types/node", Kind: KindTag},
		},
		{
			name: "scoped name with range",
			raw:  "@types/node@^20.0.0",
			want: Ref{Raw: "@types/node@^20.0.0", Name: "@types/node", Selector: "^20.0.0", Kind: KindRange},
		},
		{
			name: "bare remote URL",
			raw:  "https://example.com/pkg-1.0.0.tgz",
			want: Ref{Raw: "https://example.com/pkg-1.0.0.tgz", Selector: "https://example.com/pkg-1.0.0.tgz", Kind: KindRemote},
		},
		{
			name: "aliased remote URL",
			raw:  "pkg@https://example.com/pkg-1.0.0.tgz",
			want: Ref{Raw: "pkg@https://example.com/pkg-1.0.0.tgz", Name: "pkg", Selector: "https://example.com/pkg-1.0.0.tgz", Kind: KindRemote},
		},
		{
			name: "git URL",
			raw:  "git+https://github.com/user/repo.git",
			want: Ref{Raw: "git+https://github.com/user/repo.git", Selector: "git+https://github.com/user/repo.git", Kind: KindGit},
		},
		{
			name: "github shorthand",
			raw:  "github:user/repo",
			want: Ref{Raw: "github:user/repo", Selector: "github:user/repo", Kind: KindGit},
		},
		{
			name: "relative directory",
			raw:  "./vendor/pkg",
			want: Ref{Raw: "./vendor/pkg", Selector: "./vendor/pkg", Kind: KindDirectory},
		},
		{
			name: "file URL",
			raw:  "file:../pkg",
			want: Ref{Raw: "file:../pkg", Selector: "file:../pkg", Kind: KindDirectory},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			got, err := Parse(tt.raw)
			r.NoError(err)
			r.Equal(tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, raw := range []string{
		"",
		"UPPERCASE",
		"_leading-underscore",
		"lodash@not a tag",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
		})
	}
}

func TestString(t *testing.T) {
	r := require.New(t)

	parsed, err := Parse("@types/node@^20.0.0")
	r.NoError(err)
	r.Equal("@types/node@^20.0.0", parsed.String())

	parsed, err = Parse("lodash")
	r.NoError(err)
	r.Equal("lodash", parsed.String())

	parsed, err = Parse("https://example.com/pkg.tgz")
	r.NoError(err)
	r.Equal("https://example.com/pkg.tgz", parsed.String())
}

func TestRegistry(t *testing.T) {
	r := require.New(t)
	for raw, want := range map[string]bool{
		"lodash":                      true,
		"lodash@1.0.0":                true,
		"lodash@^1.0.0":               true,
		"https://example.com/pkg.tgz": false,
		"git+https://host/repo.git":   false,
		"./pkg":                       false,
	} {
		parsed, err := Parse(raw)
		r.NoError(err)
		r.Equal(want, parsed.Registry(), raw)
	}
}
