package strategy

import (
	"testing"

	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want domain.AssetLocator
	}{
		{
			name: "simple",
			url:  "https://github.com/acme/tool/releases/download/v1.2.0/tool-v1.2.0.tar.gz",
			want: domain.AssetLocator{Owner: "acme", Repo: "tool", Tag: "v1.2.0", Filename: "tool-v1.2.0.tar.gz"},
		},
		{
			name: "filename keeps slashes",
			url:  "https://github.com/acme/tool/releases/download/v1/linux/amd64/tool",
			want: domain.AssetLocator{Owner: "acme", Repo: "tool", Tag: "v1", Filename: "linux/amd64/tool"},
		},
		{
			name: "dotted names",
			url:  "https://github.com/my.org/my.repo/releases/download/2024.01.02/pkg_1.0_amd64.deb",
			want: domain.AssetLocator{Owner: "my.org", Repo: "my.repo", Tag: "2024.01.02", Filename: "pkg_1.0_amd64.deb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestParseURL_RejoinsFilename(t *testing.T) {
	segments := "a/b/c.zip"
	loc, err := ParseURL("https://github.com/o/r/releases/download/t/" + segments)
	require.NoError(t, err)
	assert.Equal(t, segments, loc.Filename)
}

func TestParseURL_Invalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"plain file", "https://example.com/file.zip"},
		{"no download segment", "https://github.com/acme/tool/releases/tag/v1.2.0"},
		{"archive url", "https://github.com/acme/tool/archive/refs/tags/v1.tar.gz"},
		{"missing filename", "https://github.com/acme/tool/releases/download/v1/"},
		{"missing tag", "https://github.com/acme/tool/releases/download/"},
		{"http scheme", "http://github.com/acme/tool/releases/download/v1/a.zip"},
		{"other host", "https://gitlab.com/acme/tool/releases/download/v1/a.zip"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidURLPattern)
			assert.Equal(t, domain.StagePattern, domain.Stage(err))
		})
	}
}

func TestParser_CustomHost(t *testing.T) {
	p := NewParser("https://ghe.example.com/")
	assert.Equal(t, "https://ghe.example.com", p.WebURL())

	loc, err := p.Parse("https://ghe.example.com/team/app/releases/download/v2/app.zip")
	require.NoError(t, err)
	assert.Equal(t, "team", loc.Owner)
	assert.Equal(t, "app.zip", loc.Filename)

	assert.False(t, p.Matches("https://github.com/team/app/releases/download/v2/app.zip"))
	assert.False(t, p.Matches("https://ghe.examplexcom/team/app/releases/download/v2/app.zip"))
}

func TestNewParser_DefaultHost(t *testing.T) {
	assert.Equal(t, DefaultWebURL, NewParser("").WebURL())
}
