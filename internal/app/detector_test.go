package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSource(t *testing.T) {
	tests := []struct {
		url  string
		want SourceType
	}{
		{"https://github.com/acme/tool/releases/download/v1.2.0/tool.tar.gz", SourceReleaseAsset},
		{"https://ghe.example.com/acme/tool/releases/download/v1/tool.zip", SourceReleaseAsset},
		{"https://api.github.com/repos/acme/tool/releases/assets/999", SourceAPIAsset},
		{"https://github.com/acme/tool/releases/tag/v1.2.0", SourceReleasePage},
		{"https://github.com/acme/tool/releases", SourceReleasePage},
		{"https://github.com/acme/tool/releases/", SourceReleasePage},
		{"https://github.com/acme/tool", SourceUnknown},
		{"https://example.com/file.zip", SourceUnknown},
		{"git@github.com:acme/tool.git", SourceUnknown},
		{"ftp://github.com/acme/tool/releases/download/v1/a", SourceUnknown},
		{"", SourceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectSource(tt.url))
		})
	}
}

func TestSourceType_Hint(t *testing.T) {
	assert.Empty(t, SourceReleaseAsset.Hint())
	assert.Contains(t, SourceReleasePage.Hint(), "release page")
	assert.Contains(t, SourceAPIAsset.Hint(), "browser download URL")
	assert.Contains(t, SourceUnknown.Hint(), "/releases/download/")
}
