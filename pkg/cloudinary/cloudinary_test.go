package cloudinary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPublicIDSlugsOriginalName(t *testing.T) {
	id := buildPublicID("IMG_0001.jpg")
	require.True(t, strings.HasPrefix(id, "img-0001-"), id)
	require.NotContains(t, id, ".")
	require.Equal(t, strings.ToLower(id), id)
}

func TestBuildPublicIDFallsBackForEmptySlug(t *testing.T) {
	id := buildPublicID("....")
	require.True(t, strings.HasPrefix(id, "upload-"), id)
}

func TestBuildPublicIDIsUniquePerCall(t *testing.T) {
	require.NotEqual(t, buildPublicID("IMG_0001.jpg"), buildPublicID("IMG_0001.jpg"))
}
