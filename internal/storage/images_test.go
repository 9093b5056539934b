package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/domain"
)

func newTestStore(t *testing.T) *ImageStore {
	t.Helper()
	s, err := NewImageStore(context.Background(), Options{
		Endpoint:      "https://storage.example.com",
		Region:        "auto",
		Bucket:        "teams-bucket",
		AccessKeyID:   "AKIDEXAMPLE",
		SecretKey:     "secret",
		PublicBaseURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)
	return s
}

func TestPresignTeamImage(t *testing.T) {
	s := newTestStore(t)

	up, err := s.PresignTeamImage(context.Background(), "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.UploadURL, "https://storage.example.com/teams-bucket/teams/"))
	assert.Contains(t, up.UploadURL, "X-Amz-Signature=")
	assert.True(t, strings.HasPrefix(up.ImageURL, "https://cdn.example.com/teams/"))
	assert.True(t, strings.HasSuffix(up.ImageURL, ".png"))
}

func TestPresignTeamImage_RejectsContentType(t *testing.T) {
	s := newTestStore(t)

	_, err := s.PresignTeamImage(context.Background(), "application/pdf")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
