package tenants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
)

func TestNormalizeSlug(t *testing.T) {
	s, err := NormalizeSlug("  Bright-Lights-Video ")
	require.NoError(t, err)
	assert.Equal(t, "bright-lights-video", s)

	for _, bad := range []string{"", "a", "-leading", "under_score", "spaces here"} {
		_, err := NormalizeSlug(bad)
		assert.True(t, apperr.IsValidation(err), bad)
	}
}
