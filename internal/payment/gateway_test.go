package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"phlebcare-backend/pkg/apperr"
)

func TestSanitizeReferenceStripsNonAlphanumerics(t *testing.T) {
	out, err := SanitizeReference("ORD-2026/09_01 #42")
	require.NoError(t, err)
	require.Equal(t, "ORD2026090142", out)
}

func TestSanitizeReferenceTruncates(t *testing.T) {
	long := strings.Repeat("A1", 40)
	out, err := SanitizeReference(long)
	require.NoError(t, err)
	require.Len(t, out, MaxReferenceLen)
	require.Equal(t, long[:MaxReferenceLen], out)
}

func TestSanitizeReferenceDeterministic(t *testing.T) {
	first, err := SanitizeReference("ORD-abc-123")
	require.NoError(t, err)
	second, err := SanitizeReference("ORD-abc-123")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSanitizeReferenceEmpty(t *testing.T) {
	for _, ref := range []string{"", "---", "  //  "} {
		_, err := SanitizeReference(ref)
		require.Error(t, err)
		require.True(t, apperr.Is(err, apperr.KindValidation))
	}
}
