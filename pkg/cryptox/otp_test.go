package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]struct{}, 200)
	for range 200 {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9', "code %q must be numeric", code)
		}
		seen[code] = struct{}{}
	}

	// 200 draws from a million codes; collisions are possible but a handful at most.
	require.Greater(t, len(seen), 190)
}

func TestOTPDigitsFormatPadsWithZeros(t *testing.T) {
	require.Equal(t, "000042", OTPDigits.Format(42))
	require.Equal(t, 6, OTPDigits.Length())
}
