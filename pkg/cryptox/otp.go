package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pquerna/otp"
)

// OTPDigits is the length of every emailed one-time code.
const OTPDigits = otp.DigitsSix

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random 6-digit numeric code, zero padded.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return OTPDigits.Format(int32(n.Int64())), nil // #nosec G115 - n < 1e6
}
