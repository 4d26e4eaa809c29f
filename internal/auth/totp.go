package auth

import (
	"github.com/pquerna/otp/totp"
)

// VerifyTOTPCode validates a 6-digit TOTP code against the user's secret.
// Used to confirm moving a refund into processing, since that is the point
// of no easy cancellation.
func VerifyTOTPCode(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

// GenerateTOTPSecret creates a new TOTP enrollment for an operator
func GenerateTOTPSecret(email string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "booking-backend",
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}
