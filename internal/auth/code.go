package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
	"time"
)

// CodeLength is the number of digits in a sign-in code.
const CodeLength = 6

// PendingCode is a sign-in code waiting to be entered.
type PendingCode struct {
	Code      string
	Email     string
	ExpiresAt time.Time
}

// NewPendingCode draws a random code for email that expires after ttl.
func NewPendingCode(email string, ttl time.Duration, now time.Time) (*PendingCode, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	return &PendingCode{Code: code, Email: email, ExpiresAt: now.Add(ttl)}, nil
}

// GenerateCode returns CodeLength random decimal digits.
func GenerateCode() (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Matches reports whether input is the code and it has not expired.
func (p *PendingCode) Matches(input string, now time.Time) bool {
	if p == nil || p.Code == "" || !now.Before(p.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(input)), []byte(p.Code)) == 1
}
