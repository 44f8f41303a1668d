package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DriftClaims tie a download token to one recalculation job's report file.
type DriftClaims struct {
	JobID      string    `json:"job_id"`
	ReportPath string    `json:"report_path"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DriftTokenSigner mints and verifies download tokens for stored drift
// reports. The claims travel inside the token, so verifying one needs no
// lookup table: base64url(JSON claims) + "." + hex HMAC over the encoding.
type DriftTokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDriftTokenSigner constructs a signer with the provided secret and TTL.
func NewDriftTokenSigner(secret string, ttl time.Duration) *DriftTokenSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DriftTokenSigner{secret: []byte(secret), ttl: ttl}
}

// Mint returns a signed token for the job's report file and its expiry.
func (s *DriftTokenSigner) Mint(jobID, reportPath string) (string, time.Time, error) {
	if jobID == "" || reportPath == "" {
		return "", time.Time{}, errors.New("jobID and reportPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	claims := DriftClaims{
		JobID:      jobID,
		ReportPath: reportPath,
		ExpiresAt:  time.Now().UTC().Add(s.ttl),
	}
	body, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode claims: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + s.sign(encoded), claims.ExpiresAt, nil
}

// Verify checks the signature and expiry and returns the embedded claims.
func (s *DriftTokenSigner) Verify(token string) (*DriftClaims, error) {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok {
		return nil, errors.New("malformed download token")
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(signature)) {
		return nil, errors.New("download token signature mismatch")
	}
	body, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	var claims DriftClaims
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if time.Now().After(claims.ExpiresAt) {
		return nil, errors.New("download token expired")
	}
	return &claims, nil
}

func (s *DriftTokenSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
