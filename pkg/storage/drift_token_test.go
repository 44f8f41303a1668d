package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDriftTokenMintAndVerify(t *testing.T) {
	signer := NewDriftTokenSigner("secret", time.Hour)
	token, expiresAt, err := signer.Mint("job-1", "drift/job-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "job-1", claims.JobID)
	require.Equal(t, "drift/job-1.csv", claims.ReportPath)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestDriftTokenRejectsTampering(t *testing.T) {
	signer := NewDriftTokenSigner("secret", time.Hour)
	token, _, err := signer.Mint("job-1", "drift/job-1.csv")
	require.NoError(t, err)

	encoded, signature, ok := strings.Cut(token, ".")
	require.True(t, ok)

	_, err = signer.Verify(encoded)
	require.Error(t, err)

	forged := NewDriftTokenSigner("other-secret", time.Hour)
	forgedToken, _, err := forged.Mint("job-1", "drift/job-1.csv")
	require.NoError(t, err)
	_, err = signer.Verify(forgedToken)
	require.Error(t, err)

	_, err = signer.Verify(encoded + "." + strings.Repeat("0", len(signature)))
	require.Error(t, err)
}

func TestDriftTokenExpires(t *testing.T) {
	signer := NewDriftTokenSigner("secret", time.Millisecond*10)
	token, _, err := signer.Mint("job-1", "drift/job-1.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, err = signer.Verify(token)
	require.Error(t, err)
}
