package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "2026/01/job-1.csv")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	jobID, relPath, parsedExp, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "2026/01/job-1.csv", relPath)
	assert.Equal(t, expiresAt.Unix(), parsedExp.Unix())
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, _, err := signer.Generate("job-1", "exports/job-1.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"0", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestSignedURLWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("secret-a", time.Hour)
	other := NewSignedURLSigner("secret-b", time.Hour)

	token, _, err := signer.Generate("job-1", "exports/job-1.csv")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Millisecond)

	token, _, err := signer.Generate("job-1", "exports/job-1.csv")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	jobID, _, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
}

func TestSignedURLMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	_, _, _, err := signer.Parse("not-a-token", false)
	require.Error(t, err)
}
