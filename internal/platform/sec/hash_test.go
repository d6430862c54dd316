// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/fabula/internal/platform/sec"
)

/*
TestHashPassword_RoundTrip checks a hashed password verifies against the
original plaintext and nothing else.
*/
func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, sec.CheckPasswordHash("wrong password", hash))
}

/*
TestGenerateSecureToken verifies token length and uniqueness across calls.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	// 32 entropy bytes hex encode to 64 characters
	assert.Len(t, first, 64)
	assert.Len(t, second, 64)
	assert.NotEqual(t, first, second)
}

/*
TestHashToken verifies the digest is deterministic and never the raw token.
*/
func TestHashToken(t *testing.T) {
	digest := sec.HashToken("refresh-token-value")

	assert.Equal(t, digest, sec.HashToken("refresh-token-value"))
	assert.NotEqual(t, "refresh-token-value", digest)
	assert.Len(t, digest, 64) // SHA-256 as hex
	assert.NotEqual(t, digest, sec.HashToken("other-token"))
}
