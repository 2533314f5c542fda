package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumKnownVectors(t *testing.T) {
	got, err := Sum(SHA256, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)

	got, err = Sum(SHA512, []byte(""))
	require.NoError(t, err)
	assert.Len(t, got, 128)

	got, err = Sum(BLAKE3, []byte(""))
	require.NoError(t, err)
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", got)
}

func TestParse(t *testing.T) {
	algo, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, SHA256, algo)

	algo, err = Parse("blake3")
	require.NoError(t, err)
	assert.Equal(t, BLAKE3, algo)

	_, err = Parse("md5")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
