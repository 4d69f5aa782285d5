package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTraceIDFromRawBytes(t *testing.T) {
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i)
	}
	got, ok := NormalizeTraceID(raw)
	assert.True(t, ok)
	assert.Len(t, got, 32)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", got)
}

func TestNormalizeTraceIDFromHexString(t *testing.T) {
	hexID := []byte("AABBCCDDEEFF00112233445566778899")
	got, ok := NormalizeTraceID(hexID)
	assert.True(t, ok)
	assert.Equal(t, "aabbccddeeff00112233445566778899", got)
}

func TestNormalizeTraceIDRejectsWrongLength(t *testing.T) {
	_, ok := NormalizeTraceID([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestNormalizeTraceIDRejectsInvalidHex(t *testing.T) {
	bad := []byte("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	_, ok := NormalizeTraceID(bad)
	assert.False(t, ok)
}

func TestNormalizeSpanIDFromRawBytes(t *testing.T) {
	raw := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	got, ok := NormalizeSpanID(raw)
	assert.True(t, ok)
	assert.Equal(t, "0001020304050607", got)
}

func TestNormalizeSpanIDRejectsWrongLength(t *testing.T) {
	_, ok := NormalizeSpanID(make([]byte, 5))
	assert.False(t, ok)
}
