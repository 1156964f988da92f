package integrity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	// sha256("") and sha256("abc") test vectors.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(nil))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Hash([]byte("abc")))
	assert.Len(t, Hash([]byte("any payload")), 64)
}

func TestVerify(t *testing.T) {
	payload := []byte("%PDF-1.7 diploma of Ada Lovelace")
	ref := Hash(payload)

	t.Run("identical payload verifies", func(t *testing.T) {
		res := Verify(payload, ref)
		assert.True(t, res.Verified)
		assert.Equal(t, ref, res.Hash)
	})

	t.Run("single flipped byte fails", func(t *testing.T) {
		tampered := append([]byte(nil), payload...)
		tampered[3] ^= 0x01
		res := Verify(tampered, ref)
		assert.False(t, res.Verified)
		assert.NotEqual(t, ref, res.Hash)
	})

	t.Run("appended byte fails", func(t *testing.T) {
		assert.False(t, Verify(append(append([]byte(nil), payload...), ' '), ref).Verified)
	})

	t.Run("reference hex case is ignored", func(t *testing.T) {
		assert.True(t, Verify(payload, strings.ToUpper(ref)).Verified)
	})

	t.Run("truncated or empty reference fails", func(t *testing.T) {
		assert.False(t, Verify(payload, ref[:10]).Verified)
		assert.False(t, Verify(payload, "").Verified)
	})
}
