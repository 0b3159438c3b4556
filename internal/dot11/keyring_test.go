package dot11

import (
	"crypto/rc4"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecryptWEP_RoundTrip(t *testing.T) {
	key := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	iv := []byte{0xAA, 0xBB, 0xCC}
	plaintext := []byte("hello wireless world")

	cipher, err := rc4.NewCipher(append(append([]byte{}, iv...), key...))
	require.NoError(t, err)
	ciphertext := make([]byte, len(plaintext))
	cipher.XORKeyStream(ciphertext, plaintext)

	frame := append(append([]byte{}, iv...), 0x00) // IV + pad byte, as decryptWEP expects a 4-byte prefix
	frame = append(frame, ciphertext...)

	out, err := decryptWEP(frame, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestDecryptWEP_ShortFrameErrors(t *testing.T) {
	_, err := decryptWEP([]byte{0x01, 0x02}, []byte{0x01})
	assert.Error(t, err)
}

func TestKeyring_FailureCountIncrementsOnBadKey(t *testing.T) {
	k := NewKeyring()
	k.SetWEPKey("aa:bb:cc:dd:ee:ff", []byte{0x01, 0x02, 0x03, 0x04, 0x05})

	_, err := decryptWEP([]byte{0x01}, []byte{0x01, 0x02, 0x03, 0x04, 0x05})
	require.Error(t, err)
	k.recordFailure("aa:bb:cc:dd:ee:ff")

	assert.Equal(t, 1, k.FailureCount("AA:BB:CC:DD:EE:FF"))
}

func TestDeriveWPAPMK_DeterministicLength(t *testing.T) {
	pmk := DeriveWPAPMK("myssid", "supersecretpassword")
	assert.Len(t, pmk, 32)

	again := DeriveWPAPMK("myssid", "supersecretpassword")
	assert.Equal(t, pmk, again)

	other := DeriveWPAPMK("othernetwork", "supersecretpassword")
	assert.NotEqual(t, pmk, other)
}
