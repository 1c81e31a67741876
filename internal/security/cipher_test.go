package security

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNewCipher_InvalidKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	require.Error(t, err)
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey(t))
	require.NoError(t, err)

	payloads := [][]byte{
		[]byte(""),
		[]byte("你好，世界"),
		bytes.Repeat([]byte{0x00, 0xff}, 4096),
	}

	for _, plain := range payloads {
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		require.NotEqual(t, plain, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		require.Equal(t, plain, dec)
	}
}

func TestCipher_EncryptProducesFreshNonce(t *testing.T) {
	c, err := NewCipher(testKey(t))
	require.NoError(t, err)

	a, err := c.Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same input"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCipher_TamperDetection(t *testing.T) {
	c, err := NewCipher(testKey(t))
	require.NoError(t, err)

	enc, err := c.Encrypt([]byte("敏感内容"))
	require.NoError(t, err)

	// 逐字节翻转一位，任何位置的篡改都必须被检测到
	for i := 0; i < len(enc); i++ {
		tampered := append([]byte(nil), enc...)
		tampered[i] ^= 0x01
		_, err := c.Decrypt(tampered)
		require.ErrorIs(t, err, ErrAuthenticationFailed, "篡改第 %d 字节未被检测", i)
	}
}

func TestCipher_WrongKey(t *testing.T) {
	c1, err := NewCipher(testKey(t))
	require.NoError(t, err)
	c2, err := NewCipher(testKey(t))
	require.NoError(t, err)

	enc, err := c1.Encrypt([]byte("data"))
	require.NoError(t, err)

	_, err = c2.Decrypt(enc)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestCipher_TruncatedCiphertext(t *testing.T) {
	c, err := NewCipher(testKey(t))
	require.NoError(t, err)

	_, err = c.Decrypt([]byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}
