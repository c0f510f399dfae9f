package cypher_test

import (
	"testing"

	"github.com/ark-network/notewallet/internal/infrastructure/cypher"
	"github.com/stretchr/testify/require"
)

const testScryptN = 1 << 10

func TestCypher(t *testing.T) {
	c := cypher.NewAES256Cypher(testScryptN)
	password := []byte("password")
	plaintext := []byte(`{"version":1}`)

	t.Run("valid", func(t *testing.T) {
		encrypted, err := c.Encrypt(plaintext, password)
		require.NoError(t, err)
		require.NotContains(t, string(encrypted), string(plaintext))

		decrypted, err := c.Decrypt(encrypted, password)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)

		// Same salt, fresh nonce.
		again, err := c.Encrypt(plaintext, password)
		require.NoError(t, err)
		require.NotEqual(t, encrypted, again)
		require.Equal(t, encrypted[len(encrypted)-32:], again[len(again)-32:])

		// Another instance decrypts with the salt carried by the data.
		other := cypher.NewAES256Cypher(testScryptN)
		decrypted, err = other.Decrypt(encrypted, password)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)
	})

	t.Run("invalid", func(t *testing.T) {
		encrypted, err := c.Encrypt(plaintext, password)
		require.NoError(t, err)

		fixtures := []struct {
			data        []byte
			password    []byte
			expectedErr string
		}{
			{encrypted, []byte("wrong"), "invalid password"},
			{nil, password, "missing encrypted data"},
			{encrypted, nil, "missing decryption password"},
			{[]byte("short"), password, "encrypted data too short"},
		}
		for _, f := range fixtures {
			_, err := c.Decrypt(f.data, f.password)
			require.EqualError(t, err, f.expectedErr)
		}

		_, err = c.Encrypt(nil, password)
		require.EqualError(t, err, "missing plaintext")
		_, err = c.Encrypt(plaintext, nil)
		require.EqualError(t, err, "missing encryption password")
	})
}
