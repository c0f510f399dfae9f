package cypher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/ark-network/notewallet/internal/core/ports"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLen = 32
	keyLen  = 32

	// 2^20 is the recommended cost for interactive logins, see
	// https://godoc.org/golang.org/x/crypto/scrypt
	DefaultScryptN = 1 << 20
)

// cypher seals data with AES-256-GCM under a key derived from the password
// with scrypt. The output is nonce || ciphertext || salt. The salt is picked
// once per cypher, so that the expensive derivation runs once per password
// instead of once per snapshot write.
type cypher struct {
	scryptN int

	lock sync.Mutex
	salt []byte
	keys map[string][]byte
}

func NewAES256Cypher(scryptN int) ports.Cypher {
	if scryptN <= 0 {
		scryptN = DefaultScryptN
	}
	return &cypher{
		scryptN: scryptN,
		keys:    make(map[string][]byte),
	}
}

func (c *cypher) Encrypt(plaintext, password []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("missing plaintext")
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("missing encryption password")
	}

	salt, err := c.sessionSalt()
	if err != nil {
		return nil, err
	}
	key, err := c.deriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	ciphertext = append(ciphertext, salt...)
	return ciphertext, nil
}

func (c *cypher) Decrypt(encrypted, password []byte) ([]byte, error) {
	if len(encrypted) == 0 {
		return nil, fmt.Errorf("missing encrypted data")
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("missing decryption password")
	}
	if len(encrypted) < saltLen {
		return nil, fmt.Errorf("encrypted data too short")
	}

	salt := encrypted[len(encrypted)-saltLen:]
	data := encrypted[:len(encrypted)-saltLen]

	key, err := c.deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted data too short")
	}

	// #nosec G407
	nonce, text := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, text, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid password")
	}
	return plaintext, nil
}

func (c *cypher) sessionSalt() ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.salt == nil {
		salt := make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		c.salt = salt
	}
	return c.salt, nil
}

// deriveKey returns the cached key for password and salt, deriving it the
// first time.
func (c *cypher) deriveKey(password, salt []byte) ([]byte, error) {
	h := sha256.New()
	h.Write(password)
	h.Write(salt)
	cacheKey := string(h.Sum(nil))

	c.lock.Lock()
	defer c.lock.Unlock()

	if key, ok := c.keys[cacheKey]; ok {
		return key, nil
	}
	key, err := scrypt.Key(password, salt, c.scryptN, 8, 1, keyLen)
	if err != nil {
		return nil, err
	}
	c.keys[cacheKey] = key
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blockCipher)
}
