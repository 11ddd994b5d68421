package interceptor

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// Encryption key and nonce sizes, matching bundoc/security/encryption.go
// exactly (AES-256-GCM).
const (
	keySize   = 32
	nonceSize = 12
)

// Encryptor wraps AES-GCM value encryption, grounded directly on
// bundoc/security/encryption.go's Encryptor/EncryptBlock/DecryptBlock
// (same key size, same nonce-prefixed ciphertext layout). Spec §9 treats
// encryption as "an interface point rather than a feature": a nil
// Encryptor makes EncryptStage/DecryptStage identity functions, and only
// a non-nil key turns them into real AES-GCM transforms.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor builds an Encryptor from a 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("interceptor: invalid key size: expected %d, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Encryptor{aead: aead}, nil
}

// GenerateKey returns a fresh random 32-byte AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// encryptedEnvelope is the on-the-wire shape a write-interceptor chain
// stores in place of the plaintext value, so DecryptStage can recognise
// and reverse it.
type encryptedEnvelope struct {
	Enc string `json:"__enc"`
}

func (e *Encryptor) encrypt(value interface{}) (interface{}, error) {
	if e == nil {
		return value, nil // identity: spec §9 "treat these as interface points rather than features"
	}
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("interceptor: marshal value for encryption: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := e.aead.Seal(nonce, nonce, plaintext, nil)
	return encryptedEnvelope{Enc: base64.StdEncoding.EncodeToString(ciphertext)}, nil
}

func (e *Encryptor) decrypt(value interface{}) (interface{}, error) {
	if e == nil {
		return value, nil
	}
	raw, ok := asEnvelope(value)
	if !ok {
		return value, nil // not something this stage encrypted; pass through
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("interceptor: decode ciphertext: %w", err)
	}
	if len(data) < nonceSize {
		return nil, fmt.Errorf("interceptor: ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("interceptor: decrypt: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(plaintext, &out); err != nil {
		return nil, fmt.Errorf("interceptor: unmarshal decrypted value: %w", err)
	}
	return out, nil
}

func asEnvelope(value interface{}) (string, bool) {
	switch v := value.(type) {
	case encryptedEnvelope:
		return v.Enc, true
	case map[string]interface{}:
		if len(v) != 1 {
			return "", false
		}
		enc, ok := v["__enc"].(string)
		return enc, ok
	default:
		return "", false
	}
}

// EncryptStage returns a PreWrite that encrypts every value it sees. A
// nil *Encryptor makes this the identity transform.
func (e *Encryptor) EncryptStage() PreWrite {
	return func(key string, value interface{}) (interface{}, error) {
		return e.encrypt(value)
	}
}

// DecryptStage returns a PostRead that reverses EncryptStage.
func (e *Encryptor) DecryptStage() PostRead {
	return func(key string, value interface{}) (interface{}, bool, error) {
		v, err := e.decrypt(value)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}
