package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
)

// Stored ciphertext format: hex(iv) + ":" + hex(encrypted). The IV travels
// with the value so a single opaque string round-trips through the database.

// DecryptionError indicates a ciphertext could not be decrypted (malformed
// value or wrong key).
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed: %s", e.Reason)
}

// Encrypt encrypts plaintext with AES-256-CBC under key using a random IV.
// Empty plaintext returns an empty string: absent secrets store no ciphertext.
func Encrypt(key []byte, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decrypt reverses Encrypt. Malformed input or a wrong key yields a
// *DecryptionError.
func Decrypt(key []byte, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	parts := strings.SplitN(ciphertext, ":", 2)
	if len(parts) != 2 {
		return "", &DecryptionError{Reason: "missing IV separator"}
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", &DecryptionError{Reason: "invalid IV"}
	}

	encrypted, err := hex.DecodeString(parts[1])
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", &DecryptionError{Reason: "invalid ciphertext"}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &DecryptionError{Reason: err.Error()}
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, encrypted)

	unpadded, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return "", &DecryptionError{Reason: "invalid padding"}
	}

	return string(unpadded), nil
}

// DecryptOrEmpty decrypts on the read path, degrading to "" when the stored
// value cannot be decrypted. A broken optional secret must not break reads.
func DecryptOrEmpty(key []byte, ciphertext string) string {
	plaintext, err := Decrypt(key, ciphertext)
	if err != nil {
		log.Printf("Failed to decrypt stored secret, treating as absent: %v", err)
		return ""
	}
	return plaintext
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
