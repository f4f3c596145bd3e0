package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"mailwarm/config"
)

// Encrypt seals a recipient IMAP password for storage in the address book.
// AES-CFB with a random IV prefixed to the base64 payload; empty input stays
// empty so optional passwords round-trip.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := cipherBlock()
	if err != nil {
		return "", err
	}

	sealed := make([]byte, aes.BlockSize+len(plaintext))
	iv := sealed[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(sealed[aes.BlockSize:], []byte(plaintext))

	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers a stored IMAP password sealed by Encrypt
func Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	block, err := cipherBlock()
	if err != nil {
		return "", err
	}

	sealed, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	if len(sealed) < aes.BlockSize {
		return "", errors.New("ciphertext too short")
	}

	iv, payload := sealed[:aes.BlockSize], sealed[aes.BlockSize:]
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(payload, payload)

	return string(payload), nil
}

func cipherBlock() (cipher.Block, error) {
	return aes.NewCipher([]byte(config.AppConfig.EncryptionKey))
}
