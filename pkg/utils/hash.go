package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// HashBytes computes the SHA-256 hash of a byte slice as a hex string.
func HashBytes(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// HashFile computes the SHA-256 hash of a file's content.
func HashFile(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
