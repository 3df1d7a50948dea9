package curation

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// HashRegistry remembers which accepted file first claimed each content hash
type HashRegistry struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewHashRegistry creates an empty registry
func NewHashRegistry() *HashRegistry {
	return &HashRegistry{owners: make(map[string]string)}
}

// Claim records path as the owner of hash. When hash is already owned it
// returns the owner's path and false.
func (r *HashRegistry) Claim(hash, path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[hash]; ok {
		return owner, false
	}
	r.owners[hash] = path
	return path, true
}

// Len returns the number of claimed hashes
func (r *HashRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}

// HashFile returns the hex SHA-1 of the raw bytes of the file at path
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex SHA-1 of data
func HashBytes(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
