package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"rsvp-bot/internal/models"
)

const encryptedPrefix = "enc:"

var ErrDecryptFailed = errors.New("decryption failed")

// CredentialStore holds each tenant's guest-store endpoint and secret.
// Values prefixed with "enc:" are AES-256-GCM sealed with a key derived
// from the process secret.
type CredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]models.Credentials
	key         []byte
}

// NewCredentialStore loads credentials from filePath. secret may be empty
// when no value is encrypted.
func NewCredentialStore(filePath, secret string) (*CredentialStore, error) {
	s := &CredentialStore{
		credentials: make(map[string]models.Credentials),
	}
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		s.key = sum[:]
	}

	file := jsonFile{path: filePath}
	if file.exists() {
		if err := file.load(&s.credentials); err != nil {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
	}

	return s, nil
}

// Get returns the decrypted credentials for tenantID.
func (s *CredentialStore) Get(tenantID string) (models.Credentials, error) {
	s.mu.RLock()
	creds, ok := s.credentials[tenantID]
	s.mu.RUnlock()
	if !ok || creds.Endpoint == "" {
		return models.Credentials{}, fmt.Errorf("credentials for %s: %w", tenantID, ErrNotFound)
	}

	endpoint, err := s.decrypt(creds.Endpoint)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("decrypt endpoint for %s: %w", tenantID, err)
	}
	secret, err := s.decrypt(creds.Secret)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("decrypt secret for %s: %w", tenantID, err)
	}
	return models.Credentials{Endpoint: endpoint, Secret: secret}, nil
}

// Set stores plaintext credentials in memory, used by tests and tooling.
func (s *CredentialStore) Set(tenantID string, creds models.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[tenantID] = creds
}

func (s *CredentialStore) decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value, nil
	}
	if s.key == nil {
		return "", fmt.Errorf("%w: no secret key configured", ErrDecryptFailed)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plain), nil
}
