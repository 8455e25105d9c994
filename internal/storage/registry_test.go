package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rsvp-bot/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestTenantStoreActiveAndSetActive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.json")
	writeFile(t, path, `[
	  {"id":"cust_1","name":"Cohen","phone":"+972521111111","eventName":"Wedding","eventDate":"2026-11-15","active":true},
	  {"id":"cust_2","name":"Levi","phone":"+972522222222","eventName":"Bar Mitzvah","eventDate":"2026-12-01","active":false}
	]`)

	s, err := NewTenantStore(path)
	if err != nil {
		t.Fatalf("new tenant store: %v", err)
	}
	if got := len(s.Active()); got != 1 {
		t.Fatalf("expected 1 active tenant, got %d", got)
	}

	if err := s.SetActive("cust_2", true); err != nil {
		t.Fatalf("set active: %v", err)
	}
	reloaded, err := NewTenantStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	tenant, err := reloaded.Get("cust_2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !tenant.Active {
		t.Fatal("expected activation to persist")
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	if err := s.SetActive("missing", true); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func seal(t *testing.T, secret, plain string) string {
	t.Helper()
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("gcm: %v", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		t.Fatalf("nonce: %v", err)
	}
	return encryptedPrefix + base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plain), nil))
}

func TestCredentialStoreDecryptsSealedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	sealed := seal(t, "process-secret", "tenant-secret")
	writeFile(t, path, `{"cust_1":{"appScriptUrl":"https://script.example/exec","secretKey":"`+sealed+`"}}`)

	s, err := NewCredentialStore(path, "process-secret")
	if err != nil {
		t.Fatalf("new credential store: %v", err)
	}
	creds, err := s.Get("cust_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if creds.Endpoint != "https://script.example/exec" || creds.Secret != "tenant-secret" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}

	wrongKey, err := NewCredentialStore(path, "other-secret")
	if err != nil {
		t.Fatalf("new credential store: %v", err)
	}
	if _, err := wrongKey.Get("cust_1"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestCredentialStoreMissingTenant(t *testing.T) {
	s, err := NewCredentialStore(filepath.Join(t.TempDir(), "none.json"), "")
	if err != nil {
		t.Fatalf("new credential store: %v", err)
	}
	if _, err := s.Get("cust_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	s.Set("cust_1", models.Credentials{Endpoint: "http://x", Secret: "s"})
	if _, err := s.Get("cust_1"); err != nil {
		t.Fatalf("get after set: %v", err)
	}
}

func TestFollowUpFileRoundTrip(t *testing.T) {
	f := NewFollowUpFile(filepath.Join(t.TempDir(), "nested", "followups.json"))

	entries, err := f.Load()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty load, got %v, %v", entries, err)
	}

	due := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	if err := f.Save([]models.FollowUp{{ID: "f1", Phone: "972501234567", TenantID: "cust_1", DueAt: due}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err = f.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 1 || !entries[0].DueAt.Equal(due) || entries[0].TenantID != "cust_1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
