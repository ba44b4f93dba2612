package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/ampsync/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "state", "ampsync.bolt"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSession(t *testing.T) {
	t.Run("missing returns nil", func(t *testing.T) {
		s := openTestStore(t)
		sess, err := s.Session()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess != nil {
			t.Errorf("expected nil session, got %+v", sess)
		}
	})

	t.Run("save and clear", func(t *testing.T) {
		s := openTestStore(t)
		expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

		if err := s.SaveSession(models.Session{Auth: "tok", Expiry: expiry, ServerURL: "https://x/server"}); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		sess, err := s.Session()
		if err != nil {
			t.Fatalf("failed to read session: %v", err)
		}
		if sess.Auth != "tok" || !sess.Expiry.Equal(expiry) {
			t.Errorf("unexpected session %+v", sess)
		}

		if err := s.ClearSession(); err != nil {
			t.Fatalf("failed to clear session: %v", err)
		}
		if sess, _ := s.Session(); sess != nil {
			t.Errorf("expected session to be cleared, got %+v", sess)
		}
	})
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ampsync.bolt")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s.SaveCredentials(models.Credentials{Username: "alice", Password: "hash", ServerURL: "u"}); err != nil {
		t.Fatalf("failed to save credentials: %v", err)
	}
	if err := s.SetOfflineMode(true); err != nil {
		t.Fatalf("failed to set offline mode: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	creds, err := reopened.Credentials()
	if err != nil {
		t.Fatalf("failed to read credentials: %v", err)
	}
	if creds == nil || creds.Username != "alice" || creds.Password != "hash" {
		t.Errorf("expected credentials to survive reopen, got %+v", creds)
	}

	offline, err := reopened.OfflineMode()
	if err != nil {
		t.Fatalf("failed to read offline mode: %v", err)
	}
	if !offline {
		t.Error("expected offline mode to survive reopen")
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("failed to open memory store: %v", err)
	}

	if offline, _ := s.OfflineMode(); offline {
		t.Error("expected offline mode to default to false")
	}

	_ = s.SaveCredentials(models.Credentials{Username: "bob"})
	creds, _ := s.Credentials()
	if creds == nil || creds.Username != "bob" {
		t.Errorf("expected memory credentials, got %+v", creds)
	}

	_ = s.ClearCredentials()
	if creds, _ := s.Credentials(); creds != nil {
		t.Errorf("expected credentials cleared, got %+v", creds)
	}
}
