package session

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/driftnotes/drift/internal/entity"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func TestSignInAndCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jwt")
	m := NewManager(path, testLogger())

	token := makeToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "alice@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	id, err := m.SignIn(token)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if id.ID != "user-1" {
		t.Errorf("ID = %q, want user-1", id.ID)
	}
	if id.Email != "alice@example.com" {
		t.Errorf("Email = %q", id.Email)
	}
	if id.DisplayName != "alice" {
		t.Errorf("DisplayName = %q, want alice", id.DisplayName)
	}

	if cur := m.Current(); cur == nil || cur.ID != "user-1" {
		t.Errorf("Current() = %+v", cur)
	}
	if m.Token() != token {
		t.Error("Token() does not return the signed-in token")
	}

	// The token file must not be world readable.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("session file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestRestoreAcrossManagers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jwt")
	token := makeToken(t, jwt.MapClaims{"sub": "user-2", "email": "bob@example.com"})

	m := NewManager(path, testLogger())
	if _, err := m.SignIn(token); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	m2 := NewManager(path, testLogger())
	id := m2.Restore()
	if id == nil || id.ID != "user-2" {
		t.Fatalf("Restore() = %+v, want user-2", id)
	}
}

func TestRestoreMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope.jwt"), testLogger())
	if id := m.Restore(); id != nil {
		t.Errorf("Restore() = %+v, want nil for missing file", id)
	}
}

func TestRestoreGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jwt")
	if err := os.WriteFile(path, []byte("not a token"), 0600); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}

	m := NewManager(path, testLogger())
	if id := m.Restore(); id != nil {
		t.Errorf("Restore() = %+v, want nil for garbage token", id)
	}
}

func TestSignInRejectsExpired(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "session.jwt"), testLogger())
	token := makeToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := m.SignIn(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestSignInRejectsMissingSubject(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "session.jwt"), testLogger())
	token := makeToken(t, jwt.MapClaims{"email": "x@example.com"})

	if _, err := m.SignIn(token); err == nil {
		t.Error("expected error for token without subject")
	}
}

func TestSignOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jwt")
	m := NewManager(path, testLogger())
	token := makeToken(t, jwt.MapClaims{"sub": "user-1"})
	if _, err := m.SignIn(token); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if err := m.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if m.Current() != nil {
		t.Error("Current() not nil after sign-out")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("session file still exists after sign-out")
	}

	// Signing out twice is a no-op.
	if err := m.SignOut(); err != nil {
		t.Errorf("second SignOut: %v", err)
	}
}

func TestOnChangeNotifications(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "session.jwt"), testLogger())

	var seen []string
	m.OnChange(func(id *entity.Identity) {
		if id == nil {
			seen = append(seen, "out")
		} else {
			seen = append(seen, id.ID)
		}
	})

	token := makeToken(t, jwt.MapClaims{"sub": "user-1"})
	if _, err := m.SignIn(token); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := m.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	if len(seen) != 2 || seen[0] != "user-1" || seen[1] != "out" {
		t.Errorf("listener saw %v, want [user-1 out]", seen)
	}
}
