package memory

import (
	"testing"
)

func TestPresenceRegisterMarksOnline(t *testing.T) {
	repo := NewPresenceRepository()

	repo.Register("conn-1", "user-1", "Alice")

	snapshot := repo.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 known user, got %d", len(snapshot))
	}

	u := snapshot[0]
	if !u.Online {
		t.Error("expected user to be online")
	}
	if u.ConnectionID != "conn-1" {
		t.Errorf("expected connection conn-1, got %q", u.ConnectionID)
	}
	if u.LastSeenAt != nil {
		t.Error("expected no last seen timestamp while online")
	}
}

func TestPresenceUnregisterMarksOffline(t *testing.T) {
	repo := NewPresenceRepository()
	repo.Register("conn-1", "user-1", "Alice")

	user, ok := repo.Unregister("conn-1")
	if !ok {
		t.Fatal("expected unregister to report the identified user")
	}
	if user.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", user.UserID)
	}

	snapshot := repo.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected user to remain known after disconnect, got %d users", len(snapshot))
	}
	if snapshot[0].Online {
		t.Error("expected user to be offline")
	}
	if snapshot[0].ConnectionID != "" {
		t.Errorf("expected empty connection for offline user, got %q", snapshot[0].ConnectionID)
	}
	if snapshot[0].LastSeenAt == nil {
		t.Error("expected last seen timestamp after disconnect")
	}
}

func TestPresenceReconnectSupersedesOldConnection(t *testing.T) {
	repo := NewPresenceRepository()
	repo.Register("conn-old", "user-1", "Alice")
	repo.Register("conn-new", "user-1", "Alice")

	if connID, ok := repo.Resolve("user-1"); !ok || connID != "conn-new" {
		t.Fatalf("expected user to resolve to conn-new, got %q ok=%v", connID, ok)
	}

	// Запоздавший disconnect старого соединения не должен гасить новую сессию.
	if _, ok := repo.Unregister("conn-old"); ok {
		t.Fatal("expected stale unregister to be a no-op")
	}

	snapshot := repo.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 known user, got %d", len(snapshot))
	}
	if !snapshot[0].Online {
		t.Error("expected user to stay online after stale unregister")
	}
}

func TestPresenceIdentityOnlyForCurrentConnection(t *testing.T) {
	repo := NewPresenceRepository()
	repo.Register("conn-old", "user-1", "Alice")
	repo.Register("conn-new", "user-1", "Alice")

	if _, ok := repo.Identity("conn-old"); ok {
		t.Error("expected superseded connection to have no identity")
	}

	identity, ok := repo.Identity("conn-new")
	if !ok {
		t.Fatal("expected current connection to have an identity")
	}
	if identity.UserID != "user-1" || identity.DisplayName != "Alice" {
		t.Errorf("unexpected identity %+v", identity)
	}
}

func TestPresenceSnapshotKeepsFirstSeenOrder(t *testing.T) {
	repo := NewPresenceRepository()
	repo.Register("conn-1", "user-1", "Alice")
	repo.Register("conn-2", "user-2", "Bob")
	repo.Register("conn-3", "user-3", "Carol")

	// Переподключение не должно двигать пользователя в конец списка.
	repo.Register("conn-4", "user-1", "Alice")

	snapshot := repo.Snapshot()
	want := []string{"user-1", "user-2", "user-3"}

	if len(snapshot) != len(want) {
		t.Fatalf("expected %d users, got %d", len(want), len(snapshot))
	}

	for i, userID := range want {
		if snapshot[i].UserID != userID {
			t.Errorf("position %d: expected %q, got %q", i, userID, snapshot[i].UserID)
		}
	}
}

func TestPresenceResolveOfflineUser(t *testing.T) {
	repo := NewPresenceRepository()
	repo.Register("conn-1", "user-1", "Alice")
	repo.Unregister("conn-1")

	if _, ok := repo.Resolve("user-1"); ok {
		t.Error("expected offline user to not resolve to a connection")
	}
}
