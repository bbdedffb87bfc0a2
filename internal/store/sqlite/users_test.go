package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/store"
)

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &domain.User{ID: "user-1", Username: "jdoe", Email: "jdoe@example.com", FullName: "Jane Doe", Phone: "010-1234-5678"}
	u.InitTimestamps(testNow)
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "jdoe" || got.Email != "jdoe@example.com" || got.Phone != u.Phone {
		t.Errorf("got %+v", got)
	}

	byName, err := s.GetUserByUsername(ctx, "jdoe")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName.ID != "user-1" {
		t.Errorf("GetUserByUsername: got %s", byName.ID)
	}

	if _, err := s.GetUser(ctx, "user-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUser_UniqueUsernameAndEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, s, "alice")

	tests := []struct {
		name string
		user *domain.User
	}{
		{"same username", &domain.User{ID: "user-2", Username: "alice", Email: "other@example.com", FullName: "x"}},
		{"same email", &domain.User{ID: "user-3", Username: "other", Email: "alice@example.com", FullName: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.user.InitTimestamps(testNow)
			if err := s.CreateUser(ctx, tt.user); !errors.Is(err, store.ErrAlreadyExists) {
				t.Errorf("expected ErrAlreadyExists, got %v", err)
			}
		})
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("got %d users, want 1", len(users))
	}
}

func TestGetUsersByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, s, "user-a")
	createTestUser(t, s, "user-b")
	createTestUser(t, s, "user-c")

	users, err := s.GetUsersByIDs(ctx, []string{"user-c", "user-a", "user-missing"})
	if err != nil {
		t.Fatalf("GetUsersByIDs: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}

	none, err := s.GetUsersByIDs(ctx, nil)
	if err != nil || none != nil {
		t.Errorf("empty ids: got %v, %v", none, err)
	}
}
