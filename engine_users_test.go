package svcwatch

import (
	"context"
	"errors"
	"testing"
)

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestRegisterUserSendsSetupLink(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	user, err := h.engine.RegisterUser(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected an assigned id")
	}

	setupToken := h.mailer.setupTokenFor("alice@example.com")
	if setupToken == "" {
		t.Fatal("expected a setup token to be mailed")
	}

	// No password works until setup completes.
	if _, err := h.engine.Login(ctx, "alice@example.com", "anything-at-all"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected placeholder credential to be unusable, got %v", err)
	}

	if err := h.engine.SetupPassword(ctx, setupToken, "first-real-password"); err != nil {
		t.Fatalf("SetupPassword failed: %v", err)
	}
	if _, err := h.engine.Login(ctx, "alice@example.com", "first-real-password"); err != nil {
		t.Fatalf("Login after setup failed: %v", err)
	}
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	h.seedUser(t, "user-1", "alice@example.com", "correct-horse-battery", nil)

	_, err := h.engine.RegisterUser(ctx, RegisterInput{Username: "alice2", Email: "alice@example.com", IsActive: true})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestRegisterUserMailFailureRollsBack(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	h.mailer.failNext = true

	_, err := h.engine.RegisterUser(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", IsActive: true})
	if !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}

	// The address must be reusable after the rollback.
	if _, err := h.users.GetByEmail(ctx, "alice@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected account rolled back, got %v", err)
	}
	if _, err := h.engine.RegisterUser(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", IsActive: true}); err != nil {
		t.Fatalf("retry after rollback failed: %v", err)
	}
}

func TestRegisterSuperuserGetsWriteFlag(t *testing.T) {
	h := newTestHarness(t, nil)

	user, err := h.engine.RegisterUser(context.Background(), RegisterInput{
		Username:    "root",
		Email:       "root@example.com",
		IsActive:    true,
		IsSuperuser: true,
	})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if !user.CanEdit {
		t.Fatal("superusers must always carry the write flag")
	}
}

func TestUpdateUserSelfModificationGuard(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	admin := h.seedUser(t, "admin-1", "root@example.com", "correct-horse-battery", func(u *UserRecord) {
		u.IsSuperuser = true
		u.CanEdit = true
	})

	if _, err := h.engine.UpdateUser(ctx, admin, admin.ID, UserUpdate{IsActive: boolptr(false)}); !errors.Is(err, ErrSelfModification) {
		t.Fatalf("expected ErrSelfModification, got %v", err)
	}
	if err := h.engine.DeleteUser(ctx, admin, admin.ID); !errors.Is(err, ErrSelfModification) {
		t.Fatalf("expected ErrSelfModification, got %v", err)
	}
}

func TestUpdateUserAppliesPartialChanges(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	admin := h.seedUser(t, "admin-1", "root@example.com", "correct-horse-battery", func(u *UserRecord) {
		u.IsSuperuser = true
		u.CanEdit = true
	})
	h.seedUser(t, "user-1", "alice@example.com", "correct-horse-battery", nil)

	updated, err := h.engine.UpdateUser(ctx, admin, "user-1", UserUpdate{
		Username: strptr("alice-renamed"),
		CanEdit:  boolptr(true),
	})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.Username != "alice-renamed" || !updated.CanEdit {
		t.Fatal("expected updated fields applied")
	}
	if updated.Email != "alice@example.com" || !updated.IsActive {
		t.Fatal("untouched fields must survive")
	}
}

func TestUpdateUserPromoteNormalizesWriteFlag(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	admin := h.seedUser(t, "admin-1", "root@example.com", "correct-horse-battery", func(u *UserRecord) {
		u.IsSuperuser = true
		u.CanEdit = true
	})
	h.seedUser(t, "user-1", "alice@example.com", "correct-horse-battery", nil)

	promoted, err := h.engine.UpdateUser(ctx, admin, "user-1", UserUpdate{IsSuperuser: boolptr(true)})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if !promoted.CanEdit {
		t.Fatal("promotion to superuser must imply the write flag")
	}

	demoted, err := h.engine.UpdateUser(ctx, admin, "user-1", UserUpdate{IsSuperuser: boolptr(false)})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if demoted.CanEdit {
		t.Fatal("demotion must drop the implied write flag")
	}
}

func TestUpdateUserEmailCollision(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	admin := h.seedUser(t, "admin-1", "root@example.com", "correct-horse-battery", func(u *UserRecord) {
		u.IsSuperuser = true
	})
	h.seedUser(t, "user-1", "alice@example.com", "correct-horse-battery", nil)
	h.seedUser(t, "user-2", "bob@example.com", "correct-horse-battery", nil)

	_, err := h.engine.UpdateUser(ctx, admin, "user-2", UserUpdate{Email: strptr("alice@example.com")})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestDeactivationRevokesSessions(t *testing.T) {
	h := newTestHarness(t, func(cfg *Config) {
		cfg.Session.TrackRefresh = true
	})
	ctx := context.Background()
	admin := h.seedUser(t, "admin-1", "root@example.com", "correct-horse-battery", func(u *UserRecord) {
		u.IsSuperuser = true
	})
	h.seedUser(t, "user-1", "alice@example.com", "correct-horse-battery", nil)

	login, err := h.engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := h.engine.UpdateUser(ctx, admin, "user-1", UserUpdate{IsActive: boolptr(false)}); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	if _, err := h.engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected deactivated account refused, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	admin := h.seedUser(t, "admin-1", "root@example.com", "correct-horse-battery", func(u *UserRecord) {
		u.IsSuperuser = true
	})
	h.seedUser(t, "user-1", "alice@example.com", "correct-horse-battery", nil)

	if err := h.engine.DeleteUser(ctx, admin, "user-1"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := h.engine.GetUser(ctx, "user-1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := h.engine.DeleteUser(ctx, admin, "user-1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on double delete, got %v", err)
	}
}

func TestUpdateOwnProfile(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	h.seedUser(t, "user-1", "alice@example.com", "correct-horse-battery", nil)
	h.seedUser(t, "user-2", "bob@example.com", "correct-horse-battery", nil)

	updated, err := h.engine.UpdateOwnProfile(ctx, "user-1", strptr("alice-v2"), strptr("alice2@example.com"))
	if err != nil {
		t.Fatalf("UpdateOwnProfile failed: %v", err)
	}
	if updated.Username != "alice-v2" || updated.Email != "alice2@example.com" {
		t.Fatal("expected profile changes applied")
	}

	if _, err := h.engine.UpdateOwnProfile(ctx, "user-1", nil, strptr("bob@example.com")); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestUpdateOwnPassword(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	h.seedUser(t, "user-1", "alice@example.com", "correct-horse-battery", nil)

	if err := h.engine.UpdateOwnPassword(ctx, "user-1", "wrong-password-00", "brand-new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := h.engine.UpdateOwnPassword(ctx, "user-1", "correct-horse-battery", "correct-horse-battery"); !errors.Is(err, ErrSamePassword) {
		t.Fatalf("expected ErrSamePassword, got %v", err)
	}
	if err := h.engine.UpdateOwnPassword(ctx, "user-1", "correct-horse-battery", "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}

	if err := h.engine.UpdateOwnPassword(ctx, "user-1", "correct-horse-battery", "brand-new-password"); err != nil {
		t.Fatalf("UpdateOwnPassword failed: %v", err)
	}
	if _, err := h.engine.Login(ctx, "alice@example.com", "brand-new-password"); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
}

func TestListUsers(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		h.seedUser(t, string(rune('a'+i))+"-user", string(rune('a'+i))+"@example.com", "correct-horse-battery", nil)
	}

	page, total, err := h.engine.ListUsers(ctx, 0, 3)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(page) != 3 {
		t.Fatalf("expected page of 3, got %d", len(page))
	}
}
