package services

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
)

type fakeUserRepo struct {
	byEmail         map[string]*types.User
	passwordUpdates int
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	if f.byEmail == nil {
		f.byEmail = map[string]*types.User{}
	}
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, tx *gorm.DB, email, hashed string) error {
	f.passwordUpdates++
	if u := f.byEmail[email]; u != nil {
		u.Password = hashed
	}
	return nil
}

func newAdminFixture(t *testing.T) (*AdminService, *fakeUserRepo) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}
	repo := &fakeUserRepo{}
	return NewAdminService(repo, log), repo
}

func TestEnsureAdminUserCreatesWhenAbsent(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "ops@example.com")
	t.Setenv("ADMIN_PASSWORD", "hunter2")

	svc, repo := newAdminFixture(t)
	if err := svc.EnsureAdminUser(context.Background()); err != nil {
		t.Fatalf("EnsureAdminUser: %v", err)
	}

	u := repo.byEmail["ops@example.com"]
	if u == nil {
		t.Fatal("admin user not created")
	}
	if !u.IsAdmin {
		t.Fatal("created user is not admin")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("hunter2")); err != nil {
		t.Fatalf("stored password is not a bcrypt hash of ADMIN_PASSWORD: %v", err)
	}
}

func TestEnsureAdminUserLeavesExistingUntouched(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "ops@example.com")
	t.Setenv("ADMIN_PASSWORD", "new-password")

	svc, repo := newAdminFixture(t)
	repo.byEmail = map[string]*types.User{
		"ops@example.com": {Email: "ops@example.com", Password: "existing-hash", IsAdmin: true},
	}

	if err := svc.EnsureAdminUser(context.Background()); err != nil {
		t.Fatalf("EnsureAdminUser: %v", err)
	}
	if repo.passwordUpdates != 0 {
		t.Fatal("password changed without ADMIN_RESET_PASSWORD")
	}
	if repo.byEmail["ops@example.com"].Password != "existing-hash" {
		t.Fatal("existing password overwritten")
	}
}

func TestEnsureAdminUserResetsWhenFlagged(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "ops@example.com")
	t.Setenv("ADMIN_PASSWORD", "new-password")
	t.Setenv("ADMIN_RESET_PASSWORD", "true")

	svc, repo := newAdminFixture(t)
	repo.byEmail = map[string]*types.User{
		"ops@example.com": {Email: "ops@example.com", Password: "existing-hash", IsAdmin: true},
	}

	if err := svc.EnsureAdminUser(context.Background()); err != nil {
		t.Fatalf("EnsureAdminUser: %v", err)
	}
	if repo.passwordUpdates != 1 {
		t.Fatalf("password updates = %d, want 1", repo.passwordUpdates)
	}
	hashed := repo.byEmail["ops@example.com"].Password
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte("new-password")); err != nil {
		t.Fatalf("password not reset to new hash: %v", err)
	}
}

func TestEnsureAdminUserRequiresPassword(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "ops@example.com")
	t.Setenv("ADMIN_PASSWORD", "")

	svc, repo := newAdminFixture(t)
	err := svc.EnsureAdminUser(context.Background())
	if err != ErrNoAdminPassword {
		t.Fatalf("err = %v, want ErrNoAdminPassword", err)
	}
	if len(repo.byEmail) != 0 {
		t.Fatal("user created without a password")
	}
}
