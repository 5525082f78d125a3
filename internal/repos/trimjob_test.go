package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
)

// openTestDB gives an in-memory sqlite handle with hand-rolled DDL: the
// production tables carry postgres-only defaults, so AutoMigrate is not
// usable here.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stmts := []string{
		`DROP TABLE IF EXISTS trim_job;`,
		`CREATE TABLE trim_job (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			status TEXT NOT NULL,
			output_key TEXT,
			duration_s REAL,
			error TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`DROP TABLE IF EXISTS "user";`,
		`CREATE TABLE "user" (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		);`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			t.Fatalf("test DDL: %v", err)
		}
	}
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func TestTrimJobRepoLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewTrimJobRepo(db, testLogger(t))
	ctx := context.Background()

	job, err := repo.Create(ctx, nil, &types.TrimJob{
		ID:        uuid.New(),
		TaskID:    "task-1",
		Status:    types.TrimJobRunning,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	duration := 42.5
	job.Status = types.TrimJobDone
	job.OutputKey = "raw/task-1_trimmed.mp4"
	job.DurationS = &duration
	if err := repo.Update(ctx, nil, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetLatestByTaskID(ctx, nil, "task-1")
	if err != nil {
		t.Fatalf("GetLatestByTaskID: %v", err)
	}
	if got == nil {
		t.Fatal("job not found after update")
	}
	if got.Status != types.TrimJobDone || got.OutputKey != "raw/task-1_trimmed.mp4" {
		t.Fatalf("unexpected job state: %+v", got)
	}
	if got.DurationS == nil || *got.DurationS != 42.5 {
		t.Fatalf("duration = %v", got.DurationS)
	}
}

func TestTrimJobRepoLatestWins(t *testing.T) {
	db := openTestDB(t)
	repo := NewTrimJobRepo(db, testLogger(t))
	ctx := context.Background()

	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	for _, j := range []*types.TrimJob{
		{ID: uuid.New(), TaskID: "task-2", Status: types.TrimJobFailed, CreatedAt: older, UpdatedAt: older},
		{ID: uuid.New(), TaskID: "task-2", Status: types.TrimJobDone, CreatedAt: newer, UpdatedAt: newer},
	} {
		if _, err := repo.Create(ctx, nil, j); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.GetLatestByTaskID(ctx, nil, "task-2")
	if err != nil {
		t.Fatalf("GetLatestByTaskID: %v", err)
	}
	if got.Status != types.TrimJobDone {
		t.Fatalf("latest job status = %q, want newest row", got.Status)
	}
}

func TestTrimJobRepoMissingTask(t *testing.T) {
	db := openTestDB(t)
	repo := NewTrimJobRepo(db, testLogger(t))

	got, err := repo.GetLatestByTaskID(context.Background(), nil, "nope")
	if err != nil {
		t.Fatalf("GetLatestByTaskID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown task, got %+v", got)
	}
}

func TestUserRepoLookupAndPasswordUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepo(db, testLogger(t))
	ctx := context.Background()

	missing, err := repo.GetByEmail(ctx, nil, "nobody@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown email, got %+v", missing)
	}

	if _, err := repo.Create(ctx, nil, &types.User{
		ID: uuid.New(), Email: "ops@example.com", Password: "hash-1", IsAdmin: true,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.UpdatePassword(ctx, nil, "ops@example.com", "hash-2"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	got, err := repo.GetByEmail(ctx, nil, "ops@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got == nil || got.Password != "hash-2" {
		t.Fatalf("password not updated: %+v", got)
	}
}
