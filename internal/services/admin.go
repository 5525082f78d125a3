package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/repos"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
	"github.com/nextpointlabs/nextpoint-backend/internal/utils"
)

const uniqueViolation = "23505"

type AdminService struct {
	users repos.UserRepo
	log   *logger.Logger
}

func NewAdminService(users repos.UserRepo, log *logger.Logger) *AdminService {
	return &AdminService{users: users, log: log.With("service", "AdminService")}
}

// EnsureAdminUser creates the admin account when it does not exist. An
// existing account is left untouched, password included, unless
// ADMIN_RESET_PASSWORD is set truthy; operators change admin passwords
// through the reporting UI and a deploy must not silently undo that.
//
// Callers treat a returned error as non-fatal: startup logs it and
// continues, because a reporting server without its admin account is
// still more useful than no reporting server.
func (s *AdminService) EnsureAdminUser(ctx context.Context) error {
	email := utils.GetEnv("ADMIN_EMAIL", "admin@nextpoint.local", s.log)
	password := utils.GetEnv("ADMIN_PASSWORD", "", s.log)
	reset := utils.GetEnvAsBool("ADMIN_RESET_PASSWORD", false, s.log)

	if password == "" {
		return ErrNoAdminPassword
	}

	existing, err := s.users.GetByEmail(ctx, nil, email)
	if err != nil {
		return fmt.Errorf("lookup admin user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if existing == nil {
		_, err = s.users.Create(ctx, nil, &types.User{
			Email:    email,
			Password: string(hashed),
			IsAdmin:  true,
		})
		if err != nil {
			// A concurrent replica may have won the insert race.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				s.log.Info("Admin user already created elsewhere", "email", email)
				return nil
			}
			return fmt.Errorf("create admin user: %w", err)
		}
		s.log.Info("Admin user created", "email", email)
		return nil
	}

	if !reset {
		s.log.Info("Admin user exists, leaving untouched", "email", email)
		return nil
	}

	if err := s.users.UpdatePassword(ctx, nil, email, string(hashed)); err != nil {
		return fmt.Errorf("reset admin password: %w", err)
	}
	s.log.Info("Admin password reset", "email", email)
	return nil
}

var ErrNoAdminPassword = errors.New("ADMIN_PASSWORD is not set")
