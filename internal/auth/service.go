package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/store"
	"github.com/eventflow/backend/pkg/utils"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
)

// RegisterInput is a signup request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// Session is an authenticated user with a fresh token.
type Session struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Service handles signup, login and the admin user listing.
type Service struct {
	store  store.Store
	jwt    *JWTService
	logger *zap.Logger
}

// NewService creates an auth service.
func NewService(st store.Store, jwt *JWTService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, jwt: jwt, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an attendee or organizer account. Admin accounts are
// created only through EnsureAdmin.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if in.Role == "" {
		in.Role = models.RoleAttendee
	}
	if in.Role != models.RoleAttendee && in.Role != models.RoleOrganizer {
		return nil, ErrInvalidRole
	}
	u, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *Service) createUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    normalizeEmail(in.Email),
		Password: hash,
		Role:     in.Role,
	}
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		return tx.CreateUser(ctx, u)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(password, u.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.jwt.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{Token: token, User: u.ToPublic()}, nil
}

// ListUsers returns every user, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]models.UserPublic, error) {
	list, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if list == nil {
		list = []models.UserPublic{}
	}
	return list, nil
}

// EnsureAdmin creates the bootstrap admin account if the email is unused.
// An empty email or password disables it.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.createUser(ctx, RegisterInput{Name: name, Email: email, Password: password, Role: models.RoleAdmin})
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}
