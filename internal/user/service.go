package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthreport/reportd/internal/platform/auth"
)

var (
	ErrInvalid            = errors.New("invalid user")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	MinPasswordLength = 6
	minUsernameLength = 3
	maxUsernameLength = 30
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Organization string `json:"organization"`
	Department   string `json:"department"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type Service struct {
	store      Store
	tokens     *auth.TokenManager
	logger     zerolog.Logger
	bcryptCost int
	now        func() time.Time
}

func NewService(store Store, tokens *auth.TokenManager, logger zerolog.Logger) *Service {
	return &Service{
		store:      store,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}

func validateRegistration(req *RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return invalid("username, email and password are required")
	}
	if n := len(req.Username); n < minUsernameLength || n > maxUsernameLength {
		return invalid(fmt.Sprintf("username must be %d to %d characters", minUsernameLength, maxUsernameLength))
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return invalid("email is not valid")
	}
	if len(req.Password) < MinPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// Register creates a healthcare professional account and signs the caller in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := validateRegistration(&req); err != nil {
		return nil, err
	}
	u, err := s.create(ctx, req, auth.RoleHealthcareProfessional)
	if err != nil {
		return nil, err
	}
	return s.issue(u, "User registered successfully")
}

func (s *Service) create(ctx context.Context, req RegisterRequest, role string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Organization: req.Organization,
		Department:   req.Department,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the credentials and records the login time. Unknown emails,
// wrong passwords and inactive accounts all fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, invalid("email and password are required")
	}

	u, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	at := s.now().UTC()
	if err := s.store.UpdateLastLogin(ctx, u.ID, at); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record last login")
	} else {
		u.LastLogin = &at
	}
	return s.issue(u, "Login successful")
}

func (s *Service) issue(u *User, message string) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(u.ID.String(), u.Username, u.Email, []string{u.Role})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Message: message, Token: token, ExpiresAt: exp, User: u}, nil
}

// Count returns the number of accounts.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.store.GetByID(ctx, uid)
}
