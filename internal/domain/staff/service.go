package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hms/hms/internal/platform/auth"
)

// RegisterInput is the payload accepted when an administrator creates a
// staff credential.
type RegisterInput struct {
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Password   string         `json:"password"`
	Department *string        `json:"department,omitempty"`
	Doctor     *DoctorProfile `json:"doctor,omitempty"`
}

// ProfileUpdate is the mutable slice of a credential. Email, role and
// password are deliberately rejected when present so they cannot be changed
// through the profile path.
type ProfileUpdate struct {
	Name       *string        `json:"name,omitempty"`
	Department *string        `json:"department,omitempty"`
	Doctor     *DoctorProfile `json:"doctor,omitempty"`

	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Service implements staff credential management and per-role login.
type Service struct {
	repo   Repository
	tokens *auth.Tokens
	log    zerolog.Logger
}

func NewService(repo Repository, tokens *auth.Tokens, log zerolog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, log: log}
}

// Login verifies an email/password pair against one role collection and
// issues a bearer token. Unknown email and wrong password both come back as
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, role, email, password string) (*Credential, string, error) {
	if !ValidRole(role) {
		return nil, "", invalidf("unknown role %q", role)
	}
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	c, err := s.repo.FindByEmail(ctx, role, email)
	if errors.Is(err, ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(c.ID, c.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.Info().Str("role", role).Str("staff_id", c.ID.String()).Msg("staff login")
	return c, token, nil
}

// Register creates a credential in the given role collection.
func (s *Service) Register(ctx context.Context, role string, in RegisterInput) (*Credential, error) {
	if !ValidRole(role) {
		return nil, invalidf("unknown role %q", role)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" || in.Email == "" {
		return nil, invalidf("name and email are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, invalidf("invalid email address")
	}
	if len(in.Password) < 6 {
		return nil, invalidf("password must be at least 6 characters")
	}
	if role == auth.RoleDoctor && (in.Doctor == nil || in.Doctor.Specialization == "") {
		return nil, invalidf("doctor registration requires a specialization")
	}
	if hasDepartment(role) && (in.Department == nil || *in.Department == "") {
		return nil, invalidf("%s registration requires a department", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	c := &Credential{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		Department:   in.Department,
		Doctor:       in.Doctor,
	}
	if role == auth.RoleDoctor && c.Doctor != nil {
		c.Doctor.IsActive = true
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("role", role).Str("staff_id", c.ID.String()).Msg("staff registered")
	return c, nil
}

// UpdateProfile applies a partial update to a credential. Attempts to change
// email, role or password are rejected rather than silently dropped.
func (s *Service) UpdateProfile(ctx context.Context, role string, id uuid.UUID, upd ProfileUpdate) (*Credential, error) {
	if upd.Email != nil || upd.Role != nil || upd.Password != nil {
		return nil, invalidf("email, role and password cannot be changed here")
	}

	c, err := s.repo.FindByID(ctx, role, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalidf("name cannot be empty")
		}
		c.Name = name
	}
	if upd.Department != nil {
		if !hasDepartment(role) {
			return nil, invalidf("role %q has no department", role)
		}
		c.Department = upd.Department
	}
	if upd.Doctor != nil {
		if role != auth.RoleDoctor {
			return nil, invalidf("role %q has no doctor profile", role)
		}
		c.Doctor = upd.Doctor
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, role string, id uuid.UUID) (*Credential, error) {
	if !ValidRole(role) {
		return nil, invalidf("unknown role %q", role)
	}
	return s.repo.FindByID(ctx, role, id)
}

func (s *Service) List(ctx context.Context, role string) ([]*Credential, error) {
	if !ValidRole(role) {
		return nil, invalidf("unknown role %q", role)
	}
	return s.repo.List(ctx, role)
}

func (s *Service) Delete(ctx context.Context, role string, id uuid.UUID) error {
	if !ValidRole(role) {
		return invalidf("unknown role %q", role)
	}
	if err := s.repo.Delete(ctx, role, id); err != nil {
		return err
	}
	s.log.Info().Str("role", role).Str("staff_id", id.String()).Msg("staff deleted")
	return nil
}

// Counts returns the number of credentials per role, used by the admin
// dashboard.
func (s *Service) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(Roles()))
	for _, role := range Roles() {
		n, err := s.repo.Count(ctx, role)
		if err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, nil
}
