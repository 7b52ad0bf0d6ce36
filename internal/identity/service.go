package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

type Store interface {
	Create(ctx context.Context, u User) error
	ByID(ctx context.Context, id string) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, role string) ([]User, error)
	UpdateProfile(ctx context.Context, id string, p Profile) error
	ReplaceSubjects(ctx context.Context, teacherID string, subjectIDs []string) error
	SetPassword(ctx context.Context, id, hash string) error
	SetRole(ctx context.Context, id, role string) error
}

// Service owns accounts and password checks. Token issuing stays in the auth package.
type Service struct {
	store Store
	cost  int
	now   func() time.Time
}

func NewService(store Store, bcryptCost int, now func() time.Time) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, cost: bcryptCost, now: now}
}

type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Role       string
	RollNumber string
	Course     string
	Department string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" || role == "" {
		return User{}, apperr.Validation("Name, email, password and role are required")
	}
	if !rbac.ValidRole(role) {
		return User{}, apperr.Validation("invalid role: " + role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(in.Name),
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		Role:             role,
		RollNumber:       in.RollNumber,
		Course:           in.Course,
		Department:       in.Department,
		AssignedSubjects: []SubjectRef{},
		CreatedAt:        s.now().UTC(),
		PasswordHash:     string(hash),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login returns the user whose email and password match.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	if email == "" || password == "" {
		return User{}, apperr.Validation("Email and password required")
	}
	u, err := s.store.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return User{}, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, apperr.Unauthorized("Invalid credentials")
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.ByID(ctx, id)
}

func (s *Service) List(ctx context.Context, role string) ([]User, error) {
	return s.store.List(ctx, strings.ToLower(strings.TrimSpace(role)))
}

// UpdateProfile lets a user edit themselves; admins may edit anyone.
func (s *Service) UpdateProfile(ctx context.Context, callerID, callerRole, id string, p Profile) (User, error) {
	if callerID != id && callerRole != rbac.RoleAdmin {
		return User{}, apperr.Forbidden("Forbidden")
	}
	if err := s.store.UpdateProfile(ctx, id, p); err != nil {
		return User{}, err
	}
	return s.store.ByID(ctx, id)
}

// AssignSubjects replaces the subject set of a teacher.
func (s *Service) AssignSubjects(ctx context.Context, id string, subjectIDs []string) (User, error) {
	u, err := s.store.ByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u.Role != rbac.RoleTeacher {
		return User{}, apperr.Validation("only teachers can be assigned subjects")
	}
	if err := s.store.ReplaceSubjects(ctx, id, dedupe(subjectIDs)); err != nil {
		return User{}, err
	}
	return s.store.ByID(ctx, id)
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if newPassword == "" {
		return apperr.Validation("New password required")
	}
	u, err := s.store.ByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return apperr.Forbidden("Incorrect old password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return err
	}
	return s.store.SetPassword(ctx, id, string(hash))
}

func (s *Service) SetRole(ctx context.Context, id, role string) (User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !rbac.ValidRole(role) {
		return User{}, apperr.Validation("invalid role: " + role)
	}
	if err := s.store.SetRole(ctx, id, role); err != nil {
		return User{}, err
	}
	return s.store.ByID(ctx, id)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
