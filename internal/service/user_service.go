package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"projectboard/internal/domain"
	"projectboard/internal/notify"
	"projectboard/internal/repository"
)

// RegisterInput carries the sign-up form fields.
type RegisterInput struct {
	FirstName            string
	LastName             string
	Email                string
	Password             string
	PasswordConfirmation string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type userService struct {
	users    repository.UserRepository
	notifier notify.Notifier
}

func NewUserService(users repository.UserRepository, notifier notify.Notifier) UserService {
	return &userService{
		users:    users,
		notifier: notifier,
	}
}

const minPasswordLength = 6

// Register creates a user and dispatches the welcome notification exactly
// once per successful creation. The dispatch is not awaited.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.TrimSpace(input.Email)

	verr := domain.NewValidationError()
	if firstName == "" {
		verr.Add("first_name", domain.MsgBlank)
	}
	if lastName == "" {
		verr.Add("last_name", domain.MsgBlank)
	}
	if email == "" {
		verr.Add("email", domain.MsgBlank)
	}
	if input.Password == "" {
		verr.Add("password", domain.MsgBlank)
	} else if len(input.Password) < minPasswordLength {
		verr.Add("password", "is too short (minimum is 6 characters)")
	}
	if input.Password != input.PasswordConfirmation {
		verr.Add("password_confirmation", "doesn't match Password")
	}
	if verr.Any() {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hash),
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			verr.Add("email", domain.MsgTaken)
			return nil, verr
		}
		return nil, err
	}

	go func(u domain.User) {
		_ = s.notifier.SendWelcome(context.WithoutCancel(ctx), &u)
	}(*user)

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthenticated
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
