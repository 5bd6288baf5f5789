package services

import (
	"errors"
	"fmt"

	"postroom/app/auth"
	"postroom/app/forms"
	"postroom/app/models"
	"postroom/app/repositories"
)

// UserService registers and authenticates users.
type UserService struct {
	users repositories.UserRepository
}

func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

// Signup creates an account from a validated registration form.
func (s *UserService) Signup(in forms.SignupInput) (*models.User, error) {
	user := &models.User{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}
	user.BeforeCreate()
	if err := user.Validate(); err != nil {
		return nil, invalid("user", err)
	}
	hash, err := auth.HashPassword(in.Password1)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user matching username and password, or
// auth.ErrBadCredentials.
func (s *UserService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, auth.ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByID(id int) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, lookup(err, fmt.Sprintf("user %d", id))
	}
	return user, nil
}

func (s *UserService) GetByUsername(username string) (*models.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, lookup(err, fmt.Sprintf("user %q", username))
	}
	return user, nil
}

// List returns every user ordered by id.
func (s *UserService) List() ([]*models.User, error) {
	return s.users.List()
}
