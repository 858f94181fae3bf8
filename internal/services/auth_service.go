package services

import (
	"database/sql"
	"errors"

	"stockkeeper/internal/domain"
	"stockkeeper/internal/repos"
	"stockkeeper/internal/validate"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCreds     = errors.New("invalid username or password")
	ErrNotAdmin     = errors.New("admin role required")
	ErrReservedUser = repos.ErrReservedUser
	ErrUserExists   = errors.New("username already taken")
	ErrUserNotFound = errors.New("user not found")
	ErrBadUsername  = errors.New("invalid username")
	ErrBadPassword  = errors.New("password must not be empty")
)

type AuthService struct {
	Users *repos.UserRepo
}

func NewAuthService(users *repos.UserRepo) *AuthService { return &AuthService{Users: users} }

// Check verifies credentials without opening a session.
func (s *AuthService) Check(username, password string) (*domain.User, error) {
	u, err := s.Users.ByUsername(username)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	return u, nil
}

// Login opens an admin session bound to sid. Valid credentials of a
// non-admin user yield ErrNotAdmin and no session.
func (s *AuthService) Login(sid, username, password string) (*domain.User, error) {
	u, err := s.Check(username, password)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin() {
		return u, ErrNotAdmin
	}
	if err := s.Users.BindSession(sid, u.Username); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}

func (s *AuthService) ListUsers() ([]domain.User, error) { return s.Users.List() }

func (s *AuthService) GetUser(username string) (*domain.User, error) {
	u, err := s.Users.ByUsername(username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) CreateUser(username, password, role string) error {
	username, ok := validate.Username(username)
	if !ok {
		return ErrBadUsername
	}
	if password == "" {
		return ErrBadPassword
	}
	if _, err := s.Users.ByUsername(username); err == nil {
		return ErrUserExists
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), repos.BcryptCost)
	if err != nil {
		return err
	}
	return s.Users.Create(username, string(h), validate.Role(role))
}

// UpdateUser changes the role, and the password when one is given. The
// reserved admin always keeps the admin role.
func (s *AuthService) UpdateUser(username, password, role string) error {
	if _, err := s.GetUser(username); err != nil {
		return err
	}
	role = validate.Role(role)
	if username == domain.ReservedUsername {
		role = domain.RoleAdmin
	}
	if password == "" {
		return s.Users.UpdateRole(username, role)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), repos.BcryptCost)
	if err != nil {
		return err
	}
	return s.Users.UpdatePasswordAndRole(username, string(h), role)
}

// DeleteUser removes a user; the reserved admin account yields
// ErrReservedUser and stays.
func (s *AuthService) DeleteUser(username string) error {
	return s.Users.Delete(username)
}
