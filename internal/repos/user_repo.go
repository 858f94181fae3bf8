package repos

import (
	"errors"

	"stockkeeper/internal/domain"

	"github.com/jmoiron/sqlx"
)

var ErrReservedUser = errors.New("the admin account cannot be deleted")

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) ByUsername(username string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT username, COALESCE(password,'') AS password, COALESCE(role,'') AS role
		FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns users without their hashes.
func (r *UserRepo) List() ([]domain.User, error) {
	out := []domain.User{}
	err := r.DB.Select(&out, `SELECT username, '' AS password, COALESCE(role,'') AS role FROM users ORDER BY username`)
	return out, err
}

func (r *UserRepo) Create(username, hash, role string) error {
	_, err := r.DB.Exec(`INSERT INTO users(username, password, role) VALUES(?,?,?)`, username, hash, role)
	return err
}

func (r *UserRepo) UpdateRole(username, role string) error {
	_, err := r.DB.Exec(`UPDATE users SET role = ? WHERE username = ?`, role, username)
	return err
}

func (r *UserRepo) UpdatePasswordAndRole(username, hash, role string) error {
	_, err := r.DB.Exec(`UPDATE users SET password = ?, role = ? WHERE username = ?`, hash, role, username)
	return err
}

// Delete removes a user and its sessions. The reserved admin is refused.
func (r *UserRepo) Delete(username string) error {
	if username == domain.ReservedUsername {
		return ErrReservedUser
	}
	if _, err := r.DB.Exec(`DELETE FROM sessions WHERE username = ?`, username); err != nil {
		return err
	}
	_, err := r.DB.Exec(`DELETE FROM users WHERE username = ?`, username)
	return err
}

func (r *UserRepo) BindSession(sid, username string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id, username, created_at)
                          VALUES(?, ?, CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET username = excluded.username, created_at = CURRENT_TIMESTAMP`, sid, username)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.username, COALESCE(u.password,'') AS password, COALESCE(u.role,'') AS role
      FROM sessions s
      JOIN users u ON u.username = s.username
      WHERE s.id = ?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`DELETE FROM sessions WHERE id = ?`, sid)
	return err
}
