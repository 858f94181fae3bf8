package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	// ReservedUsername is seeded at first start and can never be deleted.
	ReservedUsername = "admin"
)

type User struct {
	Username string `db:"username"`
	Hash     string `db:"password"`
	Role     string `db:"role"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
