package repos

import "github.com/jmoiron/sqlx"

// Store groups the repositories sharing one database handle.
type Store struct {
	DB       *sqlx.DB
	Products *ProductRepo
	Logs     *LogRepo
	Users    *UserRepo
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		DB:       db,
		Products: NewProductRepo(db),
		Logs:     NewLogRepo(db),
		Users:    NewUserRepo(db),
	}
}

func (s *Store) Close() error { return s.DB.Close() }
