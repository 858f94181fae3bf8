package repos

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"stockkeeper/internal/domain"
	applog "stockkeeper/internal/log"
)

// DefaultAdminPassword is the password of the seeded admin account.
const DefaultAdminPassword = "admin123"

// BcryptCost is used for every stored password hash.
const BcryptCost = 10

// OpenDB opens the single-file store and prepares the schema. The handle is
// limited to one connection, so ":memory:" works and statements never overlap.
func OpenDB(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout=5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := seedAdmin(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS products(
  sku TEXT PRIMARY KEY,
  name TEXT,
  location TEXT,
  quantity INTEGER,
  image TEXT
);

CREATE TABLE IF NOT EXISTS logs(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
  user TEXT,
  action TEXT,
  sku TEXT,
  quantity INTEGER,
  balance INTEGER
);
CREATE INDEX IF NOT EXISTS idx_logs_sku ON logs(sku);

CREATE TABLE IF NOT EXISTS users(
  username TEXT PRIMARY KEY,
  password TEXT,
  role TEXT
);

-- Admin sessions, keyed by the sid cookie
CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`

// columnAdds bring databases created by older builds up to date. Each one
// fails harmlessly when the column already exists.
var columnAdds = []string{
	`ALTER TABLE products ADD COLUMN location TEXT`,
	`ALTER TABLE products ADD COLUMN image TEXT`,
}

func ensureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	for _, stmt := range columnAdds {
		if _, err := db.Exec(stmt); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("migrating %q: %w", stmt, err)
		}
	}
	return nil
}

// seedAdmin creates the reserved admin account when it is missing.
func seedAdmin(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users WHERE username = ?`, domain.ReservedUsername); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), BcryptCost)
	if err != nil {
		return err
	}
	if _, err := db.Exec(`INSERT INTO users(username, password, role) VALUES(?,?,?)`,
		domain.ReservedUsername, string(h), domain.RoleAdmin); err != nil {
		return err
	}
	applog.Info(nil, "seed.admin", map[string]any{"username": domain.ReservedUsername})
	return nil
}
