package repos

import (
	"stockkeeper/internal/domain"

	"github.com/jmoiron/sqlx"
)

type LogRepo struct{ db *sqlx.DB }

func NewLogRepo(db *sqlx.DB) *LogRepo { return &LogRepo{db: db} }

const logCols = `id, COALESCE(timestamp,'') AS timestamp, COALESCE(user,'') AS user,
  COALESCE(action,'') AS action, COALESCE(sku,'') AS sku,
  COALESCE(quantity,0) AS quantity, COALESCE(balance,0) AS balance`

// Append stores e; ID and Timestamp are assigned by the database.
func (r *LogRepo) Append(e domain.LogEntry) error {
	_, err := r.db.Exec(`
		INSERT INTO logs(user, action, sku, quantity, balance) VALUES(?, ?, ?, ?, ?)
	`, e.User, e.Action, e.SKU, e.Quantity, e.Balance)
	return err
}

// Recent returns up to limit entries, newest first.
func (r *LogRepo) Recent(limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	out := []domain.LogEntry{}
	err := r.db.Select(&out, `SELECT `+logCols+` FROM logs ORDER BY id DESC LIMIT ?`, limit)
	return out, err
}

func (r *LogRepo) BySKU(sku string) ([]domain.LogEntry, error) {
	out := []domain.LogEntry{}
	err := r.db.Select(&out, `SELECT `+logCols+` FROM logs WHERE sku = ? ORDER BY id DESC`, sku)
	return out, err
}
