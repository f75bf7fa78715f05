package history

import (
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/salesbot/internal/domain"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS order_history (
	id              BIGSERIAL PRIMARY KEY,
	ts              TIMESTAMPTZ NOT NULL,
	success         BOOLEAN NOT NULL,
	order_id        TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	item_code       TEXT NOT NULL,
	item_name       TEXT NOT NULL,
	quantity        INTEGER NOT NULL,
	current_stock   DOUBLE PRECISION NOT NULL,
	predicted_sales DOUBLE PRECISION NOT NULL
)`

// PostgresStore is the database-backed history for deployments with a
// DATABASE_URL configured. Same append-only contract as the CSV store: rows
// are only ever inserted.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects and ensures the history table exists.
func NewPostgresStore(url string) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(results []domain.OrderResult) error {
	rows := Flatten(results)
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	const insert = `
		INSERT INTO order_history
			(ts, success, order_id, error, item_code, item_name, quantity, current_stock, predicted_sales)
		VALUES
			(:ts, :success, :order_id, :error, :item_code, :item_name, :quantity, :current_stock, :predicted_sales)`
	for _, row := range rows {
		if _, err := tx.NamedExec(insert, row); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Load() ([]Row, error) {
	var rows []Row
	const query = `
		SELECT ts, success, order_id, error, item_code, item_name, quantity, current_stock, predicted_sales
		FROM order_history ORDER BY id`
	if err := s.db.Select(&rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

var _ Store = (*PostgresStore)(nil)
