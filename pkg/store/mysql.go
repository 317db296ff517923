package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL stores documents in a JSON column and merges them server side with
// JSON_MERGE_PATCH.
type MySQL struct {
	db    *sql.DB
	table string
}

// OpenMySQL connects to dsn (go-sql-driver format), checks the connection
// and creates table when missing.
func OpenMySQL(ctx context.Context, dsn, table string) (*MySQL, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		collection VARCHAR(191) NOT NULL,
		id VARCHAR(191) NOT NULL,
		doc JSON NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id))`, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table %s: %w", table, err)
	}
	return &MySQL{db: db, table: table}, nil
}

func (m *MySQL) Get(ctx context.Context, collection, id string) (Document, error) {
	var data []byte
	err := m.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE collection = ? AND id = ?", m.table),
		collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (m *MySQL) Set(ctx context.Context, collection, id string, doc Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = m.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (collection, id, doc) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE doc = VALUES(doc)", m.table),
		collection, id, string(data))
	return err
}

func (m *MySQL) Merge(ctx context.Context, collection, id string, patch Document) error {
	data, err := encode(patch)
	if err != nil {
		return err
	}
	// a fresh row is patched onto {} so null members are dropped as they are for updates
	_, err = m.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (collection, id, doc) VALUES (?, ?, JSON_MERGE_PATCH('{}', ?))
			ON DUPLICATE KEY UPDATE doc = JSON_MERGE_PATCH(doc, CAST(? AS JSON))`, m.table),
		collection, id, string(data), string(data))
	return err
}

func (m *MySQL) Delete(ctx context.Context, collection, id string) error {
	_, err := m.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE collection = ? AND id = ?", m.table),
		collection, id)
	return err
}

func (m *MySQL) Close() error {
	return m.db.Close()
}
