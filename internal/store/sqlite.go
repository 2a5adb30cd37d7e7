package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logx "barghbot/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) User(ctx context.Context, chatID int64) (User, error) {
	u := User{ChatID: chatID}
	var pending, tempBill sql.NullString
	var homeMsgID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT pending, temp_bill, home_msg_id FROM users WHERE chat_id = ?`, chatID).
		Scan(&pending, &tempBill, &homeMsgID)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return u, err
	}
	u.Pending = pending.String
	u.TempBill = tempBill.String
	u.HomeMsgID = int(homeMsgID.Int64)
	return u, nil
}

// setUserField upserts the users row and assigns one column.
func (s *sqliteStore) setUserField(ctx context.Context, chatID int64, column string, value any) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO users(chat_id, %s) VALUES(?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET %s=excluded.%s`, column, column, column),
		chatID, value)
	return err
}

func (s *sqliteStore) SetPending(ctx context.Context, chatID int64, value string) error {
	return s.setUserField(ctx, chatID, "pending", nullStr(value))
}

func (s *sqliteStore) SetTempBill(ctx context.Context, chatID int64, bill string) error {
	return s.setUserField(ctx, chatID, "temp_bill", nullStr(bill))
}

func (s *sqliteStore) SetHomeMsgID(ctx context.Context, chatID int64, msgID int) error {
	return s.setUserField(ctx, chatID, "home_msg_id", msgID)
}

func (s *sqliteStore) UpsertBill(ctx context.Context, chatID int64, name, billID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bills(chat_id, name, bill_id) VALUES(?,?,?)
		 ON CONFLICT(chat_id, name) DO UPDATE SET bill_id=excluded.bill_id`,
		chatID, name, billID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO bill_alerts(chat_id, bill_id) VALUES(?,?)`,
		chatID, billID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Bills(ctx context.Context, chatID int64) ([]Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, bill_id FROM bills WHERE chat_id = ? ORDER BY id DESC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bill
	for rows.Next() {
		b := Bill{ChatID: chatID}
		if err := rows.Scan(&b.ID, &b.Name, &b.BillID); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteBill(ctx context.Context, chatID int64, billID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM bills WHERE chat_id = ? AND bill_id = ?`, chatID, billID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, q := range []string{
		`DELETE FROM bill_alerts WHERE chat_id = ? AND bill_id = ?`,
		`DELETE FROM sent_alerts WHERE chat_id = ? AND bill_id = ?`,
		`DELETE FROM bills WHERE chat_id = ? AND bill_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, chatID, billID); err != nil {
			return false, err
		}
	}
	return true, tx.Commit()
}

func (s *sqliteStore) AlertFlags(ctx context.Context, chatID int64, billID string) (AlertFlags, error) {
	var f AlertFlags
	err := s.db.QueryRowContext(ctx,
		`SELECT a1h, a10m, a1201 FROM bill_alerts WHERE chat_id = ? AND bill_id = ?`,
		chatID, billID).Scan(&f.Hour, &f.TenMin, &f.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return AlertFlags{}, nil
	}
	return f, err
}

func (s *sqliteStore) SetAlertFlag(ctx context.Context, chatID int64, billID, kind string, on bool) error {
	col, err := flagColumn(kind)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO bill_alerts(chat_id, bill_id) VALUES(?,?)`,
		chatID, billID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE bill_alerts SET %s = ? WHERE chat_id = ? AND bill_id = ?`, col),
		on, chatID, billID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) ActiveSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.chat_id, b.name, b.bill_id, a.a1h, a.a10m, a.a1201
		 FROM bills b
		 JOIN bill_alerts a ON a.chat_id = b.chat_id AND a.bill_id = b.bill_id
		 WHERE a.a1h = 1 OR a.a10m = 1 OR a.a1201 = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ChatID, &sub.Name, &sub.BillID,
			&sub.Flags.Hour, &sub.Flags.TenMin, &sub.Flags.Digest); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *sqliteStore) MarkSent(ctx context.Context, chatID int64, billID, kind, jdate, uniq string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sent_alerts(chat_id, bill_id, kind, jdate, uniq) VALUES(?,?,?,?,?)`,
		chatID, billID, kind, jdate, uniq)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqliteStore) PurgeSentBefore(ctx context.Context, jdate string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sent_alerts WHERE jdate < ?`, jdate)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}
