package prediction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder syntax and driver.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// OpenDatabase opens the database named by url. postgres:// and
// postgresql:// URLs use lib/pq; sqlite://<path> opens a SQLite file (or
// sqlite://:memory:) through modernc.org/sqlite.
func OpenDatabase(url string) (*sql.DB, Dialect, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err := sql.Open("postgres", url)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		return db, DialectPostgres, nil

	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return nil, "", fmt.Errorf("sqlite url %q has no path", url)
		}
		db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		// SQLite allows one writer; a single connection also keeps
		// :memory: databases alive across calls.
		db.SetMaxOpenConns(1)
		return db, DialectSQLite, nil

	default:
		return nil, "", fmt.Errorf("unsupported database url scheme: %q", url)
	}
}

// SQLStore implements Store on database/sql for PostgreSQL and SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLStore creates a store on an open database whose schema has been
// migrated.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) GetOrCreateUser(ctx context.Context, email string) (*User, error) {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (email, created_at)
		VALUES (?, ?)
		ON CONFLICT (email) DO NOTHING
	`), email, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	var u User
	err = s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, email, created_at
		FROM users
		WHERE email = ?
	`), email).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

func (s *SQLStore) CreateUpload(ctx context.Context, userID int64, filename string, rows []Row) (_ *Upload, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	u := Upload{UserID: userID, Filename: filename, UploadedAt: s.now()}
	err = tx.QueryRowContext(ctx, s.rebind(`
		INSERT INTO uploads (user_id, filename, uploaded_at)
		VALUES (?, ?, ?)
		RETURNING id
	`), u.UserID, u.Filename, u.UploadedAt).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert upload: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO predictions (upload_id, customer_id, churn_probability, churn_label, created_at)
		VALUES (?, ?, ?, ?, ?)
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err = stmt.ExecContext(ctx, u.ID, r.RowID, r.Probability, r.Label, u.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to insert prediction %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upload: %w", err)
	}
	return &u, nil
}

func (s *SQLStore) GetUpload(ctx context.Context, id int64) (*Upload, error) {
	var u Upload
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_id, filename, uploaded_at
		FROM uploads
		WHERE id = ?
	`), id).Scan(&u.ID, &u.UserID, &u.Filename, &u.UploadedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	return &u, nil
}

func (s *SQLStore) ListPredictions(ctx context.Context, uploadID int64) ([]StoredPrediction, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, upload_id, customer_id, churn_probability, churn_label, created_at
		FROM predictions
		WHERE upload_id = ?
		ORDER BY id ASC
	`), uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	preds := []StoredPrediction{}
	for rows.Next() {
		var p StoredPrediction
		if err := rows.Scan(&p.ID, &p.UploadID, &p.CustomerID, &p.ChurnProbability,
			&p.ChurnLabel, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return preds, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
