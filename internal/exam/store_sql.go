package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/testcheck/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(dbh *sql.DB) *SQLStore {
	return &SQLStore{db: dbh}
}

// Execer lets relation helpers run on either *sql.DB or *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const testColumns = `id, test_id, subject1, subject2, status, answers, created_at`

func scanTest(row rowScanner) (Test, error) {
	var t Test
	var created int64
	if err := row.Scan(&t.ID, &t.TestID, &t.Subject1, &t.Subject2, &t.Status, &t.Answers, &created); err != nil {
		return Test{}, err
	}
	t.CreatedAt = time.Unix(created, 0).UTC()
	return t, nil
}

func (s *SQLStore) CreateTest(ctx context.Context, t Test) (Test, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, `INSERT INTO tests (test_id, subject1, subject2, status, answers, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		t.TestID, t.Subject1, t.Subject2, t.Status, t.Answers, t.CreatedAt.Unix()).Scan(&t.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Test{}, ErrTestExists
		}
		return Test{}, fmt.Errorf("insert test: %w", err)
	}
	t.CreatedAt = time.Unix(t.CreatedAt.Unix(), 0).UTC()
	return t, nil
}

func (s *SQLStore) GetTest(ctx context.Context, testID string) (Test, error) {
	t, err := scanTest(s.db.QueryRowContext(ctx, `SELECT `+testColumns+` FROM tests WHERE test_id=$1`, testID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrTestNotFound
		}
		return Test{}, fmt.Errorf("get test: %w", err)
	}
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context, opts ListOpts) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests ORDER BY id LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateTest(ctx context.Context, testID string, p TestPatch) (Test, error) {
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if p.Answers != nil {
			var stored int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_responses WHERE test_id=$1`, testID).Scan(&stored); err != nil {
				return fmt.Errorf("count responses: %w", err)
			}
			if stored > 0 {
				return ErrTestHasResponses
			}
		}
		res, err := tx.ExecContext(ctx, `UPDATE tests SET
			subject1=COALESCE($1, subject1),
			subject2=COALESCE($2, subject2),
			status=COALESCE($3, status),
			answers=COALESCE($4, answers)
			WHERE test_id=$5`,
			p.Subject1, p.Subject2, p.Status, p.Answers, testID)
		if err != nil {
			return fmt.Errorf("update test: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrTestNotFound
		}
		return nil
	})
	if err != nil {
		return Test{}, err
	}
	return s.GetTest(ctx, testID)
}

func (s *SQLStore) DeleteTest(ctx context.Context, testID string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.DropRelation(ctx, tx, testID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tests WHERE test_id=$1`, testID)
		if err != nil {
			return fmt.Errorf("delete test: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrTestNotFound
		}
		return nil
	})
}
