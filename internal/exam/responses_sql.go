package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/testcheck/internal/db"
)

// EnsureRelation registers the response relation of testID. It is a single
// idempotent statement, so concurrent first submissions cannot race on it.
func (s *SQLStore) EnsureRelation(ctx context.Context, q Execer, testID string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO response_relations (test_id, name, created_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (test_id) DO NOTHING`,
		testID, RelationName(testID), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("ensure relation %s: %w", RelationName(testID), err)
	}
	return nil
}

// DropRelation removes every response of testID and the relation itself.
// Dropping a relation that does not exist is a no-op.
func (s *SQLStore) DropRelation(ctx context.Context, q Execer, testID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM test_responses WHERE test_id=$1`, testID); err != nil {
		return fmt.Errorf("drop relation %s: %w", RelationName(testID), err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM response_relations WHERE test_id=$1`, testID); err != nil {
		return fmt.Errorf("drop relation %s: %w", RelationName(testID), err)
	}
	return nil
}

func (s *SQLStore) RelationExists(ctx context.Context, testID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM response_relations WHERE test_id=$1)`, testID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check relation %s: %w", RelationName(testID), err)
	}
	return exists, nil
}

func (s *SQLStore) SubmitterExists(ctx context.Context, testID, telegramID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (
			SELECT 1 FROM test_responses WHERE test_id=$1 AND telegram_id=$2
		)`, testID, telegramID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check telegram id: %w", err)
	}
	return exists, nil
}

func (s *SQLStore) InsertResponse(ctx context.Context, r Response) (Response, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.EnsureRelation(ctx, tx, r.TestID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, `INSERT INTO test_responses
			(test_id, telegram_id, first_name, last_name, middle_name, region, answers, score, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING id`,
			r.TestID, r.TelegramID, r.FirstName, r.LastName, r.MiddleName, r.Region, r.Answers, r.Score, r.CreatedAt.Unix()).
			Scan(&r.ID)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateSubmitter
			}
			return fmt.Errorf("insert response: %w", err)
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	r.CreatedAt = time.Unix(r.CreatedAt.Unix(), 0).UTC()
	return r, nil
}

const responseColumns = `id, test_id, telegram_id, first_name, last_name, middle_name, region, answers, score, created_at`

func (s *SQLStore) ListResponses(ctx context.Context, testID string, opts ListOpts) ([]Response, error) {
	return s.queryResponses(ctx, `SELECT `+responseColumns+` FROM test_responses
		WHERE test_id=$1 ORDER BY id LIMIT $2 OFFSET $3`, testID, opts.Limit, opts.Offset)
}

func (s *SQLStore) ListRanked(ctx context.Context, testID string) ([]Response, error) {
	return s.queryResponses(ctx, `SELECT `+responseColumns+` FROM test_responses
		WHERE test_id=$1 ORDER BY score DESC, id ASC`, testID)
}

func (s *SQLStore) queryResponses(ctx context.Context, query string, args ...any) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	out := []Response{}
	for rows.Next() {
		var r Response
		var middle sql.NullString
		var created int64
		if err := rows.Scan(&r.ID, &r.TestID, &r.TelegramID, &r.FirstName, &r.LastName, &middle,
			&r.Region, &r.Answers, &r.Score, &created); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if middle.Valid {
			m := middle.String
			r.MiddleName = &m
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) ResponseStats(ctx context.Context, testID string) (Stats, error) {
	st := Stats{TestID: testID}
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(MIN(score),0), COALESCE(MAX(score),0), COALESCE(AVG(score),0)
		FROM test_responses WHERE test_id=$1`, testID).
		Scan(&st.Responses, &st.MinScore, &st.MaxScore, &st.AvgScore)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("response stats: %w", err)
	}
	return st, nil
}
