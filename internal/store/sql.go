package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"megasena/internal/models"
)

// SQLStore implements Store on top of sqlite/libsql.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Users

func (s *SQLStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	defer tx.Rollback()

	var existing string
	err = tx.GetContext(ctx, &existing, "SELECT id FROM users WHERE username = ?", u.Username)
	if err == nil {
		return models.User{}, ErrDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Username, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	return u, tx.Commit()
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// Contests

func (s *SQLStore) CreateContest(ctx context.Context, c models.Contest) (models.Contest, error) {
	c.ID = uuid.New().String()
	c.Status = models.StatusOpen
	c.DrawnNumbers = models.IntList{}
	c.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Contest{}, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM contests WHERE number = ?", c.Number); err != nil {
		return models.Contest{}, err
	}
	if count > 0 {
		return models.Contest{}, ErrDuplicate
	}

	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM contests WHERE status = ?", models.StatusOpen); err != nil {
		return models.Contest{}, err
	}
	if count > 0 {
		return models.Contest{}, ErrOpenContestExists
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO contests (id, number, prize_value, draw_date, max_numbers, status, drawn_numbers, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Number, c.PrizeValue, c.DrawDate, c.MaxNumbers, c.Status, c.DrawnNumbers, c.CreatedAt)
	if err != nil {
		return models.Contest{}, err
	}
	return c, tx.Commit()
}

func (s *SQLStore) GetContest(ctx context.Context, id string) (models.Contest, error) {
	var c models.Contest
	err := s.db.GetContext(ctx, &c, "SELECT * FROM contests WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contest{}, ErrNotFound
	}
	return c, err
}

func (s *SQLStore) GetOpenContest(ctx context.Context) (models.Contest, error) {
	var c models.Contest
	err := s.db.GetContext(ctx, &c,
		"SELECT * FROM contests WHERE status = ? ORDER BY created_at DESC, number DESC LIMIT 1",
		models.StatusOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contest{}, ErrNotFound
	}
	return c, err
}

func (s *SQLStore) ListContests(ctx context.Context) ([]models.Contest, error) {
	var contests []models.Contest
	err := s.db.SelectContext(ctx, &contests, "SELECT * FROM contests ORDER BY number DESC")
	return contests, err
}

func (s *SQLStore) ListFinishedContests(ctx context.Context) ([]models.Contest, error) {
	var contests []models.Contest
	err := s.db.SelectContext(ctx, &contests,
		"SELECT * FROM contests WHERE status = ? ORDER BY number DESC", models.StatusFinished)
	return contests, err
}

func (s *SQLStore) FinishContest(ctx context.Context, id string, drawn []int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE contests SET status = ?, drawn_numbers = ? WHERE id = ? AND status = ?",
		models.StatusFinished, models.IntList(drawn), id, models.StatusOpen)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *SQLStore) DeleteContest(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bets WHERE contest_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM contests WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Bets

func (s *SQLStore) InsertBets(ctx context.Context, contestID string, bets []models.Bet) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Re-check inside the transaction: a draw committing between the
	// caller's validation and this insert must not gain a late bet.
	var status models.ContestStatus
	err = tx.GetContext(ctx, &status, "SELECT status FROM contests WHERE id = ?", contestID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != models.StatusOpen {
		return ErrContestNotOpen
	}

	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO bets (id, user_id, contest_id, selected_numbers, hits, created_at) VALUES (?, ?, ?, ?, NULL, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range bets {
		b := &bets[i]
		b.ID = uuid.New().String()
		b.ContestID = contestID
		b.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, b.ID, b.UserID, b.ContestID, b.SelectedNumbers, b.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListBetsByContest(ctx context.Context, contestID string) ([]models.Bet, error) {
	var bets []models.Bet
	err := s.db.SelectContext(ctx, &bets,
		"SELECT * FROM bets WHERE contest_id = ? ORDER BY created_at ASC, rowid ASC", contestID)
	return bets, err
}

func (s *SQLStore) ListBetsByUser(ctx context.Context, userID string) ([]models.BetWithContest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.contest_id, b.selected_numbers, b.hits, b.created_at,
		       c.id, c.number, c.prize_value, c.draw_date, c.max_numbers, c.status, c.drawn_numbers, c.created_at
		FROM bets b
		JOIN contests c ON b.contest_id = c.id
		WHERE b.user_id = ?
		ORDER BY b.created_at DESC, b.rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.BetWithContest
	for rows.Next() {
		var bc models.BetWithContest
		err := rows.Scan(
			&bc.ID, &bc.UserID, &bc.ContestID, &bc.SelectedNumbers, &bc.Hits, &bc.Bet.CreatedAt,
			&bc.Contest.ID, &bc.Contest.Number, &bc.Contest.PrizeValue, &bc.Contest.DrawDate,
			&bc.Contest.MaxNumbers, &bc.Contest.Status, &bc.Contest.DrawnNumbers, &bc.Contest.CreatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, bc)
	}
	return result, rows.Err()
}

func (s *SQLStore) UpdateHits(ctx context.Context, hits map[string]int) error {
	if len(hits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, "UPDATE bets SET hits = ? WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for betID, h := range hits {
		if _, err := stmt.ExecContext(ctx, h, betID); err != nil {
			return fmt.Errorf("update bet %s: %w", betID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) CountBets(ctx context.Context, contestID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM bets WHERE contest_id = ?", contestID)
	return count, err
}

func (s *SQLStore) WinnerCounts(ctx context.Context, contestID string) (models.WinnerCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT hits, COUNT(*) FROM bets WHERE contest_id = ? AND hits IN (4, 5, 6) GROUP BY hits",
		contestID)
	if err != nil {
		return models.WinnerCounts{}, err
	}
	defer rows.Close()

	var counts models.WinnerCounts
	for rows.Next() {
		var h, n int
		if err := rows.Scan(&h, &n); err != nil {
			return models.WinnerCounts{}, err
		}
		switch h {
		case 6:
			counts.Sena = n
		case 5:
			counts.Quina = n
		case 4:
			counts.Quadra = n
		}
	}
	return counts, rows.Err()
}

func (s *SQLStore) WinnerUsernames(ctx context.Context, contestID string, hits int) ([]string, error) {
	var usernames []string
	err := s.db.SelectContext(ctx, &usernames, `
		SELECT u.username
		FROM bets b
		JOIN users u ON b.user_id = u.id
		WHERE b.contest_id = ? AND b.hits = ?
		ORDER BY u.username ASC`, contestID, hits)
	return usernames, err
}
