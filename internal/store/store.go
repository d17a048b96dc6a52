package store

import (
	"context"
	"errors"

	"megasena/internal/models"
)

// Sentinel errors shared by all Store implementations. The lottery service
// maps these to its own failure taxonomy.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("record already exists")
	ErrContestNotOpen    = errors.New("contest is not open")
	ErrOpenContestExists = errors.New("an open contest already exists")
)

// Store is the persistence gateway for users, contests and bets. Mutating
// methods that touch multiple rows run inside a single transaction.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	// Contests
	// CreateContest rejects a duplicate contest number (ErrDuplicate) and
	// refuses to create a second OPEN contest (ErrOpenContestExists).
	CreateContest(ctx context.Context, c models.Contest) (models.Contest, error)
	GetContest(ctx context.Context, id string) (models.Contest, error)
	// GetOpenContest returns the OPEN contest, most recently created first
	// if the single-OPEN invariant is ever violated. ErrNotFound when none.
	GetOpenContest(ctx context.Context) (models.Contest, error)
	ListContests(ctx context.Context) ([]models.Contest, error)
	ListFinishedContests(ctx context.Context) ([]models.Contest, error)
	// FinishContest flips status OPEN -> FINISHED and records the drawn
	// numbers in one atomic statement. It reports false when the contest
	// was not OPEN, which is how a losing concurrent draw detects the race.
	FinishContest(ctx context.Context, id string, drawn []int) (bool, error)
	// DeleteContest removes the contest and all its bets in one transaction.
	DeleteContest(ctx context.Context, id string) error

	// Bets
	// InsertBets stores the whole batch in one transaction, re-checking
	// inside that transaction that the contest is still OPEN
	// (ErrContestNotOpen otherwise).
	InsertBets(ctx context.Context, contestID string, bets []models.Bet) error
	ListBetsByContest(ctx context.Context, contestID string) ([]models.Bet, error)
	ListBetsByUser(ctx context.Context, userID string) ([]models.BetWithContest, error)
	// UpdateHits writes all hit counts in one transaction.
	UpdateHits(ctx context.Context, hits map[string]int) error
	CountBets(ctx context.Context, contestID string) (int, error)
	WinnerCounts(ctx context.Context, contestID string) (models.WinnerCounts, error)
	// WinnerUsernames lists the usernames of bets with exactly the given
	// hit count, for the admin detail report.
	WinnerUsernames(ctx context.Context, contestID string, hits int) ([]string, error)
}
