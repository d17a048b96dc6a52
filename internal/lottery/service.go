package lottery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"megasena/internal/models"
	"megasena/internal/store"
)

// Number pool and game size limits of the game.
const (
	MinNumber         = 1
	MaxNumber         = 60
	DrawCount         = 6
	MinGameSize       = 6
	MinMaxNumbers     = 6
	MaxMaxNumbers     = 60
	DefaultMaxNumbers = 30
)

// Notifier is told about completed draws.
type Notifier interface {
	DrawCompleted(contest models.Contest, counts models.WinnerCounts)
}

// Service is the betting core: contest lifecycle, bet admission, the draw
// and settlement.
type Service struct {
	store    store.Store
	rng      NumberSource
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(st store.Store, rng NumberSource, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		rng:   rng,
		log:   log,
		now:   time.Now,
	}
}

// WithNotifier sets the draw-result notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithClock overrides the wall clock, for deadline tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Contest lifecycle

// CreateContest opens a new contest. maxNumbers zero means the default of
// 30; a second OPEN contest is rejected so the single-OPEN invariant is
// enforced at write time rather than trusted to callers.
func (s *Service) CreateContest(ctx context.Context, number int, prizeValue decimal.Decimal, drawDate time.Time, maxNumbers int) (models.Contest, error) {
	if maxNumbers == 0 {
		maxNumbers = DefaultMaxNumbers
	}
	if maxNumbers < MinMaxNumbers || maxNumbers > MaxMaxNumbers {
		return models.Contest{}, ErrInvalidMaxNumbers
	}

	contest, err := s.store.CreateContest(ctx, models.Contest{
		Number:     number,
		PrizeValue: prizeValue,
		DrawDate:   drawDate.UTC(),
		MaxNumbers: maxNumbers,
	})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return models.Contest{}, ErrDuplicateContest
	case errors.Is(err, store.ErrOpenContestExists):
		return models.Contest{}, ErrOpenContestExists
	case err != nil:
		return models.Contest{}, fmt.Errorf("create contest: %w", err)
	}

	s.log.Info().Int("contest", contest.Number).Int("max_numbers", contest.MaxNumbers).Msg("contest created")
	return contest, nil
}

// OpenContest returns the single OPEN contest, or ErrNoOpenContest.
func (s *Service) OpenContest(ctx context.Context) (models.Contest, error) {
	contest, err := s.store.GetOpenContest(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return models.Contest{}, ErrNoOpenContest
	}
	if err != nil {
		return models.Contest{}, fmt.Errorf("get open contest: %w", err)
	}
	return contest, nil
}

// Contest returns a contest by id, or ErrContestNotFound.
func (s *Service) Contest(ctx context.Context, id string) (models.Contest, error) {
	contest, err := s.store.GetContest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Contest{}, ErrContestNotFound
	}
	if err != nil {
		return models.Contest{}, fmt.Errorf("get contest: %w", err)
	}
	return contest, nil
}

// Contests lists every contest, newest number first.
func (s *Service) Contests(ctx context.Context) ([]models.Contest, error) {
	return s.store.ListContests(ctx)
}

// DeleteContest removes a contest and all its bets atomically.
func (s *Service) DeleteContest(ctx context.Context, id string) error {
	err := s.store.DeleteContest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrContestNotFound
	}
	if err != nil {
		return fmt.Errorf("delete contest: %w", err)
	}
	s.log.Info().Str("contest_id", id).Msg("contest deleted")
	return nil
}

// Bet admission

// AdmitBets validates a batch of games against the target contest and stores
// one bet per game. The whole batch is rejected on the first violation;
// nothing is written unless every game passes. Returns the admitted count.
func (s *Service) AdmitBets(ctx context.Context, userID, contestID string, games [][]int) (int, error) {
	if len(games) == 0 {
		return 0, ErrNoGames
	}
	for _, game := range games {
		for _, n := range game {
			if n < MinNumber || n > MaxNumber {
				return 0, ErrNumberOutOfRange
			}
		}
	}

	contest, err := s.store.GetContest(ctx, contestID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrContestNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get contest: %w", err)
	}

	// A contest can still be OPEN in storage after its deadline passed
	// (missed draw); both gates apply.
	if contest.Status != models.StatusOpen || s.now().After(contest.DrawDate) {
		return 0, ErrContestClosed
	}

	for _, game := range games {
		if len(game) < MinGameSize {
			return 0, ErrGameTooShort
		}
		if len(game) > contest.MaxNumbers {
			return 0, ErrGameTooLong
		}
	}
	for _, game := range games {
		seen := make(map[int]bool, len(game))
		for _, n := range game {
			if seen[n] {
				return 0, ErrDuplicateNumbers
			}
			seen[n] = true
		}
	}

	bets := make([]models.Bet, len(games))
	for i, game := range games {
		bets[i] = models.Bet{
			UserID:          userID,
			SelectedNumbers: append(models.IntList{}, game...),
		}
	}

	err = s.store.InsertBets(ctx, contest.ID, bets)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 0, ErrContestNotFound
	case errors.Is(err, store.ErrContestNotOpen):
		return 0, ErrContestClosed
	case err != nil:
		return 0, fmt.Errorf("insert bets: %w", err)
	}

	s.log.Info().
		Int("contest", contest.Number).
		Str("user_id", userID).
		Int("games", len(games)).
		Msg("bets admitted")
	return len(games), nil
}

// Draw

// Draw closes the open contest: 6 distinct numbers in [1,60] are produced by
// rejection sampling over the secure source, the contest is atomically
// flipped to FINISHED, and every bet is settled. The numbers come back in
// draw order. When two draws race, the status flip decides the winner; the
// loser gets ErrNoOpenContest.
func (s *Service) Draw(ctx context.Context) ([]int, error) {
	contest, err := s.OpenContest(ctx)
	if err != nil {
		return nil, err
	}

	drawn, err := DrawNumbers(s.rng, DrawCount, MinNumber, MaxNumber)
	if err != nil {
		return nil, fmt.Errorf("draw numbers: %w", err)
	}

	ok, err := s.store.FinishContest(ctx, contest.ID, drawn)
	if err != nil {
		return nil, fmt.Errorf("finish contest: %w", err)
	}
	if !ok {
		// A concurrent draw flipped the contest first.
		return nil, ErrNoOpenContest
	}

	s.log.Info().Int("contest", contest.Number).Ints("numbers", drawn).Msg("contest drawn")

	if err := s.settle(ctx, contest.ID, drawn); err != nil {
		// The contest is FINISHED with unsettled bets. Settlement is
		// idempotent and can be re-run via Settle.
		s.log.Error().Err(err).Int("contest", contest.Number).Msg("settlement failed, re-run required")
		return nil, fmt.Errorf("settle contest %d: %w", contest.Number, err)
	}

	if s.notifier != nil {
		contest.Status = models.StatusFinished
		contest.DrawnNumbers = models.IntList(drawn)
		counts, err := s.store.WinnerCounts(ctx, contest.ID)
		if err != nil {
			s.log.Warn().Err(err).Msg("winner counts for notification")
		}
		s.notifier.DrawCompleted(contest, counts)
	}

	return drawn, nil
}

// Settle re-runs settlement for a FINISHED contest. Hit counts are a pure
// function of the stored draw, so re-running produces identical results;
// this is the recovery path when the draw committed but settlement failed.
func (s *Service) Settle(ctx context.Context, contestID string) error {
	contest, err := s.Contest(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.Status != models.StatusFinished || len(contest.DrawnNumbers) == 0 {
		return ErrContestNotDrawn
	}
	return s.settle(ctx, contest.ID, contest.DrawnNumbers)
}

// settle scores every bet of the contest against the drawn numbers and
// writes all hit counts in one transaction. Hits are computed in memory
// first so the write transaction stays short.
func (s *Service) settle(ctx context.Context, contestID string, drawn []int) error {
	bets, err := s.store.ListBetsByContest(ctx, contestID)
	if err != nil {
		return fmt.Errorf("list bets: %w", err)
	}
	if len(bets) == 0 {
		return nil
	}

	hits := make(map[string]int, len(bets))
	for _, bet := range bets {
		hits[bet.ID] = CountHits(bet.SelectedNumbers, drawn)
	}

	if err := s.store.UpdateHits(ctx, hits); err != nil {
		return fmt.Errorf("update hits: %w", err)
	}

	s.log.Info().Str("contest_id", contestID).Int("bets", len(bets)).Msg("bets settled")
	return nil
}

// CountHits is the size of the intersection of a game with the drawn
// numbers. Each side holds distinct values, so order is irrelevant and every
// match counts once.
func CountHits(selected, drawn []int) int {
	drawnSet := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		drawnSet[n] = true
	}
	hits := 0
	for _, n := range selected {
		if drawnSet[n] {
			hits++
		}
	}
	return hits
}

// Reporting

// ContestDetail is the admin report for one contest: totals plus winner
// usernames per category.
type ContestDetail struct {
	Contest   models.Contest `json:"contest"`
	TotalBets int            `json:"totalBets"`
	Sena      []string       `json:"sena"`
	Quina     []string       `json:"quina"`
	Quadra    []string       `json:"quadra"`
}

func (s *Service) Detail(ctx context.Context, contestID string) (ContestDetail, error) {
	contest, err := s.Contest(ctx, contestID)
	if err != nil {
		return ContestDetail{}, err
	}

	total, err := s.store.CountBets(ctx, contest.ID)
	if err != nil {
		return ContestDetail{}, fmt.Errorf("count bets: %w", err)
	}

	detail := ContestDetail{Contest: contest, TotalBets: total}
	if detail.Sena, err = s.store.WinnerUsernames(ctx, contest.ID, 6); err != nil {
		return ContestDetail{}, fmt.Errorf("sena winners: %w", err)
	}
	if detail.Quina, err = s.store.WinnerUsernames(ctx, contest.ID, 5); err != nil {
		return ContestDetail{}, fmt.Errorf("quina winners: %w", err)
	}
	if detail.Quadra, err = s.store.WinnerUsernames(ctx, contest.ID, 4); err != nil {
		return ContestDetail{}, fmt.Errorf("quadra winners: %w", err)
	}
	return detail, nil
}

// HistoryEntry is one finished contest with its anonymous winner counts.
type HistoryEntry struct {
	models.Contest
	WinnersCount models.WinnerCounts `json:"winnersCount"`
}

// History lists all FINISHED contests, most recent first.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	contests, err := s.store.ListFinishedContests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list finished contests: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(contests))
	for _, c := range contests {
		counts, err := s.store.WinnerCounts(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("winner counts for contest %d: %w", c.Number, err)
		}
		entries = append(entries, HistoryEntry{Contest: c, WinnersCount: counts})
	}
	return entries, nil
}

// MyBets lists a user's bets with their contests, newest first.
func (s *Service) MyBets(ctx context.Context, userID string) ([]models.BetWithContest, error) {
	return s.store.ListBetsByUser(ctx, userID)
}
