package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"megasena/internal/models"
)

// MemoryStore is an in-memory Store used by tests. It honors the same
// transactional semantics as SQLStore: batch inserts are all-or-nothing and
// the OPEN re-check happens under the same lock as the insert.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	contests map[string]models.Contest
	bets     map[string]models.Bet
	betOrder []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		contests: make(map[string]models.Contest),
		bets:     make(map[string]models.Bet),
	}
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return models.User{}, ErrDuplicate
		}
	}
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// Contests

func (s *MemoryStore) CreateContest(ctx context.Context, c models.Contest) (models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.contests {
		if existing.Number == c.Number {
			return models.Contest{}, ErrDuplicate
		}
	}
	for _, existing := range s.contests {
		if existing.Status == models.StatusOpen {
			return models.Contest{}, ErrOpenContestExists
		}
	}
	c.ID = uuid.New().String()
	c.Status = models.StatusOpen
	c.DrawnNumbers = models.IntList{}
	c.CreatedAt = time.Now().UTC()
	s.contests[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetContest(ctx context.Context, id string) (models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contests[id]
	if !ok {
		return models.Contest{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) GetOpenContest(ctx context.Context) (models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open []models.Contest
	for _, c := range s.contests {
		if c.Status == models.StatusOpen {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return models.Contest{}, ErrNotFound
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].CreatedAt.After(open[j].CreatedAt)
		}
		return open[i].Number > open[j].Number
	})
	return open[0], nil
}

func (s *MemoryStore) ListContests(ctx context.Context) ([]models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var contests []models.Contest
	for _, c := range s.contests {
		contests = append(contests, c)
	}
	sort.Slice(contests, func(i, j int) bool { return contests[i].Number > contests[j].Number })
	return contests, nil
}

func (s *MemoryStore) ListFinishedContests(ctx context.Context) ([]models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var contests []models.Contest
	for _, c := range s.contests {
		if c.Status == models.StatusFinished {
			contests = append(contests, c)
		}
	}
	sort.Slice(contests, func(i, j int) bool { return contests[i].Number > contests[j].Number })
	return contests, nil
}

func (s *MemoryStore) FinishContest(ctx context.Context, id string, drawn []int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contests[id]
	if !ok || c.Status != models.StatusOpen {
		return false, nil
	}
	c.Status = models.StatusFinished
	c.DrawnNumbers = append(models.IntList{}, drawn...)
	s.contests[id] = c
	return true, nil
}

func (s *MemoryStore) DeleteContest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contests[id]; !ok {
		return ErrNotFound
	}
	delete(s.contests, id)
	for betID, b := range s.bets {
		if b.ContestID == id {
			delete(s.bets, betID)
		}
	}
	return nil
}

// Bets

func (s *MemoryStore) InsertBets(ctx context.Context, contestID string, bets []models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contests[contestID]
	if !ok {
		return ErrNotFound
	}
	if c.Status != models.StatusOpen {
		return ErrContestNotOpen
	}

	now := time.Now().UTC()
	for i := range bets {
		b := &bets[i]
		b.ID = uuid.New().String()
		b.ContestID = contestID
		b.Hits = nil
		b.CreatedAt = now
		s.bets[b.ID] = *b
		s.betOrder = append(s.betOrder, b.ID)
	}
	return nil
}

func (s *MemoryStore) ListBetsByContest(ctx context.Context, contestID string) ([]models.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bets []models.Bet
	for _, id := range s.betOrder {
		if b, ok := s.bets[id]; ok && b.ContestID == contestID {
			bets = append(bets, b)
		}
	}
	return bets, nil
}

func (s *MemoryStore) ListBetsByUser(ctx context.Context, userID string) ([]models.BetWithContest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.BetWithContest
	// betOrder is insertion order; walk it backwards for newest first.
	for i := len(s.betOrder) - 1; i >= 0; i-- {
		b, ok := s.bets[s.betOrder[i]]
		if !ok || b.UserID != userID {
			continue
		}
		c, ok := s.contests[b.ContestID]
		if !ok {
			continue
		}
		result = append(result, models.BetWithContest{Bet: b, Contest: c})
	}
	return result, nil
}

func (s *MemoryStore) UpdateHits(ctx context.Context, hits map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for betID := range hits {
		if _, ok := s.bets[betID]; !ok {
			return ErrNotFound
		}
	}
	for betID, h := range hits {
		b := s.bets[betID]
		hh := h
		b.Hits = &hh
		s.bets[betID] = b
	}
	return nil
}

func (s *MemoryStore) CountBets(ctx context.Context, contestID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, b := range s.bets {
		if b.ContestID == contestID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) WinnerCounts(ctx context.Context, contestID string) (models.WinnerCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts models.WinnerCounts
	for _, b := range s.bets {
		if b.ContestID != contestID || b.Hits == nil {
			continue
		}
		switch *b.Hits {
		case 6:
			counts.Sena++
		case 5:
			counts.Quina++
		case 4:
			counts.Quadra++
		}
	}
	return counts, nil
}

func (s *MemoryStore) WinnerUsernames(ctx context.Context, contestID string, hits int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var usernames []string
	for _, b := range s.bets {
		if b.ContestID != contestID || b.Hits == nil || *b.Hits != hits {
			continue
		}
		if u, ok := s.users[b.UserID]; ok {
			usernames = append(usernames, u.Username)
		}
	}
	sort.Strings(usernames)
	return usernames, nil
}
