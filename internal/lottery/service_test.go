package lottery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"megasena/internal/models"
	"megasena/internal/store"
)

func newTestService(t *testing.T, src NumberSource) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	if src == nil {
		src = CryptoSource{}
	}
	return NewService(st, src, zerolog.Nop()), st
}

func newTestUser(t *testing.T, st *store.MemoryStore, username string) models.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), models.User{
		Username:     username,
		PasswordHash: "x",
		Role:         models.RoleUser,
	})
	require.NoError(t, err)
	return u
}

func openContest(t *testing.T, svc *Service, number, maxNumbers int) models.Contest {
	t.Helper()
	c, err := svc.CreateContest(context.Background(), number,
		decimal.NewFromInt(1_500_000), time.Now().Add(24*time.Hour), maxNumbers)
	require.NoError(t, err)
	return c
}

func TestCreateContest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	t.Run("DefaultMaxNumbers", func(t *testing.T) {
		c := openContest(t, svc, 1, 0)
		require.Equal(t, 30, c.MaxNumbers)
		require.Equal(t, models.StatusOpen, c.Status)
		require.Empty(t, c.DrawnNumbers)
	})

	t.Run("SecondOpenRejected", func(t *testing.T) {
		_, err := svc.CreateContest(ctx, 2, decimal.Zero, time.Now().Add(time.Hour), 0)
		require.ErrorIs(t, err, ErrOpenContestExists)
	})

	t.Run("DuplicateNumber", func(t *testing.T) {
		_, err := svc.Draw(ctx) // finish contest 1 so the open-check passes
		require.NoError(t, err)
		_, err = svc.CreateContest(ctx, 1, decimal.Zero, time.Now().Add(time.Hour), 0)
		require.ErrorIs(t, err, ErrDuplicateContest)
	})

	t.Run("MaxNumbersOutOfRange", func(t *testing.T) {
		_, err := svc.CreateContest(ctx, 3, decimal.Zero, time.Now().Add(time.Hour), 5)
		require.ErrorIs(t, err, ErrInvalidMaxNumbers)
		_, err = svc.CreateContest(ctx, 3, decimal.Zero, time.Now().Add(time.Hour), 61)
		require.ErrorIs(t, err, ErrInvalidMaxNumbers)
	})
}

func TestAdmitBets(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newTestUser(t, st, "alice")
	contest := openContest(t, svc, 1, 30)

	t.Run("ValidBatch", func(t *testing.T) {
		count, err := svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{
			{1, 2, 3, 4, 5, 6},
			{10, 20, 30, 40, 50, 60, 7},
		})
		require.NoError(t, err)
		require.Equal(t, 2, count)

		bets, err := st.ListBetsByContest(ctx, contest.ID)
		require.NoError(t, err)
		require.Len(t, bets, 2)
		require.Nil(t, bets[0].Hits, "hits must stay unset until settlement")
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		_, err := svc.AdmitBets(ctx, user.ID, contest.ID, nil)
		require.ErrorIs(t, err, ErrNoGames)
	})

	t.Run("NumberOutOfRange", func(t *testing.T) {
		_, err := svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{{0, 2, 3, 4, 5, 6}})
		require.ErrorIs(t, err, ErrNumberOutOfRange)
		_, err = svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{{1, 2, 3, 4, 5, 61}})
		require.ErrorIs(t, err, ErrNumberOutOfRange)
	})

	t.Run("GameTooShort", func(t *testing.T) {
		_, err := svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{{1, 2, 3, 4, 5}})
		require.ErrorIs(t, err, ErrGameTooShort)
	})

	t.Run("WholeBatchRejectedOnOneBadGame", func(t *testing.T) {
		// Second game has a duplicate; the valid first game must not be
		// stored either.
		before, err := st.CountBets(ctx, contest.ID)
		require.NoError(t, err)

		_, err = svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{
			{1, 2, 3, 4, 5, 6},
			{1, 1, 2, 3, 4, 5},
		})
		require.ErrorIs(t, err, ErrDuplicateNumbers)

		after, err := st.CountBets(ctx, contest.ID)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("ContestNotFound", func(t *testing.T) {
		_, err := svc.AdmitBets(ctx, user.ID, "missing", [][]int{{1, 2, 3, 4, 5, 6}})
		require.ErrorIs(t, err, ErrContestNotFound)
	})
}

func TestAdmitBets_GameTooLong(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newTestUser(t, st, "alice")
	contest := openContest(t, svc, 1, 10)

	game := make([]int, 11)
	for i := range game {
		game[i] = i + 1
	}
	_, err := svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{game})
	require.ErrorIs(t, err, ErrGameTooLong)
}

func TestAdmitBets_DeadlinePassed(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newTestUser(t, st, "alice")
	contest := openContest(t, svc, 1, 30)

	// Contest still OPEN in storage but its draw date is behind the clock
	// (missed draw). Admission must refuse.
	svc.WithClock(func() time.Time { return contest.DrawDate.Add(time.Minute) })

	_, err := svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{{1, 2, 3, 4, 5, 6}})
	require.ErrorIs(t, err, ErrContestClosed)
}

func TestAdmitBets_FinishedContest(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newTestUser(t, st, "alice")
	contest := openContest(t, svc, 1, 30)

	_, err := svc.Draw(ctx)
	require.NoError(t, err)

	_, err = svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{{1, 2, 3, 4, 5, 6}})
	require.ErrorIs(t, err, ErrContestClosed)
}

func TestDraw(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{values: []int{7, 23, 5, 60, 14, 2}}
	svc, st := newTestService(t, src)
	user := newTestUser(t, st, "alice")
	contest := openContest(t, svc, 1, 30)

	_, err := svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{
		{2, 5, 7, 9, 14, 60},             // 5 hits
		{7, 23, 5, 60, 14, 2},            // 6 hits
		{1, 3, 4, 6, 8, 10},              // 0 hits
		{7, 23, 5, 60, 11, 12, 13, 15},   // 4 hits
	})
	require.NoError(t, err)

	drawn, err := svc.Draw(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{7, 23, 5, 60, 14, 2}, drawn, "draw order must be preserved")

	t.Run("ContestFinished", func(t *testing.T) {
		c, err := st.GetContest(ctx, contest.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusFinished, c.Status)
		require.Equal(t, models.IntList{7, 23, 5, 60, 14, 2}, c.DrawnNumbers)

		_, err = svc.OpenContest(ctx)
		require.ErrorIs(t, err, ErrNoOpenContest)
	})

	t.Run("BetsSettled", func(t *testing.T) {
		bets, err := st.ListBetsByContest(ctx, contest.ID)
		require.NoError(t, err)
		require.Len(t, bets, 4)

		hits := make([]int, len(bets))
		for i, b := range bets {
			require.NotNil(t, b.Hits)
			hits[i] = *b.Hits
		}
		require.Equal(t, []int{5, 6, 0, 4}, hits)
	})

	t.Run("WinnerCounts", func(t *testing.T) {
		counts, err := st.WinnerCounts(ctx, contest.ID)
		require.NoError(t, err)
		require.Equal(t, models.WinnerCounts{Sena: 1, Quina: 1, Quadra: 1}, counts)
	})

	t.Run("NoOpenContest", func(t *testing.T) {
		_, err := svc.Draw(ctx)
		require.ErrorIs(t, err, ErrNoOpenContest)
	})
}

func TestDraw_ConcurrentOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	openContest(t, svc, 1, 30)

	const callers = 8
	results := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Draw(ctx)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrNoOpenContest)
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent draw must win")
}

func TestSettle_Idempotent(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{values: []int{7, 23, 5, 60, 14, 2}}
	svc, st := newTestService(t, src)
	user := newTestUser(t, st, "alice")
	contest := openContest(t, svc, 1, 30)

	_, err := svc.AdmitBets(ctx, user.ID, contest.ID, [][]int{
		{2, 5, 7, 9, 14, 60},
		{1, 3, 4, 6, 8, 10},
	})
	require.NoError(t, err)

	_, err = svc.Draw(ctx)
	require.NoError(t, err)

	first, err := st.ListBetsByContest(ctx, contest.ID)
	require.NoError(t, err)

	// Re-running settlement with the same drawn numbers must not change
	// any hit count.
	require.NoError(t, svc.Settle(ctx, contest.ID))

	second, err := st.ListBetsByContest(ctx, contest.ID)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, *first[i].Hits, *second[i].Hits)
	}
}

func TestSettle_NotDrawn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	contest := openContest(t, svc, 1, 30)

	err := svc.Settle(ctx, contest.ID)
	require.ErrorIs(t, err, ErrContestNotDrawn)
}

func TestCountHits(t *testing.T) {
	tests := []struct {
		name     string
		selected []int
		drawn    []int
		want     int
	}{
		{"FiveMatches", []int{2, 5, 7, 9, 14, 60}, []int{7, 23, 5, 60, 14, 2}, 5},
		{"AllSix", []int{7, 23, 5, 60, 14, 2}, []int{7, 23, 5, 60, 14, 2}, 6},
		{"NoMatches", []int{1, 3, 4, 6, 8, 10}, []int{7, 23, 5, 60, 14, 2}, 0},
		{"OrderIrrelevant", []int{60, 14, 2, 5, 7, 23}, []int{7, 23, 5, 60, 14, 2}, 6},
		{"LargeGame", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, []int{2, 4, 6, 8, 10, 12}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CountHits(tt.selected, tt.drawn))
		})
	}
}

func TestHistoryAndDetail(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{values: []int{7, 23, 5, 60, 14, 2}}
	svc, st := newTestService(t, src)
	alice := newTestUser(t, st, "alice")
	bob := newTestUser(t, st, "bob")
	contest := openContest(t, svc, 1, 30)

	_, err := svc.AdmitBets(ctx, alice.ID, contest.ID, [][]int{{7, 23, 5, 60, 14, 2}})
	require.NoError(t, err)
	_, err = svc.AdmitBets(ctx, bob.ID, contest.ID, [][]int{{2, 5, 7, 9, 14, 60}})
	require.NoError(t, err)

	_, err = svc.Draw(ctx)
	require.NoError(t, err)

	t.Run("History", func(t *testing.T) {
		entries, err := svc.History(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, 1, entries[0].Number)
		require.Equal(t, models.WinnerCounts{Sena: 1, Quina: 1}, entries[0].WinnersCount)
	})

	t.Run("Detail", func(t *testing.T) {
		detail, err := svc.Detail(ctx, contest.ID)
		require.NoError(t, err)
		require.Equal(t, 2, detail.TotalBets)
		require.Equal(t, []string{"alice"}, detail.Sena)
		require.Equal(t, []string{"bob"}, detail.Quina)
		require.Empty(t, detail.Quadra)
	})

	t.Run("MyBets", func(t *testing.T) {
		bets, err := svc.MyBets(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, bets, 1)
		require.Equal(t, contest.ID, bets[0].Contest.ID)
		require.Equal(t, models.StatusFinished, bets[0].Contest.Status)
	})
}
