package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/gridbingo/internal/lock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestJoinCreditsBuyInOnce(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()

	a, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "forming", a.Status)
	assert.Equal(t, 1, a.PlayerCount)
	assert.Equal(t, int64(3500), a.Pot)
	assert.Regexp(t, `^lobby_[0-9a-f]{8}$`, a.LobbyID)

	b, err := e.m.JoinLobby(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, a.LobbyID, b.LobbyID)
	assert.Equal(t, 2, b.PlayerCount)
	assert.Equal(t, int64(7000), b.Pot)

	again, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, again.PlayerCount)
	assert.Equal(t, int64(7000), again.Pot)

	l := e.lobby(t, a.LobbyID)
	assert.False(t, l.FormingDeadline.IsZero())
	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.Joins))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.LobbiesCreated))
}

func TestJoinRejectsFullLobby(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()

	var lobbyID string
	for i := 0; i < 10; i++ {
		res, err := e.m.JoinLobby(ctx, fmt.Sprintf("p%d", i))
		require.NoError(t, err)
		lobbyID = res.LobbyID
	}

	_, err := e.m.JoinLobby(ctx, "late")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Equal(t, int64(35000), e.lobby(t, lobbyID).Pot)

	// A member of a full lobby can still re-join.
	res, err := e.m.JoinLobby(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, 10, res.PlayerCount)
}

func TestConcurrentJoinsShareOneLobby(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()

	ids := make([]string, 10)
	var g errgroup.Group
	for i := range ids {
		i := i
		g.Go(func() error {
			res, err := e.m.JoinLobby(ctx, fmt.Sprintf("p%d", i))
			ids[i] = res.LobbyID
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	players, err := e.store.ListPlayers(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, players, 10)
	assert.Equal(t, int64(35000), e.lobby(t, ids[0]).Pot)
}

func TestConcurrentDuplicateJoinIsCountedOnce(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()

	first, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := e.m.Join(ctx, first.LobbyID, "bob")
			return err
		})
	}
	require.NoError(t, g.Wait())

	players, err := e.store.ListPlayers(ctx, first.LobbyID)
	require.NoError(t, err)
	assert.Len(t, players, 2)
	assert.Equal(t, int64(7000), e.lobby(t, first.LobbyID).Pot)
}

func TestJoinUnknownLobby(t *testing.T) {
	e := newTestEnv(t, slowRules())
	_, err := e.m.Join(context.Background(), "lobby_deadbeef", "alice")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestJoinWhileGameRunsReportsInProgress(t *testing.T) {
	e := newTestEnv(t, slowRules())
	id := e.startGame(t)

	res, err := e.m.JoinLobby(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, JoinResult{LobbyID: id, Status: StatusInProgress}, res)

	_, err = e.m.Join(context.Background(), id, "carol")
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestJoinAfterFinishCreatesFreshLobby(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	id := e.startGame(t)

	_, ok, err := e.m.TransitionToFinished(ctx, id, "", ReasonAllKicked)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, id, res.LobbyID)
	assert.Equal(t, 1, res.PlayerCount)
	assert.Equal(t, int64(3500), res.Pot)
}

func TestJoinOverLobbyThatStartedMeanwhile(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	_, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = e.m.JoinLobby(ctx, "bob")
	require.NoError(t, err)

	l, inProgress, err := e.m.GetOrCreateCurrentLobby(ctx)
	require.NoError(t, err)
	require.False(t, inProgress)

	_, err = e.m.SubmitGrid(ctx, l.ID, "alice", gridA)
	require.NoError(t, err)
	_, err = e.m.SubmitGrid(ctx, l.ID, "bob", gridB)
	require.NoError(t, err)

	res, err := e.m.joinCurrent(ctx, "carol", l, false)
	require.NoError(t, err)
	assert.Equal(t, JoinResult{LobbyID: l.ID, Status: StatusInProgress}, res)
	assert.Equal(t, int64(7000), e.lobby(t, l.ID).Pot)
	_, err = e.store.GetPlayer(ctx, l.ID, "carol")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestJoinOverLobbyThatFinishedMeanwhile(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	_, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)

	l, _, err := e.m.GetOrCreateCurrentLobby(ctx)
	require.NoError(t, err)
	_, ok, err := e.m.TransitionToFinished(ctx, l.ID, "", ReasonInsufficientPlayers)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := e.m.joinCurrent(ctx, "carol", l, false)
	require.NoError(t, err)
	assert.NotEqual(t, l.ID, res.LobbyID)
	assert.Equal(t, string(StatusForming), res.Status)
	assert.Equal(t, 1, res.PlayerCount)
	assert.Equal(t, int64(3500), res.Pot)
}

func TestJoinPastFormingDeadlineReportsInProgress(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	start := time.Now()
	clock := start
	e.m.now = func() time.Time { return clock }

	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = e.m.JoinLobby(ctx, "bob")
	require.NoError(t, err)

	clock = start.Add(e.m.Rules().FormingTimeout + time.Millisecond)
	late, err := e.m.JoinLobby(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, JoinResult{LobbyID: res.LobbyID, Status: StatusInProgress}, late)
	assert.Equal(t, int64(7000), e.lobby(t, res.LobbyID).Pot)

	_, err = e.m.Join(ctx, res.LobbyID, "carol")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPlayerAdmittedDuringAutoFillGetsGrid(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = e.m.JoinLobby(ctx, "bob")
	require.NoError(t, err)

	players, err := e.store.ListPlayers(ctx, res.LobbyID)
	require.NoError(t, err)
	_, err = e.m.Join(ctx, res.LobbyID, "carol")
	require.NoError(t, err)
	require.NoError(t, e.m.autoFill(ctx, res.LobbyID, players))

	started, err := e.m.TransitionToActive(ctx, res.LobbyID)
	require.NoError(t, err)
	assert.False(t, started, "carol has no grid yet")
	assert.Equal(t, StatusForming, e.lobby(t, res.LobbyID).Status)

	require.NoError(t, e.m.settleAtDeadline(ctx, res.LobbyID))
	l := e.lobby(t, res.LobbyID)
	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, int64(10500), l.Pot)

	all, err := e.store.ListPlayers(ctx, res.LobbyID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, p := range all {
		assert.True(t, p.Ready, p.ID)
		assert.NoError(t, ValidateGrid(p.Grid, e.m.Rules().MaxNumber), p.ID)
		assert.Equal(t, p.Grid.Flatten(), p.Numbers, p.ID)
	}
}

func TestGetOrCreateReplacesExpiredPointer(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	require.NoError(t, e.mr.Set("global_lobby", "lobby_gone0000"))

	l, inProgress, err := e.m.GetOrCreateCurrentLobby(ctx)
	require.NoError(t, err)
	assert.False(t, inProgress)
	assert.NotEqual(t, "lobby_gone0000", l.ID)

	current, err := e.store.CurrentLobbyID(ctx)
	require.NoError(t, err)
	assert.Equal(t, l.ID, current)
}

func TestSubmitGridValidation(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)

	bad := []Grid{
		{{1, 2, 3}, {4, 5, 6}},
		{{1, 2, 3}, {4, 5, 6}, {7, 8, 8}},
		{{1, 2, 3}, {4, 5, 6}, {7, 8, 21}},
	}
	for _, g := range bad {
		_, err := e.m.SubmitGrid(ctx, res.LobbyID, "alice", g)
		assert.True(t, errors.Is(err, ErrValidation), "grid %v", g)
	}

	p, err := e.store.GetPlayer(ctx, res.LobbyID, "alice")
	require.NoError(t, err)
	assert.False(t, p.Ready)
	assert.Empty(t, p.Numbers)
}

func TestSubmitGridIsWriteOnce(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)

	out, err := e.m.SubmitGrid(ctx, res.LobbyID, "alice", gridA)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.ReadyCount)
	assert.Equal(t, "Grid submitted. Waiting for other players.", out.Message)

	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "alice", gridB)
	assert.True(t, errors.Is(err, ErrInvalidState))

	p, err := e.store.GetPlayer(ctx, res.LobbyID, "alice")
	require.NoError(t, err)
	assert.Equal(t, gridA, p.Grid)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, p.Numbers)
	assert.Equal(t, StatusForming, e.lobby(t, res.LobbyID).Status)
}

func TestSubmitGridUnknownLobbyOrPlayer(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)

	_, err = e.m.SubmitGrid(ctx, "lobby_deadbeef", "alice", gridA)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "mallory", gridA)
	assert.True(t, errors.Is(err, ErrPlayerNotFound))
}

func TestLastSubmissionStartsGame(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = e.m.JoinLobby(ctx, "bob")
	require.NoError(t, err)

	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "alice", gridA)
	require.NoError(t, err)
	out, err := e.m.SubmitGrid(ctx, res.LobbyID, "bob", gridB)
	require.NoError(t, err)
	assert.Equal(t, 2, out.ReadyCount)
	assert.Equal(t, "Grid submitted. All players ready, game starting.", out.Message)

	l := e.lobby(t, res.LobbyID)
	assert.Equal(t, StatusActive, l.Status)
	assert.False(t, l.StartedAt.IsZero())

	require.Eventually(t, func() bool { return len(e.calls(t, res.LobbyID)) == 1 },
		2*time.Second, 5*time.Millisecond)

	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "alice", gridB)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestSingleReadyPlayerDoesNotStart(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)

	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "alice", gridA)
	require.NoError(t, err)
	assert.Equal(t, StatusForming, e.lobby(t, res.LobbyID).Status)
}

func TestTransitionToActiveHappensOnce(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = e.m.JoinLobby(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, e.store.StoreGrid(ctx, res.LobbyID, "alice", gridA))
	require.NoError(t, e.store.StoreGrid(ctx, res.LobbyID, "bob", gridB))

	var started atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			ok, err := e.m.TransitionToActive(ctx, res.LobbyID)
			if ok {
				started.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), started.Load())

	require.Eventually(t, func() bool { return len(e.calls(t, res.LobbyID)) == 1 },
		2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []int{1}, e.calls(t, res.LobbyID), "only one number caller runs")
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.GamesStarted))

	ok, err := e.m.TransitionToActive(ctx, res.LobbyID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRowClaimWinsPot(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	id := e.startGame(t)

	require.Eventually(t, func() bool { return len(e.calls(t, id)) == 1 },
		2*time.Second, 5*time.Millisecond)
	for _, n := range []int{2, 3} {
		drawn, err := e.store.DrawNumber(ctx, id, n)
		require.NoError(t, err)
		require.True(t, drawn)
	}

	res, err := e.m.VerifyClaim(ctx, id, "alice", []int{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.Winner)
	assert.Equal(t, int64(7000), res.Pot)
	assert.Equal(t, PatternRow0, res.Pattern)
	assert.Equal(t, "YOU WON! +7000 coins", res.Message)

	l := e.lobby(t, id)
	assert.Equal(t, StatusFinished, l.Status)
	assert.Equal(t, "alice", l.Winner)

	_, err = e.m.VerifyClaim(ctx, id, "bob", []int{10, 11, 12})
	assert.True(t, errors.Is(err, ErrInvalidState))

	results := e.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, "alice", results[0].Winner)
	assert.Equal(t, "claim", results[0].Reason)
	assert.Equal(t, int64(7000), results[0].Pot)
	assert.Equal(t, []int{1, 2, 3}, results[0].CalledNumbers)
	assert.Equal(t, 2, results[0].PlayerCount)

	current, err := e.store.CurrentLobbyID(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)
}

func TestClaimWithUncalledNumberKicks(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	id := e.startGame(t)
	require.Eventually(t, func() bool { return len(e.calls(t, id)) == 1 },
		2*time.Second, 5*time.Millisecond)

	res, err := e.m.VerifyClaim(ctx, id, "alice", []int{1, 2, 3})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.Kicked)
	assert.Equal(t, "Invalid claim. You've been removed from the game.", res.Message)

	p, err := e.store.GetPlayer(ctx, id, "alice")
	require.NoError(t, err)
	assert.False(t, p.Active)
	assert.Equal(t, StatusActive, e.lobby(t, id).Status)

	_, err = e.m.VerifyClaim(ctx, id, "alice", []int{1, 2, 3})
	assert.True(t, errors.Is(err, ErrPlayerInactive))
}

func TestClaimMustUseOwnGrid(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	id := e.startGame(t)
	require.Eventually(t, func() bool { return len(e.calls(t, id)) == 1 },
		2*time.Second, 5*time.Millisecond)
	for _, n := range []int{2, 3} {
		_, err := e.store.DrawNumber(ctx, id, n)
		require.NoError(t, err)
	}

	res, err := e.m.VerifyClaim(ctx, id, "bob", []int{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, res.Kicked)
	assert.Equal(t, StatusActive, e.lobby(t, id).Status)
}

func TestKickingEveryoneFinishesWithoutWinner(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	id := e.startGame(t)

	for _, pid := range []string{"alice", "bob"} {
		res, err := e.m.VerifyClaim(ctx, id, pid, []int{19, 20})
		require.NoError(t, err)
		assert.True(t, res.Kicked)
	}

	l := e.lobby(t, id)
	assert.Equal(t, StatusFinished, l.Status)
	assert.Empty(t, l.Winner)

	results := e.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, "all_kicked", results[0].Reason)
	assert.Empty(t, results[0].Winner)
	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.Claims.WithLabelValues("kicked")))
}

func TestClaimOnFormingLobby(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)

	_, err = e.m.VerifyClaim(ctx, res.LobbyID, "alice", []int{1, 2, 3})
	assert.True(t, errors.Is(err, ErrInvalidState))
	_, err = e.m.VerifyClaim(ctx, "lobby_deadbeef", "alice", []int{1, 2, 3})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClaimUnknownPlayer(t *testing.T) {
	e := newTestEnv(t, slowRules())
	id := e.startGame(t)
	_, err := e.m.VerifyClaim(context.Background(), id, "mallory", []int{1, 2, 3})
	assert.True(t, errors.Is(err, ErrPlayerNotFound))
}

func TestTransitionToFinishedSetsWinnerOnce(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	id := e.startGame(t)

	pot, ok, err := e.m.TransitionToFinished(ctx, id, "alice", ReasonClaim)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7000), pot)

	_, ok, err = e.m.TransitionToFinished(ctx, id, "bob", ReasonClaim)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "alice", e.lobby(t, id).Winner)
	assert.Len(t, e.results(t), 1)
}

func TestGetStatus(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	e.m.now = func() time.Time { return clock }

	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = e.m.JoinLobby(ctx, "bob")
	require.NoError(t, err)
	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "alice", gridA)
	require.NoError(t, err)

	snap, err := e.m.GetStatus(ctx, res.LobbyID)
	require.NoError(t, err)
	assert.Equal(t, StatusForming, snap.Status)
	assert.Equal(t, int64(3500), snap.BuyInAmount)
	assert.Equal(t, int64(7000), snap.Pot)
	assert.Equal(t, 2, snap.PlayerCount)
	assert.Equal(t, 1, snap.ReadyCount)
	assert.Equal(t, 2, snap.ActiveCount)
	assert.Nil(t, snap.StartedAt)
	assert.Nil(t, snap.LatestNumber)
	assert.Nil(t, snap.Winner)
	assert.Zero(t, snap.TimeElapsed)
	require.NotNil(t, snap.FormingDeadline)
	assert.True(t, snap.FormingDeadline.Equal(start.Add(e.m.Rules().FormingTimeout)))
	assert.Equal(t, gridA, snap.Players["alice"].Grid)
	assert.False(t, snap.Players["bob"].Ready)

	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "bob", gridB)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(e.calls(t, res.LobbyID)) == 1 },
		2*time.Second, 5*time.Millisecond)
	_, err = e.store.DrawNumber(ctx, res.LobbyID, 7)
	require.NoError(t, err)

	clock = start.Add(42 * time.Second)
	snap, err = e.m.GetStatus(ctx, res.LobbyID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, 42, snap.TimeElapsed)
	assert.Equal(t, []int{1, 7}, snap.CalledNumbers)
	require.NotNil(t, snap.LatestNumber)
	require.NotNil(t, snap.PreviousNumber)
	assert.Equal(t, 7, *snap.LatestNumber)
	assert.Equal(t, 1, *snap.PreviousNumber)

	_, err = e.m.GetStatus(ctx, "lobby_deadbeef")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreditPot(t *testing.T) {
	e := newTestEnv(t, slowRules())
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, err := e.m.CreditPot(ctx, res.LobbyID, 100)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(4000), e.lobby(t, res.LobbyID).Pot)

	_, err = e.m.CreditPot(ctx, res.LobbyID, 0)
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = e.m.CreditPot(ctx, "lobby_deadbeef", 100)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, _, err = e.m.TransitionToFinished(ctx, res.LobbyID, "", ReasonInsufficientPlayers)
	require.NoError(t, err)
	_, err = e.m.CreditPot(ctx, res.LobbyID, 100)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, int64(4000), e.lobby(t, res.LobbyID).Pot)
}

func TestManagerWithoutMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger, _ := test.NewNullLogger()
	rules := slowRules()
	m := NewManager(Config{
		Store:  NewLobbyStore(rdb, "global_lobby", rules.LobbyTTL),
		Locker: lock.NewTokenLock(rdb, rules.StartLockTTL),
		Rules:  rules,
		Logger: logger,
	})
	t.Cleanup(func() {
		m.Close()
		_ = rdb.Close()
	})

	res, err := m.JoinLobby(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3500), res.Pot)
}
