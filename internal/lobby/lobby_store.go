// internal/lobby/lobby_store.go
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// LobbyStore keeps every lobby and player record in Redis. Nothing is cached in
// memory: each call re-reads the store, and each check-then-act runs as one Lua script.
type LobbyStore struct {
	rdb        *redis.Client
	pointerKey string
	ttl        time.Duration
}

// NewLobbyStore wires the store to a client. pointerKey names the current-lobby pointer.
func NewLobbyStore(rdb *redis.Client, pointerKey string, ttl time.Duration) *LobbyStore {
	return &LobbyStore{rdb: rdb, pointerKey: pointerKey, ttl: ttl}
}

func lobbyKey(id string) string          { return "lobby:" + id }
func playersKey(id string) string        { return "lobby:" + id + ":players" }
func playerKeyPrefix(id string) string   { return "lobby:" + id + ":player:" }
func playerKey(id, player string) string { return playerKeyPrefix(id) + player }
func callsKey(id string) string          { return "lobby:" + id + ":numbers_called" }
func startLockKey(id string) string      { return "lobby:" + id + ":starting" }

// Ping checks connectivity for health reporting.
func (s *LobbyStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// CurrentLobbyID returns the pointer value, or "" when no lobby is current.
func (s *LobbyStore) CurrentLobbyID(ctx context.Context) (string, error) {
	id, err := s.rdb.Get(ctx, s.pointerKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get lobby pointer: %w", err)
	}
	return id, nil
}

// ClaimPointer sets the pointer to id only if no lobby is current.
func (s *LobbyStore) ClaimPointer(ctx context.Context, id string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.pointerKey, id, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim lobby pointer: %w", err)
	}
	return ok, nil
}

// ReleasePointer clears the pointer if it still names id.
func (s *LobbyStore) ReleasePointer(ctx context.Context, id string) error {
	if err := releasePointerLua.Run(ctx, s.rdb, []string{s.pointerKey}, id).Err(); err != nil {
		return fmt.Errorf("release lobby pointer: %w", err)
	}
	return nil
}

var releasePointerLua = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// CreateLobby writes a fresh lobby hash with the lobby TTL.
func (s *LobbyStore) CreateLobby(ctx context.Context, l *Lobby) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, lobbyKey(l.ID), map[string]any{
			"lobby_id":      l.ID,
			"status":        string(l.Status),
			"buy_in_amount": l.BuyInAmount,
			"pot":           l.Pot,
			"winner":        l.Winner,
			"created_at":    formatTime(l.CreatedAt),
		})
		pipe.Expire(ctx, lobbyKey(l.ID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create lobby %s: %w", l.ID, err)
	}
	return nil
}

// DeleteLobby drops a lobby hash that lost the pointer race and was never visible.
func (s *LobbyStore) DeleteLobby(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, lobbyKey(id)).Err()
}

// GetLobby loads a lobby. A missing or expired hash is ErrNotFound.
func (s *LobbyStore) GetLobby(ctx context.Context, id string) (*Lobby, error) {
	fields, err := s.rdb.HGetAll(ctx, lobbyKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load lobby %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeLobby(fields)
}

type admission struct {
	created     bool
	playerCount int
	pot         int64
	firstJoin   bool
}

// AdmitPlayer runs the whole join decision atomically: phase, idempotent re-join,
// capacity, record creation, buy-in credit and the first-join forming deadline.
// New players are refused with errAdmissionClosed once joinedAt reaches the deadline.
func (s *LobbyStore) AdmitPlayer(ctx context.Context, lobbyID, playerID string, rules Rules, joinedAt time.Time) (admission, error) {
	deadline := joinedAt.Add(rules.FormingTimeout)
	res, err := admitLua.Run(ctx, s.rdb,
		[]string{lobbyKey(lobbyID), playersKey(lobbyID), playerKey(lobbyID, playerID)},
		playerID, rules.MaxPlayers, rules.BuyInAmount, formatTime(joinedAt), formatTime(deadline), int(s.ttl.Seconds()),
		joinedAt.UnixMilli(), deadline.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return admission{}, fmt.Errorf("admit player %s: %w", playerID, err)
	}
	switch res[0] {
	case -1:
		return admission{}, ErrNotFound
	case -2:
		return admission{}, newError(KindInvalidState, "lobby is no longer accepting players")
	case -3:
		return admission{}, ErrCapacityExceeded
	case -4:
		return admission{}, errAdmissionClosed
	}
	return admission{
		created:     res[0] == 1,
		playerCount: int(res[1]),
		pot:         res[2],
		firstJoin:   res[3] == 1,
	}, nil
}

var admitLua = redis.NewScript(`
local status = redis.call("hget", KEYS[1], "status")
if not status then return {-1, 0, 0, 0} end
if status ~= "forming" then return {-2, 0, 0, 0} end
local count = redis.call("scard", KEYS[2])
if redis.call("sismember", KEYS[2], ARGV[1]) == 1 then
	return {0, count, tonumber(redis.call("hget", KEYS[1], "pot") or "0"), 0}
end
local closes = tonumber(redis.call("hget", KEYS[1], "admission_closes_ms") or "")
if closes and tonumber(ARGV[7]) >= closes then return {-4, count, 0, 0} end
if count >= tonumber(ARGV[2]) then return {-3, count, 0, 0} end
local ttl = tonumber(ARGV[6])
redis.call("sadd", KEYS[2], ARGV[1])
redis.call("expire", KEYS[2], ttl)
redis.call("hset", KEYS[3], "player_id", ARGV[1], "numbers", "[]", "grid", "[]",
	"ready", "false", "active", "true", "joined_at", ARGV[4])
redis.call("expire", KEYS[3], ttl)
local pot = redis.call("hincrby", KEYS[1], "pot", ARGV[3])
local first = 0
local deadline = redis.call("hget", KEYS[1], "forming_deadline")
if not deadline or deadline == "" then
	redis.call("hset", KEYS[1], "forming_deadline", ARGV[5], "admission_closes_ms", ARGV[8])
	first = 1
end
return {1, count + 1, pot, first}
`)

// StoreGrid persists a validated grid and flips ready, only while the lobby is
// forming and the player is not ready yet.
func (s *LobbyStore) StoreGrid(ctx context.Context, lobbyID, playerID string, grid Grid) error {
	numbers, err := json.Marshal(grid.Flatten())
	if err != nil {
		return fmt.Errorf("encode numbers: %w", err)
	}
	cells, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}
	code, err := storeGridLua.Run(ctx, s.rdb,
		[]string{lobbyKey(lobbyID), playerKey(lobbyID, playerID)},
		string(numbers), string(cells),
	).Int()
	if err != nil {
		return fmt.Errorf("store grid for %s: %w", playerID, err)
	}
	switch code {
	case -1:
		return ErrNotFound
	case -2:
		return newError(KindInvalidState, "cannot submit grid in current game state")
	case -3:
		return ErrPlayerNotFound
	case -4:
		return newError(KindInvalidState, "grid already submitted")
	}
	return nil
}

var storeGridLua = redis.NewScript(`
local status = redis.call("hget", KEYS[1], "status")
if not status then return -1 end
if status ~= "forming" then return -2 end
local ready = redis.call("hget", KEYS[2], "ready")
if not ready then return -3 end
if ready == "true" then return -4 end
redis.call("hset", KEYS[2], "numbers", ARGV[1], "grid", ARGV[2], "ready", "true")
return 1
`)

// GetPlayer loads one player record.
func (s *LobbyStore) GetPlayer(ctx context.Context, lobbyID, playerID string) (*Player, error) {
	fields, err := s.rdb.HGetAll(ctx, playerKey(lobbyID, playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", playerID, err)
	}
	if len(fields) == 0 {
		return nil, ErrPlayerNotFound
	}
	return decodePlayer(fields)
}

// ListPlayers returns the roster ordered by join time.
func (s *LobbyStore) ListPlayers(ctx context.Context, lobbyID string) ([]*Player, error) {
	ids, err := s.rdb.SMembers(ctx, playersKey(lobbyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list players of %s: %w", lobbyID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, playerKey(lobbyID, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load players of %s: %w", lobbyID, err)
	}

	players := make([]*Player, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // expired between SMEMBERS and HGETALL
		}
		p, err := decodePlayer(fields)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players, nil
}

// DeactivatePlayer flips active to false once, only while the lobby is active. It
// reports whether this call did it.
func (s *LobbyStore) DeactivatePlayer(ctx context.Context, lobbyID, playerID string) (bool, error) {
	n, err := deactivateLua.Run(ctx, s.rdb, []string{lobbyKey(lobbyID), playerKey(lobbyID, playerID)}).Int()
	if err != nil {
		return false, fmt.Errorf("deactivate player %s: %w", playerID, err)
	}
	if n == -1 {
		return false, newError(KindInvalidState, "game is not active")
	}
	return n == 1, nil
}

var deactivateLua = redis.NewScript(`
if redis.call("hget", KEYS[1], "status") ~= "active" then return -1 end
if redis.call("hget", KEYS[2], "active") == "true" then
	redis.call("hset", KEYS[2], "active", "false")
	return 1
end
return 0
`)

// CallHistory returns the drawn numbers in draw order.
func (s *LobbyStore) CallHistory(ctx context.Context, lobbyID string) ([]int, error) {
	raw, err := s.rdb.LRange(ctx, callsKey(lobbyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load call history of %s: %w", lobbyID, err)
	}
	calls := make([]int, 0, len(raw))
	for _, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt call history entry %q: %w", v, err)
		}
		calls = append(calls, n)
	}
	return calls, nil
}

// DrawNumber appends n and shifts latest/previous, only while the lobby is active.
func (s *LobbyStore) DrawNumber(ctx context.Context, lobbyID string, n int) (bool, error) {
	ok, err := drawLua.Run(ctx, s.rdb,
		[]string{lobbyKey(lobbyID), callsKey(lobbyID)},
		n, int(s.ttl.Seconds()),
	).Int()
	if err != nil {
		return false, fmt.Errorf("draw %d in %s: %w", n, lobbyID, err)
	}
	return ok == 1, nil
}

var drawLua = redis.NewScript(`
if redis.call("hget", KEYS[1], "status") ~= "active" then return 0 end
redis.call("rpush", KEYS[2], ARGV[1])
redis.call("expire", KEYS[2], tonumber(ARGV[2]))
local latest = redis.call("hget", KEYS[1], "latest_number")
if latest and latest ~= "" then
	redis.call("hset", KEYS[1], "previous_number", latest)
end
redis.call("hset", KEYS[1], "latest_number", ARGV[1])
return 1
`)

// Activate moves forming to active, records startedAt and renews every lobby-scoped TTL.
// It fails with errPlayersNotReady while any active player has no grid.
func (s *LobbyStore) Activate(ctx context.Context, lobbyID string, startedAt time.Time) (bool, error) {
	code, err := activateLua.Run(ctx, s.rdb,
		[]string{lobbyKey(lobbyID), playersKey(lobbyID), s.pointerKey},
		formatTime(startedAt), int(s.ttl.Seconds()), playerKeyPrefix(lobbyID), lobbyID,
	).Int()
	if err != nil {
		return false, fmt.Errorf("activate %s: %w", lobbyID, err)
	}
	if code == -1 {
		return false, errPlayersNotReady
	}
	return code == 1, nil
}

var activateLua = redis.NewScript(`
if redis.call("hget", KEYS[1], "status") ~= "forming" then return 0 end
local players = redis.call("smembers", KEYS[2])
for _, pid in ipairs(players) do
	local p = redis.call("hmget", ARGV[3] .. pid, "active", "ready")
	if p[1] == "true" and p[2] ~= "true" then return -1 end
end
redis.call("hset", KEYS[1], "status", "active", "started_at", ARGV[1])
local ttl = tonumber(ARGV[2])
redis.call("expire", KEYS[1], ttl)
redis.call("expire", KEYS[2], ttl)
for _, pid in ipairs(players) do
	redis.call("expire", ARGV[3] .. pid, ttl)
end
if redis.call("get", KEYS[3]) == ARGV[4] then
	redis.call("expire", KEYS[3], ttl)
end
return 1
`)

// Finish moves an unfinished lobby to finished and clears the pointer if it names this
// lobby. A non-empty from restricts the transition to lobbies currently in that phase.
// It returns the pot and whether this call performed the transition.
func (s *LobbyStore) Finish(ctx context.Context, lobbyID, winner string, finishedAt time.Time, from Status) (int64, bool, error) {
	res, err := finishLua.Run(ctx, s.rdb,
		[]string{lobbyKey(lobbyID), s.pointerKey},
		winner, formatTime(finishedAt), lobbyID, string(from),
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("finish %s: %w", lobbyID, err)
	}
	if res[0] == -1 {
		return 0, false, ErrNotFound
	}
	return res[1], res[0] == 1, nil
}

var finishLua = redis.NewScript(`
local status = redis.call("hget", KEYS[1], "status")
if not status then return {-1, 0} end
if status == "finished" then return {0, 0} end
if ARGV[4] ~= "" and status ~= ARGV[4] then return {0, 0} end
redis.call("hset", KEYS[1], "status", "finished", "winner", ARGV[1], "finished_at", ARGV[2])
if redis.call("get", KEYS[2]) == ARGV[3] then
	redis.call("del", KEYS[2])
end
return {1, tonumber(redis.call("hget", KEYS[1], "pot") or "0")}
`)

// IncrPot adds amount to an unfinished lobby's pot and returns the new pot.
func (s *LobbyStore) IncrPot(ctx context.Context, lobbyID string, amount int64) (int64, error) {
	res, err := incrPotLua.Run(ctx, s.rdb, []string{lobbyKey(lobbyID)}, amount).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("credit pot of %s: %w", lobbyID, err)
	}
	switch res[0] {
	case -1:
		return 0, ErrNotFound
	case -2:
		return 0, newError(KindInvalidState, "lobby already finished, pot is settled")
	}
	return res[1], nil
}

var incrPotLua = redis.NewScript(`
local status = redis.call("hget", KEYS[1], "status")
if not status then return {-1, 0} end
if status == "finished" then return {-2, 0} end
return {1, redis.call("hincrby", KEYS[1], "pot", ARGV[1])}
`)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func parseOptionalInt(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func decodeLobby(f map[string]string) (*Lobby, error) {
	l := &Lobby{
		ID:     f["lobby_id"],
		Status: Status(f["status"]),
		Winner: f["winner"],
	}
	var err error
	ints := []struct {
		field string
		dst   *int64
	}{
		{"buy_in_amount", &l.BuyInAmount},
		{"pot", &l.Pot},
	}
	for _, it := range ints {
		if *it.dst, err = parseOptionalInt(f[it.field]); err != nil {
			return nil, fmt.Errorf("lobby %s field %s: %w", l.ID, it.field, err)
		}
	}
	latest, err := parseOptionalInt(f["latest_number"])
	if err != nil {
		return nil, fmt.Errorf("lobby %s field latest_number: %w", l.ID, err)
	}
	previous, err := parseOptionalInt(f["previous_number"])
	if err != nil {
		return nil, fmt.Errorf("lobby %s field previous_number: %w", l.ID, err)
	}
	l.LatestNumber, l.PreviousNumber = int(latest), int(previous)

	times := []struct {
		field string
		dst   *time.Time
	}{
		{"created_at", &l.CreatedAt},
		{"forming_deadline", &l.FormingDeadline},
		{"started_at", &l.StartedAt},
		{"finished_at", &l.FinishedAt},
	}
	for _, it := range times {
		if *it.dst, err = parseTime(f[it.field]); err != nil {
			return nil, fmt.Errorf("lobby %s field %s: %w", l.ID, it.field, err)
		}
	}
	return l, nil
}

func decodePlayer(f map[string]string) (*Player, error) {
	p := &Player{
		ID:     f["player_id"],
		Ready:  f["ready"] == "true",
		Active: f["active"] == "true",
	}
	if err := json.Unmarshal([]byte(orEmptyJSON(f["numbers"])), &p.Numbers); err != nil {
		return nil, fmt.Errorf("player %s numbers: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(orEmptyJSON(f["grid"])), &p.Grid); err != nil {
		return nil, fmt.Errorf("player %s grid: %w", p.ID, err)
	}
	joined, err := parseTime(f["joined_at"])
	if err != nil {
		return nil, fmt.Errorf("player %s joined_at: %w", p.ID, err)
	}
	p.JoinedAt = joined
	return p, nil
}

func orEmptyJSON(v string) string {
	if v == "" {
		return "[]"
	}
	return v
}
