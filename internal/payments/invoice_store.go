// internal/payments/invoice_store.go
package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoiceFinalized InvoiceStatus = "finalized"
)

// Invoice is an external payment reference that credits a lobby pot once finalised.
type Invoice struct {
	ID        string        `json:"invoice"`
	LobbyID   string        `json:"lobby_id"`
	Amount    int64         `json:"amount"`
	Status    InvoiceStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrMissingInvoice  = errors.New("missing invoice id")
	ErrInvalidAmount   = errors.New("invoice amount must be positive")
)

// Store keeps invoices as Redis hashes under invoice:{id}.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func invoiceKey(id string) string { return "invoice:" + id }

// Create writes a pending invoice. An existing invoice with the same id is left untouched.
func (s *Store) Create(ctx context.Context, inv Invoice) (bool, error) {
	created, err := createInvoiceLua.Run(ctx, s.rdb, []string{invoiceKey(inv.ID)},
		inv.LobbyID, inv.Amount, string(InvoicePending), inv.CreatedAt.UTC().Format(time.RFC3339Nano), int(s.ttl.Seconds()),
	).Int()
	if err != nil {
		return false, fmt.Errorf("create invoice %s: %w", inv.ID, err)
	}
	return created == 1, nil
}

var createInvoiceLua = redis.NewScript(`
if redis.call("exists", KEYS[1]) == 1 then return 0 end
redis.call("hset", KEYS[1], "lobby_id", ARGV[1], "amount", ARGV[2], "status", ARGV[3], "created_at", ARGV[4])
local ttl = tonumber(ARGV[5])
if ttl > 0 then redis.call("expire", KEYS[1], ttl) end
return 1
`)

// Get loads one invoice.
func (s *Store) Get(ctx context.Context, id string) (*Invoice, error) {
	fields, err := s.rdb.HGetAll(ctx, invoiceKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load invoice %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrInvoiceNotFound
	}
	return decodeInvoice(id, fields)
}

// Finalize flips a pending invoice to finalized. It reports whether this call did it, so
// a redelivered webhook never credits twice.
func (s *Store) Finalize(ctx context.Context, id string) (bool, error) {
	code, err := setStatusLua.Run(ctx, s.rdb, []string{invoiceKey(id)},
		string(InvoicePending), string(InvoiceFinalized),
	).Int()
	if err != nil {
		return false, fmt.Errorf("finalize invoice %s: %w", id, err)
	}
	if code == -1 {
		return false, ErrInvoiceNotFound
	}
	return code == 1, nil
}

// Reopen undoes Finalize so the provider's retry can credit again.
func (s *Store) Reopen(ctx context.Context, id string) error {
	if err := setStatusLua.Run(ctx, s.rdb, []string{invoiceKey(id)},
		string(InvoiceFinalized), string(InvoicePending),
	).Err(); err != nil {
		return fmt.Errorf("reopen invoice %s: %w", id, err)
	}
	return nil
}

var setStatusLua = redis.NewScript(`
local status = redis.call("hget", KEYS[1], "status")
if not status then return -1 end
if status ~= ARGV[1] then return 0 end
redis.call("hset", KEYS[1], "status", ARGV[2])
return 1
`)

func decodeInvoice(id string, f map[string]string) (*Invoice, error) {
	amount, err := strconv.ParseInt(f["amount"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invoice %s amount: %w", id, err)
	}
	inv := &Invoice{
		ID:      id,
		LobbyID: f["lobby_id"],
		Amount:  amount,
		Status:  InvoiceStatus(f["status"]),
	}
	if v := f["created_at"]; v != "" {
		if inv.CreatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("invoice %s created_at: %w", id, err)
		}
	}
	return inv, nil
}
