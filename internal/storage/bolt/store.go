package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/jsonx"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"go.etcd.io/bbolt"
)

var (
	tokenBucket      = []byte("token")
	balancesBucket   = []byte("balances")
	allowancesBucket = []byte("allowances")
	entriesBucket    = []byte("entries")

	tokenKey = []byte("t")
)

var ErrGenesisConflict = errors.New("token already initialized")

type tokenRecord struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
}

type entryRecord struct {
	ID         string    `json:"id"`
	TransferID string    `json:"transfer_id"`
	AccountID  string    `json:"account_id"`
	Direction  string    `json:"direction"`
	Amount     string    `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// BoltLedgerStore keeps ledger state in a single bbolt file. Amounts are
// stored as 32-byte big-endian words.
type BoltLedgerStore struct {
	db *bbolt.DB
}

func Open(path string) (*BoltLedgerStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{tokenBucket, balancesBucket, allowancesBucket, entriesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &BoltLedgerStore{db: db}, nil
}

func (s *BoltLedgerStore) Close() error {
	return s.db.Close()
}

func (s *BoltLedgerStore) LoadToken(ctx context.Context) (models.Token, error) {
	var token models.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(tokenBucket).Get(tokenKey)
		if raw == nil {
			return interfaces.ErrTokenNotFound
		}
		var rec tokenRecord
		if err := jsonx.Unmarshal(raw, &rec); err != nil {
			return err
		}
		supply, err := uint256.FromDecimal(rec.TotalSupply)
		if err != nil {
			return fmt.Errorf("corrupt total supply %q: %w", rec.TotalSupply, err)
		}
		token = models.Token{Name: rec.Name, Symbol: rec.Symbol, Decimals: rec.Decimals, TotalSupply: supply}
		return nil
	})
	return token, err
}

func (s *BoltLedgerStore) GetBalance(ctx context.Context, addr models.Address) (*uint256.Int, error) {
	v := new(uint256.Int)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(balancesBucket).Get([]byte(addr)); raw != nil {
			v.SetBytes(raw)
		}
		return nil
	})
	return v, err
}

func (s *BoltLedgerStore) GetAllowance(ctx context.Context, owner, spender models.Address) (*uint256.Int, error) {
	v := new(uint256.Int)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(allowancesBucket).Get(allowanceKey(owner, spender)); raw != nil {
			v.SetBytes(raw)
		}
		return nil
	})
	return v, err
}

// Apply runs inside one bolt read-write transaction.
func (s *BoltLedgerStore) Apply(ctx context.Context, change *models.StateChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if change.Token != nil {
			b := tx.Bucket(tokenBucket)
			if b.Get(tokenKey) != nil {
				return ErrGenesisConflict
			}
			raw, err := jsonx.Marshal(tokenRecord{
				Name:        change.Token.Name,
				Symbol:      change.Token.Symbol,
				Decimals:    change.Token.Decimals,
				TotalSupply: change.Token.TotalSupply.Dec(),
			})
			if err != nil {
				return err
			}
			if err := b.Put(tokenKey, raw); err != nil {
				return err
			}
		}

		balances := tx.Bucket(balancesBucket)
		for addr, v := range change.Balances {
			if err := putAmount(balances, []byte(addr), v); err != nil {
				return err
			}
		}

		allowances := tx.Bucket(allowancesBucket)
		for key, v := range change.Allowances {
			if err := putAmount(allowances, allowanceKey(key.Owner, key.Spender), v); err != nil {
				return err
			}
		}

		entries := tx.Bucket(entriesBucket)
		for _, e := range change.Entries {
			seq, err := entries.NextSequence()
			if err != nil {
				return err
			}
			raw, err := jsonx.Marshal(entryRecord{
				ID:         e.ID,
				TransferID: e.TransferID,
				AccountID:  string(e.AccountID),
				Direction:  string(e.Direction),
				Amount:     e.Amount.Dec(),
				CreatedAt:  e.CreatedAt,
			})
			if err != nil {
				return err
			}
			if err := entries.Put(seqKey(seq), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltLedgerStore) Balances(ctx context.Context) (map[models.Address]*uint256.Int, error) {
	out := make(map[models.Address]*uint256.Int)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(balancesBucket).ForEach(func(k, v []byte) error {
			out[models.Address(k)] = new(uint256.Int).SetBytes(v)
			return nil
		})
	})
	return out, err
}

func (s *BoltLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	return s.entries(func(models.LedgerEntry) bool { return true })
}

func (s *BoltLedgerStore) GetEntriesByAccount(ctx context.Context, accountID models.Address) ([]models.LedgerEntry, error) {
	return s.entries(func(e models.LedgerEntry) bool { return e.AccountID == accountID })
}

func (s *BoltLedgerStore) entries(keep func(models.LedgerEntry) bool) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(_, raw []byte) error {
			var rec entryRecord
			if err := jsonx.Unmarshal(raw, &rec); err != nil {
				return err
			}
			amount, err := uint256.FromDecimal(rec.Amount)
			if err != nil {
				return fmt.Errorf("corrupt amount in entry %s: %w", rec.ID, err)
			}
			e := models.LedgerEntry{
				ID:         rec.ID,
				TransferID: rec.TransferID,
				AccountID:  models.Address(rec.AccountID),
				Direction:  models.EntryDirection(rec.Direction),
				Amount:     amount,
				CreatedAt:  rec.CreatedAt,
			}
			if keep(e) {
				out = append(out, e)
			}
			return nil
		})
	})
	return out, err
}

func putAmount(b *bbolt.Bucket, key []byte, v *uint256.Int) error {
	if v == nil || v.IsZero() {
		return b.Delete(key)
	}
	word := v.Bytes32()
	return b.Put(key, word[:])
}

func allowanceKey(owner, spender models.Address) []byte {
	key := make([]byte, 0, len(owner)+1+len(spender))
	key = append(key, owner...)
	key = append(key, 0)
	return append(key, spender...)
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

var _ interfaces.LedgerStore = (*BoltLedgerStore)(nil)
