package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/lib/pq"
	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/token-ledger/internal/models"
)

const uniqueViolation = "23505"

// ErrGenesisConflict is returned when another writer already stored a token.
var ErrGenesisConflict = errors.New("token already initialized")

const schema = `
CREATE TABLE IF NOT EXISTS token (
	id           SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	name         TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	decimals     SMALLINT NOT NULL,
	total_supply NUMERIC(78,0) NOT NULL
);
CREATE TABLE IF NOT EXISTS balances (
	address TEXT PRIMARY KEY,
	amount  NUMERIC(78,0) NOT NULL CHECK (amount > 0)
);
CREATE TABLE IF NOT EXISTS allowances (
	owner   TEXT NOT NULL,
	spender TEXT NOT NULL,
	amount  NUMERIC(78,0) NOT NULL CHECK (amount > 0),
	PRIMARY KEY (owner, spender)
);
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq         BIGSERIAL PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	transfer_id TEXT NOT NULL,
	account_id  TEXT NOT NULL,
	direction   TEXT NOT NULL,
	amount      NUMERIC(78,0) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ledger_entries_account_idx ON ledger_entries (account_id);
`

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Open connects with the lib/pq driver and creates the schema if missing.
func Open(ctx context.Context, dsn string) (*PostgresLedgerStore, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store := NewPostgresLedgerStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) Close() error {
	return p.db.Close()
}

func (p *PostgresLedgerStore) LoadToken(ctx context.Context) (models.Token, error) {
	const query = `SELECT name, symbol, decimals, total_supply FROM token WHERE id = 1`

	var (
		token  models.Token
		supply string
	)
	err := p.db.QueryRowContext(ctx, query).Scan(&token.Name, &token.Symbol, &token.Decimals, &supply)
	if err == sql.ErrNoRows {
		return models.Token{}, interfaces.ErrTokenNotFound
	}
	if err != nil {
		return models.Token{}, err
	}

	if token.TotalSupply, err = uint256.FromDecimal(supply); err != nil {
		return models.Token{}, fmt.Errorf("corrupt total supply %q: %w", supply, err)
	}
	return token, nil
}

func (p *PostgresLedgerStore) GetBalance(ctx context.Context, addr models.Address) (*uint256.Int, error) {
	const query = `SELECT amount FROM balances WHERE address = $1`
	return p.queryAmount(ctx, query, string(addr))
}

func (p *PostgresLedgerStore) GetAllowance(ctx context.Context, owner, spender models.Address) (*uint256.Int, error) {
	const query = `SELECT amount FROM allowances WHERE owner = $1 AND spender = $2`
	return p.queryAmount(ctx, query, string(owner), string(spender))
}

func (p *PostgresLedgerStore) queryAmount(ctx context.Context, query string, args ...any) (*uint256.Int, error) {
	var amount string
	err := p.db.QueryRowContext(ctx, query, args...).Scan(&amount)
	if err == sql.ErrNoRows {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return uint256.FromDecimal(amount)
}

// Apply writes the change in a single database transaction.
func (p *PostgresLedgerStore) Apply(ctx context.Context, change *models.StateChange) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if change.Token != nil {
		if err = p.saveToken(ctx, dbTx, *change.Token); err != nil {
			return err
		}
	}
	for addr, v := range change.Balances {
		if err = p.saveBalance(ctx, dbTx, addr, v); err != nil {
			return err
		}
	}
	for key, v := range change.Allowances {
		if err = p.saveAllowance(ctx, dbTx, key, v); err != nil {
			return err
		}
	}
	for _, entry := range change.Entries {
		if err = p.SaveEntry(ctx, entry, dbTx); err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

func (p *PostgresLedgerStore) saveToken(ctx context.Context, dbTx *sql.Tx, token models.Token) error {
	const query = `INSERT INTO token (id, name, symbol, decimals, total_supply)
	VALUES (1, $1, $2, $3, $4::numeric)`

	_, err := dbTx.ExecContext(ctx, query, token.Name, token.Symbol, int16(token.Decimals), token.TotalSupply.Dec())
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrGenesisConflict
	}
	return err
}

func (p *PostgresLedgerStore) saveBalance(ctx context.Context, dbTx *sql.Tx, addr models.Address, v *uint256.Int) error {
	if v == nil || v.IsZero() {
		_, err := dbTx.ExecContext(ctx, `DELETE FROM balances WHERE address = $1`, string(addr))
		return err
	}

	const query = `INSERT INTO balances (address, amount) VALUES ($1, $2::numeric)
	ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount`
	_, err := dbTx.ExecContext(ctx, query, string(addr), v.Dec())
	return err
}

func (p *PostgresLedgerStore) saveAllowance(ctx context.Context, dbTx *sql.Tx, key models.AllowanceKey, v *uint256.Int) error {
	if v == nil || v.IsZero() {
		_, err := dbTx.ExecContext(ctx, `DELETE FROM allowances WHERE owner = $1 AND spender = $2`, string(key.Owner), string(key.Spender))
		return err
	}

	const query = `INSERT INTO allowances (owner, spender, amount) VALUES ($1, $2, $3::numeric)
	ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`
	_, err := dbTx.ExecContext(ctx, query, string(key.Owner), string(key.Spender), v.Dec())
	return err
}

func (p *PostgresLedgerStore) SaveEntry(ctx context.Context, ledgerEntry models.LedgerEntry, dbTx *sql.Tx) error {
	const query = `INSERT INTO ledger_entries (id, transfer_id, account_id, direction, amount, created_at)
	VALUES ($1, $2, $3, $4, $5::numeric, $6)`

	_, err := dbTx.ExecContext(ctx, query,
		ledgerEntry.ID,
		ledgerEntry.TransferID,
		string(ledgerEntry.AccountID),
		string(ledgerEntry.Direction),
		ledgerEntry.Amount.Dec(),
		ledgerEntry.CreatedAt,
	)
	return err
}

func (p *PostgresLedgerStore) Balances(ctx context.Context) (map[models.Address]*uint256.Int, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT address, amount FROM balances`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.Address]*uint256.Int)
	for rows.Next() {
		var addr, amount string
		if err := rows.Scan(&addr, &amount); err != nil {
			return nil, err
		}
		v, err := uint256.FromDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt balance for %s: %w", addr, err)
		}
		out[models.Address(addr)] = v
	}
	return out, rows.Err()
}

func (p *PostgresLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transfer_id, account_id, direction, amount, created_at
	FROM ledger_entries ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (p *PostgresLedgerStore) GetEntriesByAccount(ctx context.Context, accountID models.Address) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transfer_id, account_id, direction, amount, created_at
	FROM ledger_entries WHERE account_id = $1 ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query, string(accountID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry

	for rows.Next() {
		var (
			entry     models.LedgerEntry
			account   string
			direction string
			amount    string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.TransferID,
			&account,
			&direction,
			&amount,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if entry.Amount, err = uint256.FromDecimal(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount in entry %s: %w", entry.ID, err)
		}
		entry.AccountID = models.Address(account)
		entry.Direction = models.EntryDirection(direction)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
