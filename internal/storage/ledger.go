package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MetaLastFillBlock holds the block number of the most recent recorded fill.
const MetaLastFillBlock = "last_fill_block"

// Ledger keeps every processed fill in SQLite.
type Ledger struct {
	db *sql.DB
}

// NewLedger opens (or creates) the ledger database with WAL mode enabled.
func NewLedger(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	// Decimal columns are TEXT so values round-trip exactly.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			block_number INTEGER NOT NULL,
			base_asset TEXT NOT NULL,
			quote_asset TEXT NOT NULL,
			side TEXT NOT NULL,
			asset_change TEXT NOT NULL,
			quote_change TEXT NOT NULL,
			average_price TEXT NOT NULL,
			fee_asset TEXT NOT NULL,
			fee_quote TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create fills table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_fills_ts ON fills (ts);"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create fills index: %w", err)
	}

	return &Ledger{db: db}, nil
}

// LedgerEntry is a stored fill with its record id.
type LedgerEntry struct {
	ID string
	domain.FillRecord
}

// RecordFill inserts rec and advances last_fill_block in one transaction.
func (l *Ledger) RecordFill(ctx context.Context, rec domain.FillRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO fills (id, ts, block_number, base_asset, quote_asset, side,
			asset_change, quote_change, average_price, fee_asset, fee_quote)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), rec.Timestamp.UnixMilli(), int64(rec.BlockNumber),
		rec.BaseAsset, rec.QuoteAsset, string(rec.Side),
		rec.AssetChange.String(), rec.QuoteChange.String(), rec.AveragePrice.String(),
		rec.FeeAsset.String(), rec.FeeQuote.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fill: %w", err)
	}

	if rec.BlockNumber > 0 {
		// never move backwards if notifications arrive out of order
		_, err = tx.ExecContext(ctx,
			`INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
			WHERE CAST(metadata.value AS INTEGER) < CAST(excluded.value AS INTEGER)`,
			MetaLastFillBlock, strconv.FormatUint(rec.BlockNumber, 10), time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", MetaLastFillBlock, err)
		}
	}

	return tx.Commit()
}

// LoadFills returns fills recorded at or after since, oldest first.
func (l *Ledger) LoadFills(ctx context.Context, since time.Time) ([]LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, ts, block_number, base_asset, quote_asset, side,
			asset_change, quote_change, average_price, fee_asset, fee_quote
		FROM fills WHERE ts >= ? ORDER BY ts ASC, rowid ASC`,
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var ts, block int64
		var side, assetChg, quoteChg, avg, feeA, feeQ string
		if err := rows.Scan(&e.ID, &ts, &block, &e.BaseAsset, &e.QuoteAsset, &side,
			&assetChg, &quoteChg, &avg, &feeA, &feeQ); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}

		e.Timestamp = time.UnixMilli(ts)
		e.BlockNumber = uint64(block)
		e.Side = domain.Side(side)
		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&e.AssetChange, assetChg},
			{&e.QuoteChange, quoteChg},
			{&e.AveragePrice, avg},
			{&e.FeeAsset, feeA},
			{&e.FeeQuote, feeQ},
		} {
			if *f.dst, err = decimal.NewFromString(f.src); err != nil {
				return nil, fmt.Errorf("fill %s: corrupt decimal %q: %w", e.ID, f.src, err)
			}
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (l *Ledger) UpsertMetadata(ctx context.Context, key, value string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, time.Now().Unix(),
	)
	return err
}

// GetMetadata retrieves a value from the metadata table, "" if absent.
func (l *Ledger) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := l.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// LastFillBlock returns the highest recorded fill block, 0 if none.
func (l *Ledger) LastFillBlock(ctx context.Context) (uint64, error) {
	v, err := l.GetMetadata(ctx, MetaLastFillBlock)
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}
