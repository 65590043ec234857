package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// ExportRecord is one recorded PDF export. The document body is archived
// zstd-compressed for audit; SizeBytes is the uncompressed size.
type ExportRecord struct {
	ID        string
	AccountID string
	ItemID    string
	Filename  string
	SizeBytes int
	CreatedAt time.Time
}

// ExportRepository records exports and answers the quota question the free
// tier needs: how many exports has this account made since a point in time.
type ExportRepository interface {
	// Record persists one export, archiving the document body.
	Record(ctx context.Context, accountID, itemID, filename string, document []byte) (*ExportRecord, error)

	// CountSince returns the number of exports recorded for the account at or
	// after the given instant.
	CountSince(ctx context.Context, accountID string, since time.Time) (int, error)
}

// ExportRepo is the PostgreSQL ExportRepository, backed by the invoice_exports
// table (id, account_id, item_id, filename, size_bytes, document, created_at).
type ExportRepo struct {
	db      DBTX
	encoder *zstd.Encoder
}

// NewExportRepo creates an ExportRepo backed by the given pool or transaction.
func NewExportRepo(db DBTX) (*ExportRepo, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("db: creating zstd encoder: %w", err)
	}
	return &ExportRepo{db: db, encoder: enc}, nil
}

// Record inserts the export row with the zstd-compressed document body.
func (r *ExportRepo) Record(ctx context.Context, accountID, itemID, filename string, document []byte) (*ExportRecord, error) {
	rec := &ExportRecord{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ItemID:    itemID,
		Filename:  filename,
		SizeBytes: len(document),
		CreatedAt: time.Now().UTC(),
	}

	compressed := r.encoder.EncodeAll(document, nil)

	const query = `
		INSERT INTO invoice_exports (id, account_id, item_id, filename, size_bytes, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.db.Exec(ctx, query,
		rec.ID, rec.AccountID, rec.ItemID, rec.Filename, rec.SizeBytes, compressed, rec.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("db: recording export: %w", err)
	}

	return rec, nil
}

// CountSince counts the account's exports recorded at or after since.
func (r *ExportRepo) CountSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM invoice_exports
		WHERE account_id = $1 AND created_at >= $2`

	var count int
	if err := r.db.QueryRow(ctx, query, accountID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("db: counting exports: %w", err)
	}
	return count, nil
}

// Document decompresses an archived document body.
func Document(compressed []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("db: creating zstd decoder: %w", err)
	}
	defer dec.Close()

	body, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("db: decompressing document: %w", err)
	}
	return body, nil
}
