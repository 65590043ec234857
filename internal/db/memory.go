package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryExportRepo is the in-memory ExportRepository used when no database is
// configured (local development, tests, and the unprovisioned mock path).
// Counts reset on process restart, which is acceptable for those modes.
type MemoryExportRepo struct {
	mu      sync.Mutex
	records []ExportRecord
}

// NewMemoryExportRepo creates an empty in-memory repository.
func NewMemoryExportRepo() *MemoryExportRepo {
	return &MemoryExportRepo{}
}

// Record appends the export. The document body is not retained; the memory
// repository only serves quota accounting.
func (r *MemoryExportRepo) Record(ctx context.Context, accountID, itemID, filename string, document []byte) (*ExportRecord, error) {
	rec := ExportRecord{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ItemID:    itemID,
		Filename:  filename,
		SizeBytes: len(document),
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	return &rec, nil
}

// CountSince counts the account's exports recorded at or after since.
func (r *MemoryExportRepo) CountSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, rec := range r.records {
		if rec.AccountID == accountID && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
