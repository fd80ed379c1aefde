package repository

import (
	"context"
	"errors"

	"clinic-backoffice/internal/domain/entity"
)

// ErrVersionConflict is returned by Save when the ledger row changed since it
// was loaded. Callers discard their in-memory mutation and may retry.
var ErrVersionConflict = errors.New("ledger version conflict")

// LedgerRepository persists one whole ledger document per (clinic, kind).
// Save commits only via compare-and-swap on the loaded version.
type LedgerRepository interface {
	// Load returns (nil, nil) when no ledger exists for the clinic yet.
	Load(ctx context.Context, clinicID uint, kind entity.QueueKind) (*entity.ClinicLedger, error)
	// LoadAll returns every persisted ledger across clinics and kinds.
	LoadAll(ctx context.Context) ([]*entity.ClinicLedger, error)
	Save(ctx context.Context, ledger *entity.ClinicLedger) error
	Delete(ctx context.Context, clinicID uint, kind entity.QueueKind) error
}
