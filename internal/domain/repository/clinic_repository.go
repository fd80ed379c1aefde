package repository

import (
	"context"

	"clinic-backoffice/internal/domain/entity"
)

// ClinicRepository reads clinic configuration rows. The ledger engine never
// writes them.
type ClinicRepository interface {
	// FindByID returns (nil, nil) when the clinic does not exist.
	FindByID(ctx context.Context, id uint) (*entity.Clinic, error)
}
