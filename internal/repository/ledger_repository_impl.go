package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"clinic-backoffice/internal/domain/entity"
	domainRepo "clinic-backoffice/internal/domain/repository"

	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) domainRepo.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Load(ctx context.Context, clinicID uint, kind entity.QueueKind) (*entity.ClinicLedger, error) {
	var row entity.SlotLedger
	err := r.db.WithContext(ctx).
		Where("clinic_id = ? AND kind = ?", clinicID, kind).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rowToLedger(&row)
}

func (r *ledgerRepository) LoadAll(ctx context.Context) ([]*entity.ClinicLedger, error) {
	var rows []entity.SlotLedger
	if err := r.db.WithContext(ctx).Order("clinic_id, kind").Find(&rows).Error; err != nil {
		return nil, err
	}
	ledgers := make([]*entity.ClinicLedger, 0, len(rows))
	for i := range rows {
		ledger, err := rowToLedger(&rows[i])
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}
	return ledgers, nil
}

// Save commits the whole document. Existing rows are updated only when the
// stored version still matches the loaded one; a zero-version ledger is
// inserted fresh. Either way the ledger's version is bumped on success.
func (r *ledgerRepository) Save(ctx context.Context, ledger *entity.ClinicLedger) error {
	document, err := json.Marshal(ledger.Days)
	if err != nil {
		return fmt.Errorf("marshal ledger document: %w", err)
	}

	if ledger.Version == 0 {
		row := entity.SlotLedger{
			ClinicID: ledger.ClinicID,
			Kind:     ledger.Kind,
			Document: document,
			Version:  1,
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domainRepo.ErrVersionConflict
			}
			return err
		}
		ledger.Version = 1
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entity.SlotLedger{}).
		Where("clinic_id = ? AND kind = ? AND version = ?", ledger.ClinicID, ledger.Kind, ledger.Version).
		Updates(map[string]interface{}{
			"document": document,
			"version":  ledger.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepo.ErrVersionConflict
	}
	ledger.Version++
	return nil
}

func (r *ledgerRepository) Delete(ctx context.Context, clinicID uint, kind entity.QueueKind) error {
	return r.db.WithContext(ctx).
		Where("clinic_id = ? AND kind = ?", clinicID, kind).
		Delete(&entity.SlotLedger{}).Error
}

func rowToLedger(row *entity.SlotLedger) (*entity.ClinicLedger, error) {
	ledger := entity.NewClinicLedger(row.ClinicID, row.Kind)
	ledger.Version = row.Version
	if len(row.Document) > 0 {
		if err := json.Unmarshal(row.Document, &ledger.Days); err != nil {
			return nil, fmt.Errorf("unmarshal ledger document for clinic %d: %w", row.ClinicID, err)
		}
	}
	if ledger.Days == nil {
		ledger.Days = map[string]*entity.DaySlotTable{}
	}
	return ledger, nil
}
