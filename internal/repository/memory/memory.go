// Package memory provides in-memory repository implementations used by the
// engine tests and the standalone dev mode. Ledgers are deep-copied on every
// load/save so callers never share state with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"clinic-backoffice/internal/domain/entity"
	domainRepo "clinic-backoffice/internal/domain/repository"
)

type ledgerKey struct {
	ClinicID uint
	Kind     entity.QueueKind
}

type LedgerRepository struct {
	mu      sync.RWMutex
	ledgers map[ledgerKey]*entity.ClinicLedger
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{ledgers: make(map[ledgerKey]*entity.ClinicLedger)}
}

func (r *LedgerRepository) Load(_ context.Context, clinicID uint, kind entity.QueueKind) (*entity.ClinicLedger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ledger, ok := r.ledgers[ledgerKey{ClinicID: clinicID, Kind: kind}]
	if !ok {
		return nil, nil
	}
	return copyLedger(ledger)
}

func (r *LedgerRepository) LoadAll(_ context.Context) ([]*entity.ClinicLedger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]ledgerKey, 0, len(r.ledgers))
	for k := range r.ledgers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ClinicID != keys[j].ClinicID {
			return keys[i].ClinicID < keys[j].ClinicID
		}
		return keys[i].Kind < keys[j].Kind
	})
	out := make([]*entity.ClinicLedger, 0, len(keys))
	for _, k := range keys {
		ledger, err := copyLedger(r.ledgers[k])
		if err != nil {
			return nil, err
		}
		out = append(out, ledger)
	}
	return out, nil
}

func (r *LedgerRepository) Save(_ context.Context, ledger *entity.ClinicLedger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := ledgerKey{ClinicID: ledger.ClinicID, Kind: ledger.Kind}
	stored, exists := r.ledgers[k]

	if ledger.Version == 0 {
		if exists {
			return domainRepo.ErrVersionConflict
		}
	} else if !exists || stored.Version != ledger.Version {
		return domainRepo.ErrVersionConflict
	}

	ledger.Version++
	kept, err := copyLedger(ledger)
	if err != nil {
		ledger.Version--
		return err
	}
	r.ledgers[k] = kept
	return nil
}

func (r *LedgerRepository) Delete(_ context.Context, clinicID uint, kind entity.QueueKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ledgers, ledgerKey{ClinicID: clinicID, Kind: kind})
	return nil
}

func copyLedger(src *entity.ClinicLedger) (*entity.ClinicLedger, error) {
	raw, err := json.Marshal(src.Days)
	if err != nil {
		return nil, fmt.Errorf("copy ledger: %w", err)
	}
	dst := entity.NewClinicLedger(src.ClinicID, src.Kind)
	dst.Version = src.Version
	if err := json.Unmarshal(raw, &dst.Days); err != nil {
		return nil, fmt.Errorf("copy ledger: %w", err)
	}
	return dst, nil
}

type archiveKey struct {
	ClinicID uint
	Kind     entity.QueueKind
	Date     string
}

type ArchiveRepository struct {
	mu      sync.RWMutex
	nextID  uint
	records map[archiveKey]entity.ArchiveRecord
}

func NewArchiveRepository() *ArchiveRepository {
	return &ArchiveRepository{records: make(map[archiveKey]entity.ArchiveRecord)}
}

func (r *ArchiveRepository) Upsert(_ context.Context, record *entity.ArchiveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := archiveKey{ClinicID: record.ClinicID, Kind: record.Kind, Date: record.Date}
	if existing, ok := r.records[k]; ok {
		record.ID = existing.ID
	} else {
		r.nextID++
		record.ID = r.nextID
	}
	r.records[k] = *record
	return nil
}

func (r *ArchiveRepository) SaveIfAbsent(_ context.Context, record *entity.ArchiveRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := archiveKey{ClinicID: record.ClinicID, Kind: record.Kind, Date: record.Date}
	if _, ok := r.records[k]; ok {
		return false, nil
	}
	r.nextID++
	record.ID = r.nextID
	r.records[k] = *record
	return true, nil
}

func (r *ArchiveRepository) FindByClinic(_ context.Context, clinicID uint, kind entity.QueueKind, filter domainRepo.ArchiveFilter) ([]entity.ArchiveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.ArchiveRecord
	for k, rec := range r.records {
		if k.ClinicID != clinicID || k.Kind != kind {
			continue
		}
		if filter.FromDate != "" && k.Date < filter.FromDate {
			continue
		}
		if filter.ToDate != "" && k.Date > filter.ToDate {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type ClinicRepository struct {
	mu      sync.RWMutex
	clinics map[uint]entity.Clinic
}

func NewClinicRepository(clinics ...entity.Clinic) *ClinicRepository {
	r := &ClinicRepository{clinics: make(map[uint]entity.Clinic)}
	for _, c := range clinics {
		r.clinics[c.ID] = c
	}
	return r
}

func (r *ClinicRepository) Put(clinic entity.Clinic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clinics[clinic.ID] = clinic
}

func (r *ClinicRepository) FindByID(_ context.Context, id uint) (*entity.Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clinic, ok := r.clinics[id]
	if !ok {
		return nil, nil
	}
	return &clinic, nil
}
