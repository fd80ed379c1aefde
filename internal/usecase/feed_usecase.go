package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"clinic-backoffice/internal/converter"
	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/domain/repository"
	"clinic-backoffice/pkg/cache"

	"github.com/sirupsen/logrus"
)

const feedEndpoint = "days"

// feedPrefix is the cache-invalidation prefix covering every cached read of
// one clinic's ledger. Mutating usecases call DeletePrefix with it.
func feedPrefix(kind entity.QueueKind, clinicID uint) string {
	return cache.Prefix(feedEndpoint, fmt.Sprintf("%s:%d", kind, clinicID))
}

type FeedUsecase interface {
	// Snapshot serves the cleaned ledger through the read cache.
	Snapshot(ctx context.Context, kind entity.QueueKind, clinicID uint, params map[string]string) (*dto.FeedSnapshot, error)
	// ReadLive bypasses the cache; the SSE poll loop uses it so a stream
	// never observes stale data.
	ReadLive(ctx context.Context, kind entity.QueueKind, clinicID uint) (*dto.FeedSnapshot, error)
}

type feedUsecase struct {
	log        *logrus.Logger
	ledgerRepo repository.LedgerRepository
	readCache  cache.Cache
	ttl        time.Duration
}

func NewFeedUsecase(log *logrus.Logger, ledgerRepo repository.LedgerRepository, readCache cache.Cache, ttl time.Duration) FeedUsecase {
	return &feedUsecase{
		log:        log,
		ledgerRepo: ledgerRepo,
		readCache:  readCache,
		ttl:        ttl,
	}
}

func (u *feedUsecase) Snapshot(ctx context.Context, kind entity.QueueKind, clinicID uint, params map[string]string) (*dto.FeedSnapshot, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	key := cache.Key(feedEndpoint, fmt.Sprintf("%s:%d", kind, clinicID), params)
	if data, ok := u.readCache.Get(ctx, key); ok {
		var snapshot dto.FeedSnapshot
		if err := json.Unmarshal(data, &snapshot); err == nil {
			return &snapshot, nil
		}
		// A corrupt cache entry is a miss, nothing more.
		u.readCache.Delete(ctx, key)
	}

	snapshot, err := u.ReadLive(ctx, kind, clinicID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(snapshot); err == nil {
		u.readCache.Set(ctx, key, data, u.ttl)
	}
	return snapshot, nil
}

func (u *feedUsecase) ReadLive(ctx context.Context, kind entity.QueueKind, clinicID uint) (*dto.FeedSnapshot, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	ledger, err := u.ledgerRepo.Load(ctx, clinicID, kind)
	if err != nil {
		u.log.Warnf("Failed to read ledger for clinic %d feed: %+v", clinicID, err)
		return nil, err
	}
	if ledger == nil {
		ledger = entity.NewClinicLedger(clinicID, kind)
	}

	days := converter.LedgerToDays(ledger, false)
	hash, err := contentHash(days)
	if err != nil {
		return nil, err
	}
	return &dto.FeedSnapshot{ClinicID: clinicID, Days: days, Hash: hash}, nil
}

// contentHash fingerprints the cleaned day map. encoding/json writes map keys
// in sorted order, so equal content always hashes equal.
func contentHash(days map[string]dto.DayResponse) (string, error) {
	raw, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("marshal feed days: %w", err)
	}
	return fmt.Sprintf("%x", md5.Sum(raw)), nil
}
