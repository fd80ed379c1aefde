package usecase

import (
	"fmt"
	"sync"

	"clinic-backoffice/internal/domain/entity"
)

// LedgerGuard serializes read-modify-write cycles on a (clinic, kind) ledger
// document inside this process. The store's version check backs it up; the
// guard keeps interactive writers and the daily sweep from ever racing in the
// common single-process deployment.
type LedgerGuard struct {
	locks sync.Map // map[string]*sync.Mutex, one per (clinic, kind)
}

func NewLedgerGuard() *LedgerGuard {
	return &LedgerGuard{}
}

// Lock blocks until the (clinic, kind) ledger is exclusively held and returns
// the unlock function.
func (g *LedgerGuard) Lock(clinicID uint, kind entity.QueueKind) func() {
	key := fmt.Sprintf("%d:%s", clinicID, kind)
	mu, _ := g.locks.LoadOrStore(key, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}
