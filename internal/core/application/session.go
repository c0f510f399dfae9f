package application

import (
	"context"
	"sort"
	"sync"

	"github.com/ark-network/notewallet/internal/core/domain"
)

// session owns the in-memory ledgers of every account while the wallet is
// unlocked.
type session struct {
	lock      sync.Mutex
	accounts  map[string]*domain.Account
	persister *persistenceCoordinator
}

func newSession(persister *persistenceCoordinator) *session {
	return &session{
		accounts:  make(map[string]*domain.Account),
		persister: persister,
	}
}

// account returns the ledgers of address, loading them from storage the
// first time. When no snapshot exists a new account is created only if
// create is set, otherwise ErrNotFound is returned.
func (s *session) account(
	ctx context.Context, address string, create bool,
) (*domain.Account, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if acct, ok := s.accounts[address]; ok {
		return acct, nil
	}

	acct, err := s.persister.load(ctx, address)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		if !create {
			return nil, domain.NewError(
				domain.KindNotFound, nil, "account %s not found", address,
			)
		}
		acct = s.persister.create(address)
	}
	s.accounts[address] = acct
	return acct, nil
}

func (s *session) addresses() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	list := make([]string, 0, len(s.accounts))
	for addr := range s.accounts {
		list = append(list, addr)
	}
	sort.Strings(list)
	return list
}

func (s *session) loaded(address string) (*domain.Account, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	acct, ok := s.accounts[address]
	return acct, ok
}

func (s *session) persist(ctx context.Context, acct *domain.Account) error {
	return s.persister.persist(ctx, acct)
}
