package application

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ark-network/notewallet/internal/core/domain"
	"github.com/ark-network/notewallet/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type mockedChainClient struct {
	mock.Mock
}

func (m *mockedChainClient) FetchNotes(
	ctx context.Context, address string,
) ([]domain.ChainNote, error) {
	args := m.Called(ctx, address)

	var res []domain.ChainNote
	if a := args.Get(0); a != nil {
		res = a.([]domain.ChainNote)
	}
	return res, args.Error(1)
}

func (m *mockedChainClient) Broadcast(
	ctx context.Context, rawTx string,
) (string, error) {
	args := m.Called(ctx, rawTx)
	return args.String(0), args.Error(1)
}

type mockedSigner struct {
	mock.Mock
}

func (m *mockedSigner) Sign(
	ctx context.Context, req ports.SignRequest,
) (*ports.SignedTx, error) {
	args := m.Called(ctx, req)

	var res *ports.SignedTx
	if a := args.Get(0); a != nil {
		res = a.(*ports.SignedTx)
	}
	return res, args.Error(1)
}

type mockedScheduler struct {
	mock.Mock
}

func (m *mockedScheduler) Start() {
	m.Called()
}

func (m *mockedScheduler) Stop() {
	m.Called()
}

func (m *mockedScheduler) ScheduleTask(
	interval int64, immediate bool, task func(),
) error {
	args := m.Called(interval, immediate, task)
	return args.Error(0)
}

// memStore keeps snapshots in memory and counts writes per account.
type memStore struct {
	lock    sync.Mutex
	data    map[string][]byte
	writes  map[string]int
	failing bool
}

func newMemStore() *memStore {
	return &memStore{
		data:   make(map[string][]byte),
		writes: make(map[string]int),
	}
}

func (s *memStore) Get(_ context.Context, address string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	buf, ok := s.data[address]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, buf...), nil
}

func (s *memStore) Save(_ context.Context, address string, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.failing {
		return fmt.Errorf("disk full")
	}
	s.data[address] = append([]byte{}, data...)
	s.writes[address]++
	return nil
}

func (s *memStore) Accounts(_ context.Context) ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	list := make([]string, 0, len(s.data))
	for k := range s.data {
		list = append(list, k)
	}
	sort.Strings(list)
	return list, nil
}

func (s *memStore) Close() {}

func (s *memStore) writesOf(address string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.writes[address]
}

// prefixCypher prepends the password to the plaintext, enough to tell a
// wrong password apart in tests.
type prefixCypher struct{}

func (prefixCypher) Encrypt(plaintext, password []byte) ([]byte, error) {
	return append(append([]byte{}, password...), plaintext...), nil
}

func (prefixCypher) Decrypt(ciphertext, password []byte) ([]byte, error) {
	if !bytes.HasPrefix(ciphertext, password) {
		return nil, fmt.Errorf("invalid password")
	}
	return ciphertext[len(password):], nil
}
