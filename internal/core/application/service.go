package application

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ark-network/notewallet/internal/core/domain"
	"github.com/ark-network/notewallet/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type service struct {
	cfg Config

	chain       ports.ChainClient
	signer      ports.SignerService
	store       ports.SnapshotStore
	cypher      ports.Cypher
	scheduler   ports.SchedulerService
	serializer  *Serializer
	estimateFee FeeEstimator
	now         func() time.Time

	// lifecycle serializes Unlock and Lock, so that a new session is never
	// loaded while the previous one is still being flushed.
	lifecycle sync.Mutex
	lock      sync.RWMutex
	session   *session
	active    sync.WaitGroup
}

func NewService(
	cfg Config, chain ports.ChainClient, signer ports.SignerService,
	store ports.SnapshotStore, cypher ports.Cypher,
	scheduler ports.SchedulerService,
) (Service, error) {
	if chain == nil {
		return nil, fmt.Errorf("missing chain client")
	}
	if signer == nil {
		return nil, fmt.Errorf("missing signer service")
	}
	if store == nil {
		return nil, fmt.Errorf("missing snapshot store")
	}
	if cypher == nil {
		return nil, fmt.Errorf("missing cypher")
	}
	if cfg.MaxTxHistory <= 0 {
		cfg.MaxTxHistory = domain.DefaultMaxTxHistory
	}
	if cfg.TxExpiry <= 0 {
		cfg.TxExpiry = DefaultTxExpiry
	}
	if cfg.SpentRetention <= 0 {
		cfg.SpentRetention = DefaultSpentRetention
	}

	return &service{
		cfg:         cfg,
		chain:       chain,
		signer:      signer,
		store:       store,
		cypher:      cypher,
		scheduler:   scheduler,
		serializer:  NewSerializer(),
		estimateFee: LinearFeeEstimator(cfg.FeeBase, cfg.FeePerNote),
		now:         time.Now,
	}, nil
}

func (s *service) Start() error {
	if s.scheduler == nil || s.cfg.SyncInterval <= 0 {
		return nil
	}
	if err := s.scheduler.ScheduleTask(
		s.cfg.SyncInterval, true, s.syncAll,
	); err != nil {
		return err
	}
	s.scheduler.Start()
	log.Infof("periodic sync started every %ds", s.cfg.SyncInterval)
	return nil
}

func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if err := s.Lock(context.Background()); err != nil {
		log.WithError(err).Warn("failed to flush accounts on stop")
	}
	s.store.Close()
	log.Info("wallet service stopped")
}

func (s *service) Unlock(ctx context.Context, password string) error {
	if len(password) <= 0 {
		return fmt.Errorf("missing password")
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.session != nil {
		return nil
	}

	persister := newPersistenceCoordinator(
		s.store, s.cypher, []byte(password), s.cfg.MaxTxHistory,
	)
	sess := newSession(persister)

	stored, err := s.store.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored accounts: %w", err)
	}
	for _, addr := range stored {
		if _, err := sess.account(ctx, addr, false); err != nil {
			return fmt.Errorf("failed to unlock wallet: %w", err)
		}
	}
	for _, addr := range s.cfg.Accounts {
		acct, err := sess.account(ctx, addr, true)
		if err != nil {
			return fmt.Errorf("failed to unlock wallet: %w", err)
		}
		if err := sess.persist(ctx, acct); err != nil {
			return err
		}
	}

	s.session = sess
	log.Infof("wallet unlocked, %d accounts loaded", len(sess.addresses()))
	return nil
}

// Lock flushes every account, waiting for the operations in progress, and
// drops the in-memory ledgers.
func (s *service) Lock(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.lock.Lock()
	sess := s.session
	s.session = nil
	s.lock.Unlock()

	if sess == nil {
		return nil
	}

	// No new operation can acquire the session from now on.
	s.active.Wait()

	var flushErr error
	for _, addr := range sess.addresses() {
		if err := s.serializer.Do(addr, func() error {
			acct, ok := sess.loaded(addr)
			if !ok {
				return nil
			}
			return sess.persist(ctx, acct)
		}); err != nil {
			log.WithError(err).Warnf("failed to flush account %s", addr)
			flushErr = err
		}
	}

	log.Info("wallet locked")
	return flushErr
}

func (s *service) IsUnlocked() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.session != nil
}

func (s *service) AddAccount(ctx context.Context, address string) error {
	if len(address) <= 0 {
		return fmt.Errorf("missing address")
	}
	return s.serializer.Do(address, func() error {
		sess, release, err := s.acquire()
		if err != nil {
			return err
		}
		defer release()
		acct, err := sess.account(ctx, address, true)
		if err != nil {
			return err
		}
		return sess.persist(ctx, acct)
	})
}

func (s *service) Accounts(_ context.Context) ([]string, error) {
	sess, release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return sess.addresses(), nil
}

func (s *service) Sync(
	ctx context.Context, address string,
) (*domain.SyncSummary, error) {
	return WithKey(s.serializer, address, func() (*domain.SyncSummary, error) {
		sess, release, err := s.acquire()
		if err != nil {
			return nil, err
		}
		defer release()
		acct, err := sess.account(ctx, address, true)
		if err != nil {
			return nil, err
		}

		chainNotes, err := s.chain.FetchNotes(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch notes of %s: %w", address, err)
		}

		summary := Reconcile(acct, chainNotes, s.now(), s.reconcileOpts())
		if err := sess.persist(ctx, acct); err != nil {
			return nil, err
		}

		log.WithField("account", address).Debugf("synced: %+v", summary)
		return &summary, nil
	})
}

// Resync rebuilds the note set from scratch out of the chain notes, keeping
// the locks of the notes in flight, then reconciles the transactions.
func (s *service) Resync(
	ctx context.Context, address string,
) (*domain.SyncSummary, error) {
	return WithKey(s.serializer, address, func() (*domain.SyncSummary, error) {
		sess, release, err := s.acquire()
		if err != nil {
			return nil, err
		}
		defer release()
		acct, err := sess.account(ctx, address, false)
		if err != nil {
			return nil, err
		}

		chainNotes, err := s.chain.FetchNotes(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch notes of %s: %w", address, err)
		}

		now := s.now()
		notes := make([]domain.Note, 0, len(chainNotes))
		for _, c := range chainNotes {
			notes = append(notes, domain.NewNote(address, c, now))
		}
		count := acct.Notes.ReplaceAll(notes)
		summary := Reconcile(acct, chainNotes, now, s.reconcileOpts())
		if err := sess.persist(ctx, acct); err != nil {
			return nil, err
		}

		log.WithField("account", address).Infof(
			"resynced %d notes: %+v", count, summary,
		)
		return &summary, nil
	})
}

func (s *service) Send(ctx context.Context, req SendRequest) (string, error) {
	if len(req.Address) <= 0 {
		return "", fmt.Errorf("missing sender address")
	}
	if len(req.Recipient) <= 0 {
		return "", fmt.Errorf("missing recipient")
	}
	if !req.Sweep && req.Amount == 0 {
		return "", fmt.Errorf("missing amount")
	}

	return WithKey(s.serializer, req.Address, func() (string, error) {
		sess, release, err := s.acquire()
		if err != nil {
			return "", err
		}
		defer release()
		acct, err := sess.account(ctx, req.Address, false)
		if err != nil {
			return "", err
		}
		return s.send(ctx, sess, acct, req)
	})
}

func (s *service) send(
	ctx context.Context, sess *session, acct *domain.Account, req SendRequest,
) (string, error) {
	sel, err := selectWithFee(
		acct.Notes.Available(), req.Amount, req.Fee, req.Sweep, s.estimateFee,
	)
	if err != nil {
		return "", err
	}

	tx := domain.NewOutgoingTx(
		acct.Address, req.Recipient, sel.amount, sel.fee, sel.change,
		sel.ids(), s.now(),
	)
	tx.PriceAtTime = req.PriceAtTime
	if err := acct.Notes.Lock(sel.ids(), tx.Id); err != nil {
		return "", err
	}
	acct.Txs.Append(tx)
	if err := sess.persist(ctx, acct); err != nil {
		return "", s.abortSend(ctx, sess, acct, tx.Id, domain.KindConstructionFailed, err)
	}
	log.Debugf("tx %s created spending %d notes", tx.Id, len(sel.notes))

	fee := req.Fee
	if req.Sweep {
		fee = &sel.fee
	}
	refund := req.RefundAddress
	if len(refund) <= 0 {
		refund = acct.Address
	}
	signed, err := s.signer.Sign(ctx, ports.SignRequest{
		Notes:         sel.notes,
		Authorization: req.Authorization,
		Recipient:     req.Recipient,
		Amount:        sel.amount,
		Fee:           fee,
		RefundAddress: refund,
	})
	if err != nil {
		return "", s.abortSend(ctx, sess, acct, tx.Id, domain.KindConstructionFailed, err)
	}

	inputs, unused, total, err := narrowInputs(sel.notes, signed.SpentNoteIds)
	if err != nil {
		return "", s.abortSend(ctx, sess, acct, tx.Id, domain.KindConstructionFailed, err)
	}
	required := uint64(math.MaxUint64)
	if sel.amount <= math.MaxUint64-signed.Fee {
		required = sel.amount + signed.Fee
	}
	if total < required {
		err := domain.NewInsufficientFundsError(total, required)
		return "", s.abortSend(ctx, sess, acct, tx.Id, domain.KindConstructionFailed, err)
	}

	if err := acct.Txs.Update(tx.Id, func(t *domain.WalletTx) {
		t.Status = domain.TxBroadcastPending
		t.Fee = signed.Fee
		t.UpdatedAt = s.now()
	}); err != nil {
		return "", s.abortSend(ctx, sess, acct, tx.Id, domain.KindConstructionFailed, err)
	}
	s.persistOrWarn(ctx, sess, acct)
	log.Debugf("tx %s signed with fee %d", tx.Id, signed.Fee)

	hash, err := s.chain.Broadcast(ctx, signed.RawTx)
	if err != nil {
		return "", s.abortSend(ctx, sess, acct, tx.Id, domain.KindBroadcastFailed, err)
	}
	if len(hash) <= 0 {
		hash = signed.TxId
	}

	if released := acct.Notes.Release(unused); released > 0 {
		log.Debugf("tx %s released %d unused notes", tx.Id, released)
	}
	if err := acct.Txs.Update(tx.Id, func(t *domain.WalletTx) {
		t.Status = domain.TxBroadcastedUnconfirmed
		t.Fee = signed.Fee
		t.TxHash = hash
		t.InputNoteIds = inputs
		t.ExpectedChange = total - sel.amount - signed.Fee
		t.UpdatedAt = s.now()
	}); err != nil {
		log.WithError(err).Warnf("failed to update broadcasted tx %s", tx.Id)
	}
	s.persistOrWarn(ctx, sess, acct)

	log.WithField("account", acct.Address).Infof(
		"tx %s broadcasted with hash %s", tx.Id, hash,
	)
	return tx.Id, nil
}

// abortSend releases the notes locked by the tx, marks it failed and
// returns the error to report to the caller.
func (s *service) abortSend(
	ctx context.Context, sess *session, acct *domain.Account, txId string,
	kind domain.ErrorKind, cause error,
) error {
	released := acct.Notes.ReleaseByTx(txId)
	if err := acct.Txs.Update(txId, func(t *domain.WalletTx) {
		t.Status = domain.TxFailed
		t.FailureReason = cause.Error()
		t.UpdatedAt = s.now()
	}); err != nil {
		log.WithError(err).Warnf("failed to mark tx %s as failed", txId)
	}
	s.persistOrWarn(ctx, sess, acct)

	log.WithError(cause).Warnf(
		"tx %s failed, released %d notes", txId, released,
	)
	switch kind {
	case domain.KindBroadcastFailed:
		return domain.NewError(kind, cause, "failed to broadcast tx %s", txId)
	default:
		return domain.NewError(kind, cause, "failed to build tx %s", txId)
	}
}

func (s *service) GetBalance(
	ctx context.Context, address string,
) (*domain.Balance, error) {
	acct, err := s.getAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	balance := acct.Balance()
	return &balance, nil
}

func (s *service) ListNotes(
	ctx context.Context, address string,
) ([]domain.Note, error) {
	acct, err := s.getAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return acct.Notes.List(), nil
}

func (s *service) ListTransactions(
	ctx context.Context, address string, filter domain.TxFilter,
) ([]domain.WalletTx, error) {
	acct, err := s.getAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return acct.Txs.List(filter), nil
}

func (s *service) AnnotatePrice(
	ctx context.Context, address, txId string, price float64,
) error {
	return s.serializer.Do(address, func() error {
		sess, release, err := s.acquire()
		if err != nil {
			return err
		}
		defer release()
		acct, err := sess.account(ctx, address, false)
		if err != nil {
			return err
		}
		if err := acct.Txs.Update(txId, func(t *domain.WalletTx) {
			t.PriceAtTime = &price
		}); err != nil {
			return err
		}
		return sess.persist(ctx, acct)
	})
}

func (s *service) syncAll() {
	sess, release, err := s.acquire()
	if err != nil {
		log.Debug("wallet locked, skipping periodic sync")
		return
	}
	addresses := sess.addresses()
	release()

	var wg sync.WaitGroup
	for _, addr := range addresses {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			summary, err := s.Sync(context.Background(), addr)
			if err != nil {
				log.WithError(err).Warnf("periodic sync of %s failed", addr)
				return
			}
			if summary.HasChanges() {
				log.WithField("account", addr).Infof("synced: %+v", *summary)
			}
		}(addr)
	}
	wg.Wait()
}

// acquire returns the current session and registers an operation in
// progress on it. Lock waits for every registered operation to release.
func (s *service) acquire() (*session, func(), error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.session == nil {
		return nil, nil, domain.ErrStale
	}
	s.active.Add(1)
	return s.session, s.active.Done, nil
}

func (s *service) getAccount(
	ctx context.Context, address string,
) (*domain.Account, error) {
	sess, release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return sess.account(ctx, address, false)
}

func (s *service) persistOrWarn(
	ctx context.Context, sess *session, acct *domain.Account,
) {
	if err := sess.persist(ctx, acct); err != nil {
		log.WithError(err).Warnf(
			"failed to persist account %s, will retry on next change", acct.Address,
		)
	}
}

func (s *service) reconcileOpts() ReconcileOptions {
	return ReconcileOptions{
		TxExpiry:       s.cfg.TxExpiry,
		SpentRetention: s.cfg.SpentRetention,
	}
}

// narrowInputs splits the selected notes into those the signer spent and
// those it left out. An empty spent list means all notes are used.
func narrowInputs(
	selected []domain.Note, spent []string,
) (inputs, unused []string, total uint64, err error) {
	if len(spent) <= 0 {
		for _, n := range selected {
			inputs = append(inputs, n.Id)
			total += n.Amount
		}
		return inputs, nil, total, nil
	}

	used := make(map[string]struct{}, len(spent))
	for _, id := range spent {
		used[id] = struct{}{}
	}
	for _, n := range selected {
		if _, ok := used[n.Id]; ok {
			inputs = append(inputs, n.Id)
			total += n.Amount
			delete(used, n.Id)
			continue
		}
		unused = append(unused, n.Id)
	}
	if len(used) > 0 {
		return nil, nil, 0, fmt.Errorf(
			"signer spent %d notes that were not provided", len(used),
		)
	}
	return inputs, unused, total, nil
}
