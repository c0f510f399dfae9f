package service_interface

import (
	"context"
	"fmt"

	"github.com/ark-network/notewallet/internal/core/application"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	Start() error
	Stop()
}

type service struct {
	app      application.Service
	password string
}

// NewService wraps the wallet app service for the long running daemon: the
// wallet is unlocked on start and flushed on stop.
func NewService(app application.Service, password string) (Service, error) {
	if app == nil {
		return nil, fmt.Errorf("missing app service")
	}
	if len(password) <= 0 {
		return nil, fmt.Errorf("missing password")
	}
	return &service{app, password}, nil
}

func (s *service) Start() error {
	ctx := context.Background()
	if err := s.app.Unlock(ctx, s.password); err != nil {
		return err
	}

	accounts, err := s.app.Accounts(ctx)
	if err != nil {
		return err
	}
	for _, addr := range accounts {
		summary, err := s.app.Sync(ctx, addr)
		if err != nil {
			log.WithError(err).Warnf("initial sync failed for account %s", addr)
			continue
		}
		log.Debugf("account %s synced: %+v", addr, *summary)
	}

	if err := s.app.Start(); err != nil {
		return err
	}
	log.Debug("service started")
	return nil
}

func (s *service) Stop() {
	s.app.Stop()
	log.Debug("service stopped")
}
