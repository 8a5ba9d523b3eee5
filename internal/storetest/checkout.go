package storetest

import (
	"context"
	"database/sql"
	"sync"

	"github.com/aerocal/gaugecore/internal/checkout"
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
)

// CheckoutStore is an in-memory checkout.Store.
type CheckoutStore struct {
	mu   sync.Mutex
	rows map[int64]model.ActiveCheckout
}

// NewCheckoutStore builds an empty CheckoutStore.
func NewCheckoutStore() *CheckoutStore {
	return &CheckoutStore{rows: make(map[int64]model.ActiveCheckout)}
}

var _ checkout.Store = (*CheckoutStore)(nil)

func (s *CheckoutStore) Find(_ context.Context, _ *sql.Tx, gaugeID int64) (model.ActiveCheckout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ac, ok := s.rows[gaugeID]
	if !ok {
		return model.ActiveCheckout{}, coreerr.New(coreerr.NotFound, "no active checkout for gauge")
	}
	return ac, nil
}

func (s *CheckoutStore) Insert(_ context.Context, _ *sql.Tx, ac model.ActiveCheckout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[ac.GaugeID] = ac
	return nil
}

func (s *CheckoutStore) Delete(_ context.Context, _ *sql.Tx, gaugeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, gaugeID)
	return nil
}

func (s *CheckoutStore) UpdateUser(_ context.Context, _ *sql.Tx, gaugeID int64, newUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ac, ok := s.rows[gaugeID]
	if !ok {
		return coreerr.New(coreerr.NotFound, "no active checkout for gauge")
	}
	ac.UserID = newUserID
	s.rows[gaugeID] = ac
	return nil
}
