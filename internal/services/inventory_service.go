package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"stockkeeper/internal/domain"
	"stockkeeper/internal/repos"
	"stockkeeper/internal/validate"
)

// HistoryPageSize is how many log entries the history page shows.
const HistoryPageSize = 2000

var (
	ErrMissingSKU        = errors.New("sku is required")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
)

// Syncer schedules a background mirror of the store.
type Syncer interface {
	Trigger()
}

// Transaction is one stock movement. Name and Location are optional
// overrides; Actor defaults to domain.AnonymousActor.
type Transaction struct {
	SKU      string
	Delta    int
	Inbound  bool
	Actor    string
	Name     string
	Location string
}

type InventoryService struct {
	Products *repos.ProductRepo
	Logs     *repos.LogRepo
	Sync     Syncer

	locks keyedMutex
}

func NewInventoryService(products *repos.ProductRepo, logs *repos.LogRepo, sync Syncer) *InventoryService {
	return &InventoryService{Products: products, Logs: logs, Sync: sync}
}

// PlaceholderName is given to products first seen through a transaction.
func PlaceholderName(sku string) string { return "Product " + sku }

// ApplyTransaction moves stock in or out of a SKU, creating the product on
// first inbound, and records the movement. Concurrent calls for the same SKU
// run one at a time.
func (s *InventoryService) ApplyTransaction(tx Transaction) (int, error) {
	sku, ok := validate.SKU(tx.SKU)
	if !ok {
		return 0, ErrMissingSKU
	}
	if tx.Delta < 0 {
		tx.Delta = 0
	}

	unlock := s.locks.Lock(sku)
	defer unlock()

	p, err := s.Products.Get(sku)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p = domain.Product{SKU: sku, Name: strings.TrimSpace(tx.Name)}
		if p.Name == "" {
			p.Name = PlaceholderName(sku)
		}
	case err != nil:
		return 0, fmt.Errorf("reading %s: %w", sku, err)
	}
	if loc := strings.TrimSpace(tx.Location); loc != "" {
		p.Location = loc
	}

	action := domain.ActionInbound
	if tx.Inbound {
		p.Quantity += tx.Delta
	} else {
		if p.Quantity < tx.Delta {
			return p.Quantity, ErrInsufficientStock
		}
		p.Quantity -= tx.Delta
		action = domain.ActionOutbound
	}

	if err := s.Products.Upsert(p); err != nil {
		return 0, fmt.Errorf("saving %s: %w", sku, err)
	}
	if err := s.Logs.Append(domain.LogEntry{
		User:     actorOrAnonymous(tx.Actor),
		Action:   action,
		SKU:      sku,
		Quantity: tx.Delta,
		Balance:  p.Quantity,
	}); err != nil {
		return p.Quantity, fmt.Errorf("logging %s: %w", sku, err)
	}

	s.trigger()
	return p.Quantity, nil
}

func (s *InventoryService) List() ([]domain.Product, error) { return s.Products.List() }

func (s *InventoryService) Get(sku string) (domain.Product, error) {
	p, err := s.Products.Get(strings.TrimSpace(sku))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrProductNotFound
	}
	return p, err
}

// Create writes p, replacing every field of an existing SKU.
func (s *InventoryService) Create(p domain.Product) error {
	sku, ok := validate.SKU(p.SKU)
	if !ok {
		return ErrMissingSKU
	}
	p.SKU = sku
	if p.Quantity < 0 {
		p.Quantity = 0
	}

	unlock := s.locks.Lock(sku)
	err := s.Products.Upsert(p)
	unlock()
	if err != nil {
		return err
	}
	s.trigger()
	return nil
}

// Update edits an existing product. The stored image is kept unless
// imageChanged is set.
func (s *InventoryService) Update(p domain.Product, imageChanged bool) error {
	sku, ok := validate.SKU(p.SKU)
	if !ok {
		return ErrMissingSKU
	}
	p.SKU = sku
	if p.Quantity < 0 {
		p.Quantity = 0
	}

	unlock := s.locks.Lock(sku)
	defer unlock()

	cur, err := s.Products.Get(sku)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if !imageChanged {
		p.Image = cur.Image
	}
	if _, err := s.Products.Update(p); err != nil {
		return err
	}
	s.trigger()
	return nil
}

// Delete removes a SKU and records a delete entry. Its history is kept.
func (s *InventoryService) Delete(sku, actor string) error {
	sku = strings.TrimSpace(sku)

	unlock := s.locks.Lock(sku)
	defer unlock()

	if err := s.Products.Delete(sku); err != nil {
		return err
	}
	if err := s.Logs.Append(domain.LogEntry{
		User:   actorOrAnonymous(actor),
		Action: domain.ActionDelete,
		SKU:    sku,
	}); err != nil {
		return fmt.Errorf("logging delete of %s: %w", sku, err)
	}
	s.trigger()
	return nil
}

// History returns the newest entries first.
func (s *InventoryService) History(limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = HistoryPageSize
	}
	return s.Logs.Recent(limit)
}

func (s *InventoryService) ProductHistory(sku string) ([]domain.LogEntry, error) {
	return s.Logs.BySKU(strings.TrimSpace(sku))
}

func (s *InventoryService) trigger() {
	if s.Sync != nil {
		s.Sync.Trigger()
	}
}

func actorOrAnonymous(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return domain.AnonymousActor
}
