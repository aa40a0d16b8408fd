package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/types"
	"tradebook/pkg/logger"
)

// Service provides the atomic quantity operations of the stock ledger.
// Transactions are managed by the caller (the bill service opens one
// transaction per bill mutation); every operation here reads the item row
// with a lock, so concurrent callers on the same item serialize.
type Service struct {
	repo Repository
}

// NewService creates a new stock ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Increase adds qty to the item, creating it at zero if absent.
// Unit is updated when non-empty.
func (s *Service) Increase(ctx context.Context, name string, qty types.Quantity, unit string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("item", name)
	}

	item, found, err := s.repo.GetForUpdate(ctx, name)
	if err != nil {
		return fmt.Errorf("get item %q: %w", name, err)
	}
	if !found {
		item = Item{Name: name}
	}

	item.Quantity += qty
	if unit != "" {
		item.Unit = unit
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert item %q: %w", name, err)
	}

	logger.Debug(ctx, "stock increased", "item", name, "qty", qty, "balance", item.Quantity)
	return nil
}

// Decrease subtracts qty from the item. Fails with InsufficientStock when
// the current quantity is smaller than qty; a sale never drives stock negative.
func (s *Service) Decrease(ctx context.Context, name string, qty types.Quantity) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("item", name)
	}
	return s.Adjust(ctx, name, qty.Neg())
}

// Adjust applies a signed quantity delta. Fails with InsufficientStock if the
// resulting quantity would go negative. A bill update translates into exactly
// one net Adjust per item, which keeps the rename-vs-requantify branches from
// drifting apart.
func (s *Service) Adjust(ctx context.Context, name string, delta types.Quantity) error {
	if err := validateName(name); err != nil {
		return err
	}
	if delta.IsZero() {
		return nil
	}

	item, found, err := s.repo.GetForUpdate(ctx, name)
	if err != nil {
		return fmt.Errorf("get item %q: %w", name, err)
	}
	if !found {
		item = Item{Name: name}
	}

	next := item.Quantity + delta
	if next.IsNegative() {
		return apperror.NewInsufficientStock(name, delta.Neg().String(), item.Quantity.String())
	}

	item.Quantity = next
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert item %q: %w", name, err)
	}

	logger.Debug(ctx, "stock adjusted", "item", name, "delta", delta, "balance", next)
	return nil
}

// SetAbsolute is an administrative override of the item quantity.
// Fails with InvalidQuantity when qty is negative.
func (s *Service) SetAbsolute(ctx context.Context, name string, qty types.Quantity, unit string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if qty.IsNegative() {
		return apperror.NewInvalidQuantity(name, qty.String())
	}

	item, found, err := s.repo.GetForUpdate(ctx, name)
	if err != nil {
		return fmt.Errorf("get item %q: %w", name, err)
	}
	if !found {
		item = Item{Name: name}
	}

	prev := item.Quantity
	item.Quantity = qty
	if unit != "" {
		item.Unit = unit
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert item %q: %w", name, err)
	}

	logger.Info(ctx, "stock set absolute", "item", name, "from", prev, "to", qty)
	return nil
}

// SetLowStockThreshold updates the low-stock flagging threshold.
func (s *Service) SetLowStockThreshold(ctx context.Context, name string, threshold types.Quantity) error {
	if err := validateName(name); err != nil {
		return err
	}
	if threshold.IsNegative() {
		return apperror.NewInvalidQuantity(name, threshold.String())
	}

	item, found, err := s.repo.GetForUpdate(ctx, name)
	if err != nil {
		return fmt.Errorf("get item %q: %w", name, err)
	}
	if !found {
		return apperror.NewNotFound("stock item", name)
	}

	item.LowStockAt = threshold
	if err := s.repo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert item %q: %w", name, err)
	}
	return nil
}

// Get returns the item or NotFound.
func (s *Service) Get(ctx context.Context, name string) (Item, error) {
	if err := validateName(name); err != nil {
		return Item{}, err
	}
	return s.repo.Get(ctx, name)
}

// Quantity returns the current quantity, zero for unknown items.
func (s *Service) Quantity(ctx context.Context, name string) (types.Quantity, error) {
	item, err := s.repo.Get(ctx, name)
	if err != nil {
		if apperror.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return item.Quantity, nil
}

// List returns all stock items.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx)
}

// ListLowStock returns items at or below their threshold.
func (s *Service) ListLowStock(ctx context.Context) ([]Item, error) {
	return s.repo.ListLowStock(ctx)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.NewValidation("item name is required")
	}
	return nil
}
