package repository

import (
	"context"

	repo "app/internal/repository"
	"app/internal/usecase"
)

// usecase.CartProviderの実装。カート編集系は持たない。
type CartProviderGorm struct {
	carts repo.CartRepository
}

func NewCartProviderGorm(carts repo.CartRepository) *CartProviderGorm {
	return &CartProviderGorm{carts: carts}
}

func (p *CartProviderGorm) GetCheckoutItems(ctx context.Context, cartRef string) ([]usecase.CheckoutItem, error) {
	cart, err := p.carts.FindActiveByRef(ctx, cartRef)
	if err != nil {
		return nil, err
	}
	items, err := p.carts.ListItemsByCartID(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	out := make([]usecase.CheckoutItem, 0, len(items))
	for _, it := range items {
		out = append(out, usecase.CheckoutItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPriceSnapshot,
		})
	}
	return out, nil
}

func (p *CartProviderGorm) MarkCheckedOut(ctx context.Context, cartRef string) error {
	cart, err := p.carts.FindActiveByRef(ctx, cartRef)
	if err != nil {
		return err
	}
	return p.carts.MarkCheckedOut(ctx, cart.ID)
}
