package app

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NgumtsaB/web-programming-project/internal/store"
	"github.com/NgumtsaB/web-programming-project/pkg/domain"
)

const bestSellersCap = 100

// ListOrders returns every order for admins, own orders otherwise.
func (a *App) ListOrders(user domain.User) ([]domain.Order, error) {
	doc, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleAdmin {
		return doc.Orders, nil
	}
	out := make([]domain.Order, 0)
	for _, o := range doc.Orders {
		if o.UserID == user.ID {
			out = append(out, o)
		}
	}
	return out, nil
}

// PlaceOrder runs the multi-collection order transaction against one
// document snapshot: validate every line item first, then deduct stock,
// append the order, and push per-unit best-seller entries, persisted in
// a single save. Validation failure leaves the document untouched.
func (a *App) PlaceOrder(userID int, items []domain.OrderItem, address map[string]any) (domain.Order, error) {
	if len(items) == 0 {
		return domain.Order{}, ErrNoItems
	}
	if address == nil {
		address = map[string]any{}
	}
	// Missing quantity defaults to one unit.
	normalized := make([]domain.OrderItem, len(items))
	for i, it := range items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		normalized[i] = domain.OrderItem{ProductID: it.ProductID, Quantity: qty}
	}

	doc, err := a.store.Load()
	if err != nil {
		return domain.Order{}, err
	}

	index := make(map[int]int, len(doc.Catalogue))
	for i, p := range doc.Catalogue {
		index[p.ID] = i
	}

	// Validation pass: no mutation until every item checks out.
	total := decimal.Zero
	for _, it := range normalized {
		i, ok := index[it.ProductID]
		if !ok {
			return domain.Order{}, fmt.Errorf("product %d: %w", it.ProductID, ErrProductNotFound)
		}
		p := doc.Catalogue[i]
		if p.Stock < it.Quantity {
			return domain.Order{}, fmt.Errorf("product %d: %w", it.ProductID, ErrInsufficientStock)
		}
		price := decimal.NewFromFloat(p.Price)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	// Commit pass: deduct stock, floored at zero.
	for _, it := range normalized {
		p := &doc.Catalogue[index[it.ProductID]]
		p.Stock -= it.Quantity
		if p.Stock < 0 {
			p.Stock = 0
		}
	}

	order := domain.Order{
		ID:        store.NextID(doc.Orders, func(o domain.Order) int { return o.ID }),
		UserID:    userID,
		Status:    domain.OrderStatusPending,
		Items:     normalized,
		Total:     total.Round(2).InexactFloat64(),
		Address:   address,
		CreatedAt: time.Now().Unix(),
	}
	doc.Orders = append(doc.Orders, order)

	// One best-seller entry per unit purchased, newest at the front.
	for _, it := range normalized {
		for n := 0; n < it.Quantity; n++ {
			doc.Stats.BestSellers = append([]int{it.ProductID}, doc.Stats.BestSellers...)
		}
	}
	if len(doc.Stats.BestSellers) > bestSellersCap {
		doc.Stats.BestSellers = doc.Stats.BestSellers[:bestSellersCap]
	}

	if err := a.store.Save(doc); err != nil {
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}
	return order, nil
}

// OrderPatch lists the mutable order fields; nil means "leave as is".
// This replaces the original's blind payload merge with an explicit
// whitelist.
type OrderPatch struct {
	Status  *string
	Items   *[]domain.OrderItem
	Total   *float64
	Address *map[string]any
}

// UpdateOrder applies a whitelist patch to an existing order.
func (a *App) UpdateOrder(id int, patch OrderPatch) (domain.Order, error) {
	doc, err := a.store.Load()
	if err != nil {
		return domain.Order{}, err
	}
	for i := range doc.Orders {
		if doc.Orders[i].ID != id {
			continue
		}
		o := &doc.Orders[i]
		if patch.Status != nil {
			o.Status = *patch.Status
		}
		if patch.Items != nil {
			o.Items = *patch.Items
		}
		if patch.Total != nil {
			o.Total = *patch.Total
		}
		if patch.Address != nil {
			o.Address = *patch.Address
		}
		if err := a.store.Save(doc); err != nil {
			return domain.Order{}, fmt.Errorf("save order: %w", err)
		}
		return *o, nil
	}
	return domain.Order{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
}

// DeleteOrder removes an order. Removing an unknown id is a no-op.
func (a *App) DeleteOrder(id int) error {
	doc, err := a.store.Load()
	if err != nil {
		return err
	}
	kept := doc.Orders[:0]
	for _, o := range doc.Orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	doc.Orders = kept
	if err := a.store.Save(doc); err != nil {
		return fmt.Errorf("save orders: %w", err)
	}
	return nil
}
