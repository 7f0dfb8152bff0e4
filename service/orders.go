package service

import (
	"context"
	"math"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// LineItemInput orders quantity units of a catalog product.
type LineItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=10000"`
}

// CreateOrderInput is the payload of CreateOrder.
type CreateOrderInput struct {
	CampaignID    string          `json:"campaignId" validate:"required"`
	CustomerName  string          `json:"customerName" validate:"required,max=200"`
	CustomerPhone string          `json:"customerPhone" validate:"omitempty,max=40"`
	LineItems     []LineItemInput `json:"lineItems" validate:"required,min=1,dive"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
	OrderDate     string          `json:"orderDate" validate:"omitempty,datetime=2006-01-02"`
	Notes         string          `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateOrderInput changes the non-nil fields of an order.
type UpdateOrderInput struct {
	CampaignID    string           `json:"campaignId" validate:"required"`
	OrderID       string           `json:"orderId" validate:"required"`
	CustomerName  *string          `json:"customerName" validate:"omitempty,min=1,max=200"`
	CustomerPhone *string          `json:"customerPhone" validate:"omitempty,max=40"`
	LineItems     *[]LineItemInput `json:"lineItems" validate:"omitempty,min=1,dive"`
	PaymentMethod *string          `json:"paymentMethod" validate:"omitempty,min=1"`
	Notes         *string          `json:"notes" validate:"omitempty,max=2000"`
}

// price builds line items from the campaign's catalog and returns the total.
func (s *Service) price(ctx context.Context, campaign *model.Campaign, in []LineItemInput) ([]model.LineItem, float64, error) {
	catalog, err := s.repo.GetCatalog(ctx, ids.Catalog(campaign.CatalogID))
	if err != nil {
		return nil, 0, err
	}
	if catalog == nil {
		return nil, 0, apierr.BadRequestf("campaign catalog %s not found", campaign.CatalogID)
	}

	items := make([]model.LineItem, 0, len(in))
	total := 0.0
	for _, li := range in {
		product, ok := catalog.Product(ids.Product(li.ProductID))
		if !ok {
			return nil, 0, apierr.BadRequestf("product %s is not in the campaign catalog", ids.Product(li.ProductID))
		}
		subtotal := roundCents(product.Price * float64(li.Quantity))
		items = append(items, model.LineItem{
			ProductID:    product.ProductID,
			ProductName:  product.ProductName,
			Quantity:     li.Quantity,
			PricePerUnit: product.Price,
			Subtotal:     subtotal,
		})
		total += subtotal
	}
	return items, roundCents(total), nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// paymentMethod resolves name against the methods the profile owner accepts
// and returns its stored spelling.
func (s *Service) paymentMethod(ctx context.Context, profileID, name string) (string, error) {
	if reserved, ok := reservedMethod(name); ok {
		return reserved, nil
	}
	profile, err := s.repo.GetProfile(ctx, ids.Profile(profileID))
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", apierr.NotFoundf("profile not found")
	}
	account, err := s.repo.GetAccount(ctx, ids.Account(profile.OwnerAccountID))
	if err != nil {
		return "", err
	}
	if account != nil {
		if i := findMethod(account.Preferences.PaymentMethods, name); i >= 0 {
			return account.Preferences.PaymentMethods[i].Name, nil
		}
	}
	return "", apierr.BadRequestf("payment method %q is not accepted", name)
}

// CreateOrder records an order on a campaign the caller can write.
func (s *Service) CreateOrder(ctx context.Context, caller access.Identity, in CreateOrderInput) (*model.Order, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	campaign, _, err := s.access.Campaign(ctx, in.CampaignID, caller, access.Write)
	if err != nil {
		return nil, err
	}
	items, total, err := s.price(ctx, campaign, in.LineItems)
	if err != nil {
		return nil, err
	}
	method, err := s.paymentMethod(ctx, campaign.ProfileID, in.PaymentMethod)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		CampaignID:    campaign.CampaignID,
		OrderID:       s.ids.NewID(ids.OrderPrefix),
		ProfileID:     ids.Profile(campaign.ProfileID),
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		LineItems:     items,
		PaymentMethod: method,
		TotalAmount:   total,
		OrderDate:     in.OrderDate,
		Notes:         in.Notes,
		CreatedAt:     timestamp(now),
		UpdatedAt:     timestamp(now),
	}
	if order.OrderDate == "" {
		order.OrderDate = now.Format("2006-01-02")
	}

	err = s.repo.Put(ctx, s.repo.Tables().OrdersTable, order, store.AttributeNotExists("orderId"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.Conflict, "order id already exists")
	}
	return order, nil
}

// UpdateOrder changes the non-nil fields of an order the caller can write.
// New line items are re-priced from the catalog.
func (s *Service) UpdateOrder(ctx context.Context, caller access.Identity, in UpdateOrderInput) (*model.Order, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	order, _, err := s.access.Order(ctx, in.CampaignID, in.OrderID, caller, access.Write)
	if err != nil {
		return nil, err
	}

	upd := store.Update{Set: map[string]any{"updatedAt": timestamp(s.now())}}
	if in.CustomerName != nil {
		upd.Set["customerName"] = *in.CustomerName
	}
	setOptional(&upd, "customerPhone", in.CustomerPhone)
	setOptional(&upd, "notes", in.Notes)
	if in.LineItems != nil {
		campaign, err := s.repo.GetCampaign(ctx, order.CampaignID)
		if err != nil {
			return nil, err
		}
		if campaign == nil {
			return nil, apierr.NotFoundf("campaign not found")
		}
		items, total, err := s.price(ctx, campaign, *in.LineItems)
		if err != nil {
			return nil, err
		}
		upd.Set["lineItems"] = items
		upd.Set["totalAmount"] = total
	}
	if in.PaymentMethod != nil {
		method, err := s.paymentMethod(ctx, order.ProfileID, *in.PaymentMethod)
		if err != nil {
			return nil, err
		}
		upd.Set["paymentMethod"] = method
	}

	item, err := s.repo.Backend().UpdateItem(ctx, s.repo.Tables().OrdersTable,
		repo.OrderKey(order.CampaignID, order.OrderID), upd, store.AttributeExists("orderId"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.NotFound, "order not found")
	}
	return model.FromItem[model.Order](item)
}

// DeleteOrder removes an order from a campaign the caller can write.
// Deleting an order that does not exist succeeds.
func (s *Service) DeleteOrder(ctx context.Context, caller access.Identity, campaignID, orderID string) (bool, error) {
	campaign, _, err := s.access.Campaign(ctx, campaignID, caller, access.Write)
	if err != nil {
		return false, err
	}
	err = s.repo.Backend().DeleteItem(ctx, s.repo.Tables().OrdersTable,
		repo.OrderKey(campaign.CampaignID, ids.Order(orderID)), store.Condition{})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetOrder returns an order the caller can read. A missing order is
// NotFound; one the caller cannot read is nil.
func (s *Service) GetOrder(ctx context.Context, caller access.Identity, campaignID, orderID string) (*model.Order, error) {
	order, _, err := s.access.Order(ctx, campaignID, orderID, caller, access.Read)
	if apierr.IsKind(err, apierr.Forbidden) {
		return nil, nil
	}
	return order, err
}

// ListOrdersByCampaign returns the orders of a campaign the caller can read.
func (s *Service) ListOrdersByCampaign(ctx context.Context, caller access.Identity, campaignID string) ([]model.Order, error) {
	campaign, _, err := s.access.Campaign(ctx, campaignID, caller, access.Read)
	if apierr.IsKind(err, apierr.Forbidden) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByCampaign(ctx, campaign.CampaignID)
}
