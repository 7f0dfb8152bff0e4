package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/service"
)

func TestCreateOrder_Pricing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")
	cat := e.catalog(t, alice, true)
	c := e.campaign(t, alice, p.ProfileID, cat.CatalogID)

	o, err := e.svc.CreateOrder(ctx, alice, service.CreateOrderInput{
		CampaignID:   c.CampaignID,
		CustomerName: "Neighbor",
		LineItems: []service.LineItemInput{
			{ProductID: cat.Products[0].ProductID, Quantity: 2},
			{ProductID: cat.Products[1].ProductID, Quantity: 3},
		},
		PaymentMethod: " check ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Check", o.PaymentMethod)
	assert.Equal(t, p.ProfileID, o.ProfileID)
	assert.Equal(t, "2026-03-01", o.OrderDate)
	require.Len(t, o.LineItems, 2)
	assert.Equal(t, "Caramel Corn", o.LineItems[0].ProductName)
	assert.InDelta(t, 40.0, o.LineItems[0].Subtotal, 0.001)
	assert.InDelta(t, 46.5, o.LineItems[1].Subtotal, 0.001)
	assert.InDelta(t, 86.5, o.TotalAmount, 0.001)

	orders, err := e.svc.ListOrdersByCampaign(ctx, alice, c.CampaignID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCreateOrder_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")
	cat := e.catalog(t, alice, true)
	c := e.campaign(t, alice, p.ProfileID, cat.CatalogID)
	e.share(t, alice, p.ProfileID, bob, model.PermRead)

	valid := func() service.CreateOrderInput {
		return service.CreateOrderInput{
			CampaignID:    c.CampaignID,
			CustomerName:  "Neighbor",
			LineItems:     []service.LineItemInput{{ProductID: cat.Products[0].ProductID, Quantity: 1}},
			PaymentMethod: "Cash",
		}
	}

	_, err := e.svc.CreateOrder(ctx, bob, valid())
	assert.True(t, apierr.IsKind(err, apierr.Forbidden), "READ cannot create orders")

	in := valid()
	in.LineItems[0].ProductID = "PRODUCT#nope"
	_, err = e.svc.CreateOrder(ctx, alice, in)
	assert.True(t, apierr.IsKind(err, apierr.BadRequest))

	in = valid()
	in.PaymentMethod = "Bitcoin"
	_, err = e.svc.CreateOrder(ctx, alice, in)
	assert.True(t, apierr.IsKind(err, apierr.BadRequest))

	in = valid()
	in.LineItems[0].Quantity = 0
	_, err = e.svc.CreateOrder(ctx, alice, in)
	assert.True(t, apierr.IsKind(err, apierr.Validation))

	in = valid()
	in.CampaignID = "CAMPAIGN#missing"
	_, err = e.svc.CreateOrder(ctx, alice, in)
	assert.True(t, apierr.IsKind(err, apierr.NotFound))
}

func TestCreateOrder_StoredPaymentMethod(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")
	cat := e.catalog(t, alice, true)
	c := e.campaign(t, alice, p.ProfileID, cat.CatalogID)
	e.share(t, alice, p.ProfileID, carol, model.PermWrite)
	_, err := e.svc.CreatePaymentMethod(ctx, alice, service.PaymentMethodInput{Name: "Venmo"})
	require.NoError(t, err)

	o, err := e.svc.CreateOrder(ctx, carol, service.CreateOrderInput{
		CampaignID:    c.CampaignID,
		CustomerName:  "Neighbor",
		LineItems:     []service.LineItemInput{{ProductID: cat.Products[0].ProductID, Quantity: 1}},
		PaymentMethod: "venmo",
	})
	require.NoError(t, err, "the profile owner's methods apply to shared sellers")
	assert.Equal(t, "Venmo", o.PaymentMethod)
}

func TestUpdateOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")
	cat := e.catalog(t, alice, true)
	c := e.campaign(t, alice, p.ProfileID, cat.CatalogID)
	o := e.order(t, alice, c, cat.Products[0].ProductID, 1)

	items := []service.LineItemInput{{ProductID: cat.Products[1].ProductID, Quantity: 2}}
	phone := "555-0100"
	updated, err := e.svc.UpdateOrder(ctx, alice, service.UpdateOrderInput{
		CampaignID:    c.CampaignID,
		OrderID:       o.OrderID,
		LineItems:     &items,
		CustomerPhone: &phone,
	})
	require.NoError(t, err)
	assert.InDelta(t, 31.0, updated.TotalAmount, 0.001)
	assert.Equal(t, phone, updated.CustomerPhone)
	assert.Equal(t, "Neighbor", updated.CustomerName)

	_, err = e.svc.UpdateOrder(ctx, alice, service.UpdateOrderInput{CampaignID: c.CampaignID, OrderID: "ORDER#missing", CustomerPhone: &phone})
	assert.True(t, apierr.IsKind(err, apierr.NotFound))
}

func TestDeleteOrder_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")
	cat := e.catalog(t, alice, true)
	c := e.campaign(t, alice, p.ProfileID, cat.CatalogID)
	o := e.order(t, alice, c, cat.Products[0].ProductID, 1)
	e.share(t, alice, p.ProfileID, bob, model.PermRead)

	_, err := e.svc.DeleteOrder(ctx, bob, c.CampaignID, o.OrderID)
	assert.True(t, apierr.IsKind(err, apierr.Forbidden))

	for i := 0; i < 2; i++ {
		ok, err := e.svc.DeleteOrder(ctx, alice, c.CampaignID, o.OrderID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := e.svc.DeleteOrder(ctx, alice, c.CampaignID, "ORDER#never-existed")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.svc.GetOrder(ctx, alice, c.CampaignID, o.OrderID)
	assert.True(t, apierr.IsKind(err, apierr.NotFound))
}

func TestGetOrder_Visibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")
	cat := e.catalog(t, alice, true)
	c := e.campaign(t, alice, p.ProfileID, cat.CatalogID)
	o := e.order(t, alice, c, cat.Products[0].ProductID, 1)
	e.share(t, alice, p.ProfileID, bob, model.PermRead)

	got, err := e.svc.GetOrder(ctx, bob, c.CampaignID, o.OrderID)
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = e.svc.GetOrder(ctx, dave, c.CampaignID, o.OrderID)
	require.NoError(t, err)
	assert.Nil(t, got)

	list, err := e.svc.ListOrdersByCampaign(ctx, dave, c.CampaignID)
	require.NoError(t, err)
	assert.Nil(t, list)
}
