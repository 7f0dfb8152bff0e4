package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/service"
)

func sharedInput(catalogID string) service.CreateSharedCampaignInput {
	return service.CreateSharedCampaignInput{
		CatalogID:      catalogID,
		CampaignName:   "Fall Popcorn",
		CampaignYear:   2026,
		StartDate:      "2026-09-01",
		EndDate:        "2026-10-31",
		UnitType:       "Pack",
		UnitNumber:     158,
		City:           "Springfield",
		State:          "IL",
		CreatorMessage: "Welcome to the sale!",
	}
}

func TestCreateSharedCampaign_RateLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cat := e.catalog(t, alice, true)

	for i := 0; i < 50; i++ {
		_, err := e.svc.CreateSharedCampaign(ctx, alice, sharedInput(cat.CatalogID))
		require.NoError(t, err, "creation %d", i+1)
	}
	_, err := e.svc.CreateSharedCampaign(ctx, alice, sharedInput(cat.CatalogID))
	require.Error(t, err)
	assert.Equal(t, apierr.RateLimitExceeded, apierr.KindOf(err))

	_, err = e.svc.CreateSharedCampaign(ctx, bob, sharedInput(cat.CatalogID))
	require.NoError(t, err, "the limit is per creator")

	mine, err := e.svc.ListMySharedCampaigns(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 50)
}

func TestSharedCampaign_Prefill(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cat := e.catalog(t, alice, true)
	shared, err := e.svc.CreateSharedCampaign(ctx, alice, sharedInput(cat.CatalogID))
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9A-F]{12}$`, shared.SharedCampaignCode)
	assert.True(t, shared.IsActive)

	got, err := e.svc.GetSharedCampaign(ctx, bob, " "+strings.ToLower(shared.SharedCampaignCode)+" ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Welcome to the sale!", got.CreatorMessage)

	p := e.profile(t, bob, "Max")
	c, err := e.svc.CreateCampaign(ctx, bob, service.CreateCampaignInput{
		ProfileID:          p.ProfileID,
		SharedCampaignCode: strings.ToLower(shared.SharedCampaignCode),
		CampaignName:       "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, shared.SharedCampaignCode, c.SharedCampaignCode)
	assert.Equal(t, cat.CatalogID, c.CatalogID)
	assert.Equal(t, "Fall Popcorn", c.CampaignName)
	assert.Equal(t, 2026, c.CampaignYear)
	assert.Equal(t, "2026-09-01", c.StartDate)
	assert.Equal(t, "PACK#158#SPRINGFIELD#IL#FALL POPCORN#2026", c.UnitCampaignKey)

	_, err = e.svc.DeactivateSharedCampaign(ctx, bob, shared.SharedCampaignCode)
	assert.True(t, apierr.IsKind(err, apierr.Forbidden), "only the creator may deactivate")

	off, err := e.svc.DeactivateSharedCampaign(ctx, alice, shared.SharedCampaignCode)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	_, err = e.svc.CreateCampaign(ctx, bob, service.CreateCampaignInput{ProfileID: p.ProfileID, SharedCampaignCode: shared.SharedCampaignCode})
	assert.True(t, apierr.IsKind(err, apierr.BadRequest))

	_, err = e.svc.CreateCampaign(ctx, bob, service.CreateCampaignInput{ProfileID: p.ProfileID, SharedCampaignCode: "NOPE"})
	assert.True(t, apierr.IsKind(err, apierr.BadRequest))
}

func TestCreateSharedCampaign_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cat := e.catalog(t, alice, true)

	in := sharedInput(cat.CatalogID)
	in.UnitNumber = 0
	_, err := e.svc.CreateSharedCampaign(ctx, alice, in)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.Validation))
	assert.Contains(t, err.Error(), "unitNumber")

	_, err = e.svc.CreateSharedCampaign(ctx, alice, sharedInput("CATALOG#missing"))
	assert.True(t, apierr.IsKind(err, apierr.BadRequest))

	assert.Zero(t, e.count(t, e.tables.SharedCampaignsTable, e.tables.CreatorIndex, "createdBy", "ACCOUNT#alice"))
}
