package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/fundraiser/internal/localstore"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

func newRepo(t *testing.T) *repo.Repo {
	t.Helper()
	tables := store.DefaultConfig()
	backend, err := localstore.New(localstore.Options{}, localstore.Layout(tables)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return repo.New(backend, tables)
}

func TestGet_MissingIsNil(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	p, err := r.GetProfile(ctx, "PROFILE#missing")
	require.NoError(t, err)
	assert.Nil(t, p)

	o, err := r.GetOrder(ctx, "CAMPAIGN#missing", "ORDER#missing")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestPut_Condition(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	profile := model.SellerProfile{ProfileID: "PROFILE#p1", OwnerAccountID: "ACCOUNT#alice", SellerName: "Scout"}

	require.NoError(t, r.Put(ctx, r.Tables().ProfilesTable, profile, store.AttributeNotExists("profileId")))
	err := r.Put(ctx, r.Tables().ProfilesTable, profile, store.AttributeNotExists("profileId"))
	assert.True(t, errors.Is(err, store.ErrConditionFailed))

	got, err := r.GetProfile(ctx, "PROFILE#p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Scout", got.SellerName)

	owned, err := r.ListProfilesByOwner(ctx, "ACCOUNT#alice")
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestCatalogQueries(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	table := r.Tables().CatalogsTable

	put := func(id string, public, deleted bool) {
		c := model.Catalog{CatalogID: id, OwnerAccountID: "ACCOUNT#alice", CatalogName: id, IsDeleted: deleted}
		c.SetPublic(public)
		require.NoError(t, r.Put(ctx, table, c, store.Condition{}))
	}
	put("CATALOG#public", true, false)
	put("CATALOG#private", false, false)
	put("CATALOG#gone", true, true)

	public, err := r.ListPublicCatalogs(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "CATALOG#public", public[0].CatalogID)

	mine, err := r.ListCatalogsByOwner(ctx, "ACCOUNT#alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2, "soft-deleted catalogs are hidden")
}

func TestCatalogInUse(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	inUse, err := r.CatalogInUse(ctx, "CATALOG#c1")
	require.NoError(t, err)
	assert.False(t, inUse)

	campaign := model.Campaign{CampaignID: "CAMPAIGN#1", ProfileID: "PROFILE#p1", CatalogID: "CATALOG#c1", CampaignName: "Fall"}
	require.NoError(t, r.Put(ctx, r.Tables().CampaignsTable, campaign, store.Condition{}))

	inUse, err = r.CatalogInUse(ctx, "CATALOG#c1")
	require.NoError(t, err)
	assert.True(t, inUse)

	byProfile, err := r.ListCampaignsByProfile(ctx, "PROFILE#p1")
	require.NoError(t, err)
	assert.Len(t, byProfile, 1)
}

func TestShareQueries(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	table := r.Tables().SharesTable

	for _, target := range []string{"ACCOUNT#bob", "ACCOUNT#carol"} {
		share := model.Share{ProfileID: "PROFILE#p1", TargetAccountID: target, ShareID: "SHARE#" + target, Permissions: []string{"READ"}}
		require.NoError(t, r.Put(ctx, table, share, store.Condition{}))
	}

	byProfile, err := r.ListSharesByProfile(ctx, "PROFILE#p1")
	require.NoError(t, err)
	assert.Len(t, byProfile, 2)

	byTarget, err := r.ListSharesByTarget(ctx, "ACCOUNT#bob")
	require.NoError(t, err)
	require.Len(t, byTarget, 1)
	assert.Equal(t, []string{"READ"}, byTarget[0].Permissions)

	share, err := r.GetShare(ctx, "PROFILE#p1", "ACCOUNT#carol")
	require.NoError(t, err)
	require.NotNil(t, share)
	assert.Equal(t, "SHARE#ACCOUNT#carol", share.ShareID)
}

func TestKeys(t *testing.T) {
	assert.Len(t, repo.OrderKey("CAMPAIGN#1", "ORDER#1"), 2)
	assert.Len(t, repo.ShareKey("PROFILE#1", "ACCOUNT#a"), 2)
	assert.Contains(t, repo.InviteKey("CODE"), "inviteCode")
	assert.Contains(t, repo.SharedCampaignKey("ABC"), "sharedCampaignCode")
}
