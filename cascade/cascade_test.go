package cascade_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/fundraiser/cascade"
	"github.com/jacentio/fundraiser/internal/localstore"
	"github.com/jacentio/fundraiser/store"
)

type fixture struct {
	backend  *localstore.Store
	cfg      store.Config
	registry *store.Registry
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := store.DefaultConfig()
	backend, err := localstore.New(localstore.Options{}, localstore.Layout(cfg)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return &fixture{backend: backend, cfg: cfg, registry: store.DefaultRegistry(cfg)}
}

func (f *fixture) put(t *testing.T, table string, item store.Item) {
	t.Helper()
	require.NoError(t, f.backend.PutItem(context.Background(), table, item, store.Condition{}))
}

// seed stores a profile with 2 shares, 1 invite and 1 campaign with 2 orders.
func (f *fixture) seed(t *testing.T) {
	f.put(t, f.cfg.ProfilesTable, store.Item{"profileId": s("PROFILE#p1"), "ownerAccountId": s("ACCOUNT#owner")})
	f.put(t, f.cfg.SharesTable, store.Item{"profileId": s("PROFILE#p1"), "targetAccountId": s("ACCOUNT#a")})
	f.put(t, f.cfg.SharesTable, store.Item{"profileId": s("PROFILE#p1"), "targetAccountId": s("ACCOUNT#b")})
	f.put(t, f.cfg.InvitesTable, store.Item{"inviteCode": s("CODE000001"), "profileId": s("PROFILE#p1")})
	f.put(t, f.cfg.CampaignsTable, store.Item{"campaignId": s("CAMPAIGN#c1"), "profileId": s("PROFILE#p1")})
	f.put(t, f.cfg.OrdersTable, store.Item{"campaignId": s("CAMPAIGN#c1"), "orderId": s("ORDER#1"), "profileId": s("PROFILE#p1")})
	f.put(t, f.cfg.OrdersTable, store.Item{"campaignId": s("CAMPAIGN#c1"), "orderId": s("ORDER#2"), "profileId": s("PROFILE#p1")})

	// Unrelated profile's share must survive.
	f.put(t, f.cfg.SharesTable, store.Item{"profileId": s("PROFILE#p2"), "targetAccountId": s("ACCOUNT#a")})
}

func (f *fixture) count(t *testing.T, table, index, attr, value string) int {
	t.Helper()
	n, err := f.backend.Count(context.Background(), store.QueryInput{TableName: table, IndexName: index, KeyAttr: attr, KeyValue: value})
	require.NoError(t, err)
	return n
}

func TestDeleteOne_RemovesOnePerCall(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	d := cascade.New(f.backend, f.registry, cascade.Options{})
	ctx := context.Background()

	shares, _ := f.registry.Lookup("profile", "share")
	invites, _ := f.registry.Lookup("profile", "invite")
	campaigns, _ := f.registry.Lookup("profile", "campaign")
	orders, _ := f.registry.Lookup("campaign", "order")

	// Orders of the campaign, one per call.
	for want := 1; want >= 0; want-- {
		deleted, err := d.DeleteOne(ctx, orders, "CAMPAIGN#c1")
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Equal(t, want, f.count(t, f.cfg.OrdersTable, "", "campaignId", "CAMPAIGN#c1"))
	}
	deleted, err := d.DeleteOne(ctx, orders, "CAMPAIGN#c1")
	require.NoError(t, err)
	assert.False(t, deleted, "empty set short-circuits")

	for _, tc := range []struct {
		rel   store.Relationship
		table string
		index string
		n     int
	}{
		{shares, f.cfg.SharesTable, "", 2},
		{invites, f.cfg.InvitesTable, f.cfg.ProfileIndex, 1},
		{campaigns, f.cfg.CampaignsTable, f.cfg.ProfileIndex, 1},
	} {
		for remaining := tc.n - 1; remaining >= 0; remaining-- {
			deleted, err := d.DeleteOne(ctx, tc.rel, "PROFILE#p1")
			require.NoError(t, err)
			assert.True(t, deleted)
			assert.Equal(t, remaining, f.count(t, tc.table, tc.index, "profileId", "PROFILE#p1"), tc.rel.ChildType)
		}
		deleted, err := d.DeleteOne(ctx, tc.rel, "PROFILE#p1")
		require.NoError(t, err)
		assert.False(t, deleted, tc.rel.ChildType)
	}

	require.NoError(t, f.backend.DeleteItem(ctx, f.cfg.ProfilesTable, store.PK{"profileId": s("PROFILE#p1")}, store.AttributeExists("profileId")))
	assert.Equal(t, 1, f.count(t, f.cfg.SharesTable, "", "profileId", "PROFILE#p2"))
}

func TestDeleteAll_DrainsEveryCollection(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	d := cascade.New(f.backend, f.registry, cascade.Options{})

	report, err := d.DeleteAll(context.Background(), "profile", "PROFILE#p1")
	require.NoError(t, err)
	assert.Equal(t, cascade.Report{"share": 2, "invite": 1, "campaign": 1}, report)

	assert.Zero(t, f.count(t, f.cfg.SharesTable, "", "profileId", "PROFILE#p1"))
	assert.Zero(t, f.count(t, f.cfg.InvitesTable, f.cfg.ProfileIndex, "profileId", "PROFILE#p1"))
	assert.Zero(t, f.count(t, f.cfg.CampaignsTable, f.cfg.ProfileIndex, "profileId", "PROFILE#p1"))
	assert.Zero(t, f.count(t, f.cfg.OrdersTable, "", "campaignId", "CAMPAIGN#c1"), "campaign orders cascade")
	assert.Equal(t, 1, f.count(t, f.cfg.SharesTable, "", "profileId", "PROFILE#p2"))

	report, err = d.DeleteAll(context.Background(), "profile", "PROFILE#p1")
	require.NoError(t, err, "running again is harmless")
	assert.Equal(t, cascade.Report{"share": 0, "invite": 0, "campaign": 0}, report)
}

func TestDeleteDependents_IterationCap(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	d := cascade.New(f.backend, f.registry, cascade.Options{MaxIterations: 1})

	shares, _ := f.registry.Lookup("profile", "share")
	n, err := d.DeleteDependents(context.Background(), shares, "PROFILE#p1")
	assert.ErrorIs(t, err, cascade.ErrCascadeIncomplete)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.count(t, f.cfg.SharesTable, "", "profileId", "PROFILE#p1"))
}

// laggingIndex keeps returning deleted items from its queries, the way a
// global secondary index can before it catches up with the table.
type laggingIndex struct {
	store.Backend
	ghosts []store.Item
}

func (b *laggingIndex) Query(ctx context.Context, in store.QueryInput) (*store.QueryResult, error) {
	result, err := b.Backend.Query(ctx, in)
	if err != nil {
		return nil, err
	}
	items := append([]store.Item{}, b.ghosts...)
	b.ghosts = append(b.ghosts, result.Items...)
	return &store.QueryResult{Items: append(items, result.Items...)}, nil
}

func TestDeleteDependents_StaleIndexCountsOnce(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	backend := &laggingIndex{Backend: f.backend}
	d := cascade.New(backend, f.registry, cascade.Options{MaxIterations: 3})

	shares, _ := f.registry.Lookup("profile", "share")
	n, err := d.DeleteDependents(context.Background(), shares, "PROFILE#p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, f.count(t, f.cfg.SharesTable, "", "profileId", "PROFILE#p1"))
}

type failingQuery struct {
	store.Backend
	table string
}

func (b failingQuery) Query(ctx context.Context, in store.QueryInput) (*store.QueryResult, error) {
	if in.TableName == b.table {
		return nil, errors.New("throttled")
	}
	return b.Backend.Query(ctx, in)
}

func TestDeleteAll_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	d := cascade.New(failingQuery{Backend: f.backend, table: f.cfg.InvitesTable}, f.registry, cascade.Options{})

	report, err := d.DeleteAll(context.Background(), "profile", "PROFILE#p1")
	require.Error(t, err)
	assert.Equal(t, 2, report["share"])
	assert.Equal(t, 1, report["campaign"], "campaigns still cascade after invites fail")
	assert.Equal(t, 1, f.count(t, f.cfg.InvitesTable, f.cfg.ProfileIndex, "profileId", "PROFILE#p1"))
}

func TestDeleteFirst_Empty(t *testing.T) {
	f := newFixture(t)
	d := cascade.New(f.backend, f.registry, cascade.Options{})
	shares, _ := f.registry.Lookup("profile", "share")

	deleted, err := d.DeleteFirst(context.Background(), shares, nil)
	assert.NoError(t, err)
	assert.False(t, deleted)
}
