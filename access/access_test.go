package access_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/model"
)

type fakeLookups struct {
	profiles    map[string]*model.SellerProfile
	shares      map[string]*model.Share
	campaigns   map[string]*model.Campaign
	orders      map[string]*model.Order
	shareErr    error
	shareLookup int
}

func (f *fakeLookups) GetShare(_ context.Context, profileID, target string) (*model.Share, error) {
	f.shareLookup++
	if f.shareErr != nil {
		return nil, f.shareErr
	}
	return f.shares[profileID+"|"+target], nil
}

func (f *fakeLookups) GetProfile(_ context.Context, id string) (*model.SellerProfile, error) {
	return f.profiles[id], nil
}

func (f *fakeLookups) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	return f.campaigns[id], nil
}

func (f *fakeLookups) GetOrder(_ context.Context, campaignID, orderID string) (*model.Order, error) {
	return f.orders[campaignID+"|"+orderID], nil
}

func newLookups() *fakeLookups {
	return &fakeLookups{
		profiles: map[string]*model.SellerProfile{
			"PROFILE#p1": {ProfileID: "PROFILE#p1", OwnerAccountID: "ACCOUNT#owner"},
		},
		shares: map[string]*model.Share{
			"PROFILE#p1|ACCOUNT#reader": {Permissions: []string{model.PermRead}},
			"PROFILE#p1|ACCOUNT#writer": {Permissions: []string{model.PermRead, model.PermWrite}},
			"PROFILE#p1|ACCOUNT#empty":  {},
		},
		campaigns: map[string]*model.Campaign{
			"CAMPAIGN#c1":     {CampaignID: "CAMPAIGN#c1", ProfileID: "PROFILE#p1"},
			"CAMPAIGN#orphan": {CampaignID: "CAMPAIGN#orphan", ProfileID: "PROFILE#gone"},
		},
		orders: map[string]*model.Order{
			"CAMPAIGN#c1|ORDER#o1": {CampaignID: "CAMPAIGN#c1", OrderID: "ORDER#o1", ProfileID: "PROFILE#p1"},
		},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		share *model.Share
		want  access.Level
	}{
		{"owner", "ACCOUNT#me", nil, access.Owner},
		{"no share", "ACCOUNT#other", nil, access.Denied},
		{"write share", "ACCOUNT#other", &model.Share{Permissions: []string{"WRITE"}}, access.Write},
		{"read share", "ACCOUNT#other", &model.Share{Permissions: []string{"READ"}}, access.Read},
		{"empty share", "ACCOUNT#other", &model.Share{}, access.Denied},
		{"invalid share", "ACCOUNT#other", &model.Share{Permissions: []string{"ADMIN"}}, access.Denied},
		{"empty owner", "", nil, access.Denied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.Resolve(tt.owner, "ACCOUNT#me", tt.share))
		})
	}
}

func TestLevel_Monotonic(t *testing.T) {
	levels := []access.Level{access.Denied, access.Read, access.Write, access.Owner}
	checks := []func(access.Level) bool{
		access.Level.CanRead, access.Level.CanWrite, access.Level.CanManage, access.Level.QRVisible,
	}
	for i := 1; i < len(levels); i++ {
		lower, higher := levels[i-1], levels[i]
		for _, check := range checks {
			if check(lower) {
				assert.True(t, check(higher), "%s allows something %s does not", lower, higher)
			}
		}
	}

	assert.False(t, access.Read.QRVisible())
	assert.True(t, access.Write.QRVisible())
	assert.True(t, access.Owner.QRVisible())
	assert.False(t, access.Write.CanManage())
	assert.ElementsMatch(t, []string{"READ", "WRITE"}, access.Write.Permissions())
	assert.Nil(t, access.Denied.Permissions())
}

func TestEvaluator_OwnerSkipsShareLookup(t *testing.T) {
	lookups := newLookups()
	e := access.NewEvaluator(lookups, nil)

	_, level, err := e.Profile(context.Background(), "p1", access.Identity{Sub: "owner"}, access.Owner)
	require.NoError(t, err)
	assert.Equal(t, access.Owner, level)
	assert.Zero(t, lookups.shareLookup)
}

func TestEvaluator_Profile(t *testing.T) {
	tests := []struct {
		name     string
		sub      string
		profile  string
		need     access.Level
		wantKind apierr.Kind
		want     access.Level
	}{
		{"reader reads", "reader", "PROFILE#p1", access.Read, "", access.Read},
		{"reader cannot write", "reader", "p1", access.Write, apierr.Forbidden, access.Read},
		{"writer writes", "writer", "p1", access.Write, "", access.Write},
		{"writer cannot manage", "writer", "p1", access.Owner, apierr.Forbidden, access.Write},
		{"stranger denied", "stranger", "p1", access.Read, apierr.Forbidden, access.Denied},
		{"empty share denied", "empty", "p1", access.Read, apierr.Forbidden, access.Denied},
		{"missing profile", "owner", "p404", access.Read, apierr.NotFound, access.Undetermined},
		{"anonymous", "", "p1", access.Read, apierr.Unauthorized, access.Undetermined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := access.NewEvaluator(newLookups(), nil)
			_, level, err := e.Profile(context.Background(), tt.profile, access.Identity{Sub: tt.sub}, tt.need)
			assert.Equal(t, tt.want, level)
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantKind, apierr.KindOf(err))
		})
	}
}

func TestEvaluator_CampaignAndOrderDelegate(t *testing.T) {
	e := access.NewEvaluator(newLookups(), nil)
	ctx := context.Background()

	campaign, level, err := e.Campaign(ctx, "c1", access.Identity{Sub: "reader"}, access.Read)
	require.NoError(t, err)
	assert.Equal(t, "CAMPAIGN#c1", campaign.CampaignID)
	assert.Equal(t, access.Read, level)

	_, _, err = e.Campaign(ctx, "c1", access.Identity{Sub: "stranger"}, access.Read)
	assert.True(t, apierr.IsKind(err, apierr.Forbidden))

	_, _, err = e.Campaign(ctx, "c404", access.Identity{Sub: "stranger"}, access.Read)
	assert.True(t, apierr.IsKind(err, apierr.NotFound), "missing campaign is NotFound even for strangers")

	_, _, err = e.Campaign(ctx, "orphan", access.Identity{Sub: "owner"}, access.Read)
	assert.True(t, apierr.IsKind(err, apierr.NotFound))

	order, level, err := e.Order(ctx, "c1", "o1", access.Identity{Sub: "writer"}, access.Write)
	require.NoError(t, err)
	assert.Equal(t, "ORDER#o1", order.OrderID)
	assert.Equal(t, access.Write, level)

	_, _, err = e.Order(ctx, "c1", "o404", access.Identity{Sub: "owner"}, access.Read)
	assert.True(t, apierr.IsKind(err, apierr.NotFound))

	_, _, err = e.Order(ctx, "c1", "o1", access.Identity{Sub: "reader"}, access.Write)
	assert.True(t, apierr.IsKind(err, apierr.Forbidden))
}

func TestEvaluator_ShareLookupError(t *testing.T) {
	lookups := newLookups()
	lookups.shareErr = errors.New("throttled")
	e := access.NewEvaluator(lookups, nil)

	_, _, err := e.Profile(context.Background(), "p1", access.Identity{Sub: "reader"}, access.Read)
	assert.ErrorIs(t, err, lookups.shareErr)
	assert.Empty(t, apierr.KindOf(err))
}

func TestIdentity(t *testing.T) {
	id := access.Identity{Sub: "abc", Groups: []string{"Users", "ADMIN"}}
	assert.Equal(t, "ACCOUNT#abc", id.AccountID())
	assert.True(t, id.IsAdmin())
	assert.False(t, access.Identity{Sub: "abc"}.IsAdmin())
	assert.Error(t, access.Authenticate(access.Identity{}))
}
