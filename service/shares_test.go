package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/service"
)

func TestCreateProfileShare_Upsert(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")

	first := e.share(t, alice, p.ProfileID, bob, model.PermRead)
	assert.Equal(t, "ACCOUNT#bob", first.TargetAccountID)
	assert.Equal(t, "ACCOUNT#alice", first.CreatedBy)

	e.clock.Advance(time.Hour)
	second, err := e.svc.CreateProfileShare(ctx, alice, service.CreateShareInput{
		ProfileID:       p.ProfileID,
		TargetAccountID: "ACCOUNT#bob",
		Permissions:     []string{model.PermRead, model.PermWrite},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ShareID, second.ShareID, "upsert keeps the share id")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.NotEqual(t, first.UpdatedAt, second.UpdatedAt)
	assert.ElementsMatch(t, []string{model.PermRead, model.PermWrite}, second.Permissions)

	shares, err := e.svc.ListSharesByProfile(ctx, alice, p.ProfileID)
	require.NoError(t, err)
	require.Len(t, shares, 1)

	got, err := e.svc.GetProfile(ctx, bob, p.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.PermRead, model.PermWrite}, got.Permissions)
}

func TestCreateProfileShare_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")
	e.share(t, alice, p.ProfileID, carol, model.PermWrite)

	cases := map[string]struct {
		caller access.Identity
		in     service.CreateShareInput
		want   apierr.Kind
	}{
		"write share cannot share": {
			caller: carol,
			in:     service.CreateShareInput{ProfileID: p.ProfileID, TargetAccountID: "dave", Permissions: []string{model.PermRead}},
			want:   apierr.Forbidden,
		},
		"stranger cannot share": {
			caller: dave,
			in:     service.CreateShareInput{ProfileID: p.ProfileID, TargetAccountID: "bob", Permissions: []string{model.PermRead}},
			want:   apierr.Forbidden,
		},
		"unknown permission": {
			caller: alice,
			in:     service.CreateShareInput{ProfileID: p.ProfileID, TargetAccountID: "bob", Permissions: []string{"ADMIN"}},
			want:   apierr.Validation,
		},
		"duplicate permission": {
			caller: alice,
			in:     service.CreateShareInput{ProfileID: p.ProfileID, TargetAccountID: "bob", Permissions: []string{model.PermRead, model.PermRead}},
			want:   apierr.Validation,
		},
		"no permissions": {
			caller: alice,
			in:     service.CreateShareInput{ProfileID: p.ProfileID, TargetAccountID: "bob"},
			want:   apierr.Validation,
		},
		"share with owner": {
			caller: alice,
			in:     service.CreateShareInput{ProfileID: p.ProfileID, TargetAccountID: "alice", Permissions: []string{model.PermRead}},
			want:   apierr.Validation,
		},
		"missing profile": {
			caller: alice,
			in:     service.CreateShareInput{ProfileID: "PROFILE#nope", TargetAccountID: "bob", Permissions: []string{model.PermRead}},
			want:   apierr.NotFound,
		},
		"anonymous": {
			caller: anon,
			in:     service.CreateShareInput{ProfileID: p.ProfileID, TargetAccountID: "bob", Permissions: []string{model.PermRead}},
			want:   apierr.Unauthorized,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.svc.CreateProfileShare(ctx, tc.caller, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.want, apierr.KindOf(err), err.Error())
		})
	}
}

func TestRevokeShare(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.profile(t, alice, "Scout Sam")
	e.share(t, alice, p.ProfileID, bob, model.PermRead)

	_, err := e.svc.RevokeShare(ctx, bob, p.ProfileID, "bob")
	assert.True(t, apierr.IsKind(err, apierr.Forbidden))

	for i := 0; i < 2; i++ {
		ok, err := e.svc.RevokeShare(ctx, alice, p.ProfileID, "bob")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	got, err := e.svc.GetProfile(ctx, bob, p.ProfileID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
