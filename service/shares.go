package service

import (
	"context"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/pipeline"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// CreateShareInput grants an account access to a profile. Permissions must
// not repeat.
type CreateShareInput struct {
	ProfileID string `json:"profileId" validate:"required"`
	// TargetAccountID accepts a bare subject or a canonical ACCOUNT# id.
	TargetAccountID string   `json:"targetAccountId" validate:"required"`
	Permissions     []string `json:"permissions" validate:"required,min=1,unique,dive,oneof=READ WRITE"`
}

// Stash keys of the share pipelines.
const (
	keyShareInput  = "shareInput"
	keyTarget      = "targetAccountId"
	keyPermissions = "permissions"
	keyExisting    = "existingShare"
	keyCreatedBy   = "createdBy"
)

// CreateProfileShare grants another account access to a profile the caller
// owns. An existing share for the same account is overwritten.
func (s *Service) CreateProfileShare(ctx context.Context, caller access.Identity, in CreateShareInput) (*model.Share, error) {
	stash := pipeline.NewStash().
		Set(keyCaller, caller).
		Set(keyShareInput, in)
	return pipeline.Output[*model.Share](s.createShare.Run(ctx, stash))
}

func (s *Service) createSharePipeline() *pipeline.Pipeline {
	return pipeline.New("createProfileShare", s.logger,
		pipeline.Step{
			Name:   "normalize-input",
			Reads:  []string{keyCaller, keyShareInput},
			Writes: []string{keyProfileID, keyTarget, keyPermissions},
			Run: func(_ context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				if err := access.Authenticate(pipeline.Must[access.Identity](st, keyCaller)); err != nil {
					return pipeline.Result{}, err
				}
				in := pipeline.Must[CreateShareInput](st, keyShareInput)
				if err := s.check(in); err != nil {
					return pipeline.Result{}, err
				}
				st.Set(keyProfileID, ids.Profile(in.ProfileID)).
					Set(keyTarget, ids.Account(in.TargetAccountID)).
					Set(keyPermissions, in.Permissions)
				return pipeline.Continue(), nil
			},
		},
		s.verifyOwnerStep(),
		s.lookupShareStep(),
		s.upsertShareStep(),
	)
}

// lookupShareStep stashes the current share of the target on the profile,
// or a nil share, so the upsert can tell a create from an update.
func (s *Service) lookupShareStep() pipeline.Step {
	return pipeline.Step{
		Name:   "lookup-existing-share",
		Reads:  []string{keyProfile, keyTarget},
		Writes: []string{keyExisting},
		Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
			profile := pipeline.Must[*model.SellerProfile](st, keyProfile)
			target := pipeline.Must[string](st, keyTarget)
			if target == ids.Account(profile.OwnerAccountID) {
				return pipeline.Result{}, apierr.Validationf("cannot share a profile with its owner")
			}
			existing, err := s.repo.GetShare(ctx, profile.ProfileID, target)
			if err != nil {
				return pipeline.Result{}, err
			}
			st.Set(keyExisting, existing)
			return pipeline.Continue(), nil
		},
	}
}

// upsertShareStep writes the share unconditionally; the last writer wins.
// The share is attributed to the stashed creator when set, else the caller.
func (s *Service) upsertShareStep() pipeline.Step {
	return pipeline.Step{
		Name:   "upsert-share",
		Reads:  []string{keyCaller, keyProfile, keyTarget, keyPermissions, keyExisting},
		Writes: []string{pipeline.ResultKey},
		Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
			caller := pipeline.Must[access.Identity](st, keyCaller)
			profile := pipeline.Must[*model.SellerProfile](st, keyProfile)
			existing, _ := pipeline.Get[*model.Share](st, keyExisting)
			createdBy, ok := pipeline.Get[string](st, keyCreatedBy)
			if !ok {
				createdBy = caller.AccountID()
			}
			now := timestamp(s.now())

			share := &model.Share{
				ProfileID:       profile.ProfileID,
				TargetAccountID: pipeline.Must[string](st, keyTarget),
				ShareID:         s.ids.NewID(ids.SharePrefix),
				Permissions:     pipeline.Must[[]string](st, keyPermissions),
				CreatedBy:       createdBy,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if existing != nil {
				share.ShareID = ids.Share(existing.ShareID)
				share.CreatedBy = existing.CreatedBy
				share.CreatedAt = existing.CreatedAt
			}
			if err := s.repo.Put(ctx, s.repo.Tables().SharesTable, share, store.Condition{}); err != nil {
				return pipeline.Result{}, err
			}
			s.logger.Info("share saved",
				"profileId", share.ProfileID,
				"targetAccountId", share.TargetAccountID,
				"updated", existing != nil,
			)
			st.Set(pipeline.ResultKey, share)
			return pipeline.Continue(), nil
		},
	}
}

// RevokeShare removes the share of targetAccountID on a profile the caller
// owns. Revoking a missing share succeeds.
func (s *Service) RevokeShare(ctx context.Context, caller access.Identity, profileID, targetAccountID string) (bool, error) {
	profile, _, err := s.access.Profile(ctx, profileID, caller, access.Owner)
	if err != nil {
		return false, err
	}
	key := repo.ShareKey(profile.ProfileID, ids.Account(targetAccountID))
	if err := s.repo.Backend().DeleteItem(ctx, s.repo.Tables().SharesTable, key, store.Condition{}); err != nil {
		return false, err
	}
	return true, nil
}

// ListSharesByProfile returns the shares of a profile the caller owns.
func (s *Service) ListSharesByProfile(ctx context.Context, caller access.Identity, profileID string) ([]model.Share, error) {
	profile, _, err := s.access.Profile(ctx, profileID, caller, access.Owner)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSharesByProfile(ctx, profile.ProfileID)
}
