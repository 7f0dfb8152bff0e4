package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/internal/metrics"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/pipeline"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// sharedProfileFanout bounds concurrent profile loads in ListSharedProfiles.
const sharedProfileFanout = 8

// CreateProfileInput is the payload of CreateSellerProfile.
type CreateProfileInput struct {
	SellerName string `json:"sellerName" validate:"required,max=100"`
	UnitType   string `json:"unitType" validate:"omitempty,max=40"`
	UnitNumber int    `json:"unitNumber" validate:"gte=0"`
	City       string `json:"city" validate:"omitempty,max=100"`
	State      string `json:"state" validate:"omitempty,max=40"`
}

// UpdateProfileInput changes the non-nil fields. An empty optional field
// clears it.
type UpdateProfileInput struct {
	ProfileID  string  `json:"profileId" validate:"required"`
	SellerName *string `json:"sellerName" validate:"omitempty,min=1,max=100"`
	UnitType   *string `json:"unitType" validate:"omitempty,max=40"`
	UnitNumber *int    `json:"unitNumber" validate:"omitempty,gte=0"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	State      *string `json:"state" validate:"omitempty,max=40"`
}

// withLevel fills the per-viewer fields of a profile.
func withLevel(p *model.SellerProfile, level access.Level) *model.SellerProfile {
	p.IsOwner = level == access.Owner
	p.Permissions = level.Permissions()
	return p
}

// CreateSellerProfile creates a profile owned by the caller.
func (s *Service) CreateSellerProfile(ctx context.Context, caller access.Identity, in CreateProfileInput) (*model.SellerProfile, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	now := timestamp(s.now())
	p := &model.SellerProfile{
		ProfileID:      s.ids.NewID(ids.ProfilePrefix),
		OwnerAccountID: caller.AccountID(),
		SellerName:     in.SellerName,
		UnitType:       in.UnitType,
		UnitNumber:     in.UnitNumber,
		City:           in.City,
		State:          in.State,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.repo.Put(ctx, s.repo.Tables().ProfilesTable, p, store.AttributeNotExists("profileId"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.Conflict, "profile id already exists")
	}
	s.logger.Info("profile created", "profileId", p.ProfileID, "ownerAccountId", p.OwnerAccountID)
	return withLevel(p, access.Owner), nil
}

// UpdateSellerProfile changes a profile. Owners and WRITE shares may edit.
func (s *Service) UpdateSellerProfile(ctx context.Context, caller access.Identity, in UpdateProfileInput) (*model.SellerProfile, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	profile, level, err := s.access.Profile(ctx, in.ProfileID, caller, access.Write)
	if err != nil {
		return nil, err
	}

	upd := store.Update{Set: map[string]any{"updatedAt": timestamp(s.now())}}
	if in.SellerName != nil {
		upd.Set["sellerName"] = *in.SellerName
	}
	setOptional(&upd, "unitType", in.UnitType)
	setOptional(&upd, "city", in.City)
	setOptional(&upd, "state", in.State)
	if in.UnitNumber != nil {
		if *in.UnitNumber == 0 {
			upd.Remove = append(upd.Remove, "unitNumber")
		} else {
			upd.Set["unitNumber"] = *in.UnitNumber
		}
	}

	item, err := s.repo.Backend().UpdateItem(ctx, s.repo.Tables().ProfilesTable,
		repo.ProfileKey(profile.ProfileID), upd, store.AttributeExists("profileId"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.NotFound, "profile not found")
	}
	updated, err := model.FromItem[model.SellerProfile](item)
	if err != nil {
		return nil, err
	}
	return withLevel(updated, level), nil
}

func setOptional(upd *store.Update, attr string, v *string) {
	switch {
	case v == nil:
	case *v == "":
		upd.Remove = append(upd.Remove, attr)
	default:
		upd.Set[attr] = *v
	}
}

// GetProfile returns a profile the caller can read, or nil.
func (s *Service) GetProfile(ctx context.Context, caller access.Identity, profileID string) (*model.SellerProfile, error) {
	profile, level, err := s.access.Profile(ctx, profileID, caller, access.Read)
	if denied(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return withLevel(profile, level), nil
}

// ListMyProfiles returns the profiles the caller owns.
func (s *Service) ListMyProfiles(ctx context.Context, caller access.Identity) ([]model.SellerProfile, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	profiles, err := s.repo.ListProfilesByOwner(ctx, caller.AccountID())
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		withLevel(&profiles[i], access.Owner)
	}
	return profiles, nil
}

// ListSharedProfiles returns the profiles shared with the caller. Shares
// pointing at deleted profiles are skipped.
func (s *Service) ListSharedProfiles(ctx context.Context, caller access.Identity) ([]model.SellerProfile, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	shares, err := s.repo.ListSharesByTarget(ctx, caller.AccountID())
	if err != nil {
		return nil, err
	}

	loaded := make([]*model.SellerProfile, len(shares))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sharedProfileFanout)
	for i, share := range shares {
		g.Go(func() error {
			p, err := s.repo.GetProfile(gctx, share.ProfileID)
			if err != nil {
				return err
			}
			if p != nil {
				level := access.Resolve(p.OwnerAccountID, caller.AccountID(), &share)
				loaded[i] = withLevel(p, level)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profiles := make([]model.SellerProfile, 0, len(loaded))
	for _, p := range loaded {
		if p != nil && p.Permissions != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

// Stash keys of deleteSellerProfile.
const (
	keyProfileID = "profileId"
	keyProfile   = "profile"
)

// DeleteSellerProfile deletes a profile and everything under it. Only the
// owner may delete. Dependents are removed best-effort; the profile row is
// always deleted once the owner is verified.
func (s *Service) DeleteSellerProfile(ctx context.Context, caller access.Identity, profileID string) (bool, error) {
	stash := pipeline.NewStash().
		Set(keyCaller, caller).
		Set(keyProfileID, profileID)
	return pipeline.Output[bool](s.deleteProfile.Run(ctx, stash))
}

func (s *Service) deleteProfilePipeline() *pipeline.Pipeline {
	return pipeline.New("deleteSellerProfile", s.logger,
		s.verifyOwnerStep(),
		s.deleteDependentsStep("share"),
		s.deleteDependentsStep("invite"),
		s.deleteDependentsStep("campaign"),
		pipeline.Step{
			Name:   "delete-profile",
			Reads:  []string{keyCaller, keyProfile},
			Writes: []string{pipeline.ResultKey},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				caller := pipeline.Must[access.Identity](st, keyCaller)
				profile := pipeline.Must[*model.SellerProfile](st, keyProfile)
				err := s.repo.Backend().DeleteItem(ctx, s.repo.Tables().ProfilesTable,
					repo.ProfileKey(profile.ProfileID), store.Owned("profileId", caller.AccountID()))
				if err != nil {
					return pipeline.Result{}, apierr.FromCondition(err, apierr.Forbidden, "profile not found or not owned")
				}
				s.logger.Info("profile deleted", "profileId", profile.ProfileID)
				st.Set(pipeline.ResultKey, true)
				return pipeline.Continue(), nil
			},
		},
	)
}

// verifyOwnerStep loads the stashed profile id and requires the caller to own it.
func (s *Service) verifyOwnerStep() pipeline.Step {
	return pipeline.Step{
		Name:   "verify-owner",
		Reads:  []string{keyCaller, keyProfileID},
		Writes: []string{keyProfile},
		Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
			caller := pipeline.Must[access.Identity](st, keyCaller)
			profile, _, err := s.access.Profile(ctx, pipeline.Must[string](st, keyProfileID), caller, access.Owner)
			if err != nil {
				return pipeline.Result{}, err
			}
			st.Set(keyProfile, profile)
			return pipeline.Continue(), nil
		},
	}
}

// deleteDependentsStep drains one dependent collection of the stashed
// profile. Failures are logged and counted but never abort the pipeline.
func (s *Service) deleteDependentsStep(childType string) pipeline.Step {
	return pipeline.Step{
		Name:  "delete-" + childType + "s",
		Reads: []string{keyProfile},
		Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
			profile := pipeline.Must[*model.SellerProfile](st, keyProfile)
			rel, ok := s.cascade.Registry().Lookup("profile", childType)
			if !ok {
				s.logger.Warn("no cascade relationship registered", "collection", childType)
				return pipeline.Continue(), nil
			}
			n, err := s.cascade.DeleteDependents(ctx, rel, profile.ProfileID)
			if err != nil {
				metrics.CascadeFailuresTotal.WithLabelValues(childType).Inc()
				s.logger.Warn("cascade delete incomplete",
					"profileId", profile.ProfileID,
					"collection", childType,
					"deleted", n,
					"error", err,
				)
				return pipeline.Continue(), nil
			}
			s.logger.Debug("cascade delete done", "profileId", profile.ProfileID, "collection", childType, "deleted", n)
			return pipeline.Continue(), nil
		},
	}
}
