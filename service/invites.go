package service

import (
	"context"
	"errors"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/pipeline"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// CreateInviteInput is the payload of CreateProfileInvite. Permissions must
// not repeat.
type CreateInviteInput struct {
	ProfileID   string   `json:"profileId" validate:"required"`
	Permissions []string `json:"permissions" validate:"required,min=1,unique,dive,oneof=READ WRITE"`
	// WithQRCode also renders the redemption link as a PNG.
	WithQRCode bool `json:"withQrCode"`
}

// InviteResult is a created invite with its optional QR code.
type InviteResult struct {
	model.Invite
	RedeemURL string `json:"redeemUrl,omitempty"`
	QRCodePNG []byte `json:"qrCodePng,omitempty"`
}

// CreateProfileInvite creates a single-use invite to a profile the caller
// owns. It expires after the configured invite TTL.
func (s *Service) CreateProfileInvite(ctx context.Context, caller access.Identity, in CreateInviteInput) (*InviteResult, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	profile, _, err := s.access.Profile(ctx, in.ProfileID, caller, access.Owner)
	if err != nil {
		return nil, err
	}

	now := s.now()
	invite := model.Invite{
		InviteCode:  s.ids.NewInviteCode(),
		ProfileID:   profile.ProfileID,
		Permissions: in.Permissions,
		ExpiresAt:   now.Add(s.inviteTTL).Unix(),
		CreatedBy:   caller.AccountID(),
		CreatedAt:   timestamp(now),
	}
	err = s.repo.Put(ctx, s.repo.Tables().InvitesTable, invite, store.AttributeNotExists("inviteCode"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.Conflict, "invite code collision, retry")
	}

	result := &InviteResult{Invite: invite}
	if s.qr != nil {
		if result.RedeemURL, err = s.qr.RedeemURL(invite.InviteCode); err != nil {
			return nil, err
		}
		if in.WithQRCode {
			if result.QRCodePNG, err = s.qr.InvitePNG(invite.InviteCode); err != nil {
				return nil, err
			}
		}
	}
	s.logger.Info("invite created", "profileId", invite.ProfileID, "expiresAt", invite.ExpiresAt)
	return result, nil
}

// Stash keys of redeemProfileInvite.
const (
	keyInviteCode = "inviteCode"
	keyInvite     = "invite"
)

// RedeemProfileInvite turns an invite into a share for the caller. An invite
// can be redeemed once; a second attempt is a ConflictException.
func (s *Service) RedeemProfileInvite(ctx context.Context, caller access.Identity, inviteCode string) (*model.Share, error) {
	stash := pipeline.NewStash().
		Set(keyCaller, caller).
		Set(keyInviteCode, inviteCode)
	return pipeline.Output[*model.Share](s.redeemInvite.Run(ctx, stash))
}

func (s *Service) redeemInvitePipeline() *pipeline.Pipeline {
	invitesTable := func() string { return s.repo.Tables().InvitesTable }

	return pipeline.New("redeemProfileInvite", s.logger,
		pipeline.Step{
			Name:   "get-invite",
			Reads:  []string{keyCaller, keyInviteCode},
			Writes: []string{keyInvite},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				if err := access.Authenticate(pipeline.Must[access.Identity](st, keyCaller)); err != nil {
					return pipeline.Result{}, err
				}
				code := pipeline.Must[string](st, keyInviteCode)
				if code == "" {
					return pipeline.Result{}, apierr.Validationf("invite code is required")
				}
				invite, err := s.repo.GetInvite(ctx, code)
				if err != nil {
					return pipeline.Result{}, err
				}
				if invite == nil {
					return pipeline.Result{}, apierr.NotFoundf("invite not found")
				}
				st.Set(keyInvite, invite)
				return pipeline.Continue(), nil
			},
		},
		pipeline.Step{
			Name:   "validate-invite",
			Reads:  []string{keyCaller, keyInvite},
			Writes: []string{keyProfileID, keyTarget, keyPermissions, keyCreatedBy},
			Run: func(_ context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				invite := pipeline.Must[*model.Invite](st, keyInvite)
				if invite.Used {
					return pipeline.Result{}, apierr.Conflictf("invite has already been used")
				}
				if invite.ExpiresAt <= s.now().Unix() {
					return pipeline.Result{}, apierr.Validationf("invite has expired")
				}
				if !model.ValidPermissions(invite.Permissions) {
					return pipeline.Result{}, apierr.Internalf("invite carries invalid permissions")
				}
				st.Set(keyProfileID, ids.Profile(invite.ProfileID)).
					Set(keyTarget, pipeline.Must[access.Identity](st, keyCaller).AccountID()).
					Set(keyPermissions, invite.Permissions).
					Set(keyCreatedBy, invite.CreatedBy)
				return pipeline.Continue(), nil
			},
		},
		pipeline.Step{
			Name:   "get-profile",
			Reads:  []string{keyProfileID},
			Writes: []string{keyProfile},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				profile, err := s.repo.GetProfile(ctx, pipeline.Must[string](st, keyProfileID))
				if err != nil {
					return pipeline.Result{}, err
				}
				if profile == nil {
					return pipeline.Result{}, apierr.NotFoundf("profile no longer exists")
				}
				st.Set(keyProfile, profile)
				return pipeline.Continue(), nil
			},
		},
		s.lookupShareStep(),
		pipeline.Step{
			Name:  "mark-used",
			Reads: []string{keyInvite, keyTarget},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				invite := pipeline.Must[*model.Invite](st, keyInvite)
				upd := store.Update{Set: map[string]any{
					"used":   true,
					"usedBy": pipeline.Must[string](st, keyTarget),
					"usedAt": timestamp(s.now()),
				}}
				cond := store.And(store.AttributeExists("inviteCode"), store.Equal("used", false))
				_, err := s.repo.Backend().UpdateItem(ctx, invitesTable(), repo.InviteKey(invite.InviteCode), upd, cond)
				if err != nil {
					return pipeline.Result{}, apierr.FromCondition(err, apierr.Conflict, "invite has already been used")
				}
				return pipeline.Continue(), nil
			},
		},
		s.upsertShareStep(),
		pipeline.Step{
			Name:  "retire-invite",
			Reads: []string{keyInvite},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				// The used invite stays until the table TTL reaps it, so a
				// replay still finds it and fails as a conflict.
				invite := pipeline.Must[*model.Invite](st, keyInvite)
				upd := store.Update{Set: map[string]any{"expiresAt": s.now().Unix()}}
				_, err := s.repo.Backend().UpdateItem(ctx, invitesTable(), repo.InviteKey(invite.InviteCode), upd,
					store.AttributeExists("inviteCode"))
				if err != nil && !errors.Is(err, store.ErrConditionFailed) {
					s.logger.Warn("failed to retire invite", "profileId", invite.ProfileID, "error", err)
				}
				return pipeline.Continue(), nil
			},
		},
	)
}

// DeleteProfileInvite deletes an invite of a profile the caller owns.
// Deleting a missing invite succeeds.
func (s *Service) DeleteProfileInvite(ctx context.Context, caller access.Identity, profileID, inviteCode string) (bool, error) {
	profile, _, err := s.access.Profile(ctx, profileID, caller, access.Owner)
	if err != nil {
		return false, err
	}
	invite, err := s.repo.GetInvite(ctx, inviteCode)
	if err != nil {
		return false, err
	}
	if invite == nil {
		return true, nil
	}
	if ids.Profile(invite.ProfileID) != profile.ProfileID {
		return false, apierr.NotFoundf("invite not found")
	}
	err = s.repo.Backend().DeleteItem(ctx, s.repo.Tables().InvitesTable, repo.InviteKey(invite.InviteCode),
		store.Equal("profileId", profile.ProfileID))
	if err != nil && !errors.Is(err, store.ErrConditionFailed) {
		return false, err
	}
	return true, nil
}

// ListInvitesByProfile returns the open invites of a profile the caller owns.
func (s *Service) ListInvitesByProfile(ctx context.Context, caller access.Identity, profileID string) ([]model.Invite, error) {
	profile, _, err := s.access.Profile(ctx, profileID, caller, access.Owner)
	if err != nil {
		return nil, err
	}
	invites, err := s.repo.ListInvitesByProfile(ctx, profile.ProfileID)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	open := invites[:0]
	for _, inv := range invites {
		if !inv.Used && inv.ExpiresAt > now {
			open = append(open, inv)
		}
	}
	return open, nil
}
