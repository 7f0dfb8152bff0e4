package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/internal/metrics"
	"github.com/jacentio/fundraiser/model"
)

// ShareLookup finds the share granting targetAccountID access to profileID.
type ShareLookup interface {
	GetShare(ctx context.Context, profileID, targetAccountID string) (*model.Share, error)
}

// ProfileLookup loads a profile.
type ProfileLookup interface {
	GetProfile(ctx context.Context, profileID string) (*model.SellerProfile, error)
}

// CampaignLookup loads a campaign.
type CampaignLookup interface {
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
}

// OrderLookup loads an order.
type OrderLookup interface {
	GetOrder(ctx context.Context, campaignID, orderID string) (*model.Order, error)
}

// Lookups is everything the Evaluator reads. Lookups return (nil, nil) for a
// missing record.
type Lookups interface {
	ShareLookup
	ProfileLookup
	CampaignLookup
	OrderLookup
}

// Evaluator resolves access levels against stored profiles and shares.
type Evaluator struct {
	lookups Lookups
	logger  *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(lookups Lookups, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{lookups: lookups, logger: logger}
}

// Level computes caller's level on a loaded profile. The owner is resolved
// without a share lookup.
func (e *Evaluator) Level(ctx context.Context, profile *model.SellerProfile, caller Identity) (Level, error) {
	if !caller.Authenticated() {
		return Denied, nil
	}
	ownerID := ids.Account(profile.OwnerAccountID)
	callerID := caller.AccountID()
	if ownerID == callerID {
		return Owner, nil
	}

	share, err := e.lookups.GetShare(ctx, ids.Profile(profile.ProfileID), callerID)
	if err != nil {
		return Undetermined, fmt.Errorf("look up share: %w", err)
	}
	return Resolve(ownerID, callerID, share), nil
}

// Profile loads a profile and checks that caller holds at least need on it.
func (e *Evaluator) Profile(ctx context.Context, profileID string, caller Identity, need Level) (*model.SellerProfile, Level, error) {
	if err := Authenticate(caller); err != nil {
		return nil, Undetermined, err
	}
	profile, err := e.lookups.GetProfile(ctx, ids.Profile(profileID))
	if err != nil {
		return nil, Undetermined, err
	}
	if profile == nil {
		return nil, Undetermined, apierr.NotFoundf("profile not found")
	}
	level, err := e.Level(ctx, profile, caller)
	if err != nil {
		return nil, Undetermined, err
	}
	if err := e.require("profile", level, need); err != nil {
		return nil, level, err
	}
	return profile, level, nil
}

// Campaign loads a campaign and checks caller's level on its profile. A
// missing campaign is NotFound, an inaccessible one Forbidden.
func (e *Evaluator) Campaign(ctx context.Context, campaignID string, caller Identity, need Level) (*model.Campaign, Level, error) {
	if err := Authenticate(caller); err != nil {
		return nil, Undetermined, err
	}
	campaign, err := e.lookups.GetCampaign(ctx, ids.Campaign(campaignID))
	if err != nil {
		return nil, Undetermined, err
	}
	if campaign == nil {
		return nil, Undetermined, apierr.NotFoundf("campaign not found")
	}
	level, err := e.delegate(ctx, "campaign", campaign.ProfileID, caller, need)
	if err != nil {
		return nil, level, err
	}
	return campaign, level, nil
}

// Order loads an order and checks caller's level on its profile.
func (e *Evaluator) Order(ctx context.Context, campaignID, orderID string, caller Identity, need Level) (*model.Order, Level, error) {
	if err := Authenticate(caller); err != nil {
		return nil, Undetermined, err
	}
	order, err := e.lookups.GetOrder(ctx, ids.Campaign(campaignID), ids.Order(orderID))
	if err != nil {
		return nil, Undetermined, err
	}
	if order == nil {
		return nil, Undetermined, apierr.NotFoundf("order not found")
	}
	level, err := e.delegate(ctx, "order", order.ProfileID, caller, need)
	if err != nil {
		return nil, level, err
	}
	return order, level, nil
}

// delegate resolves the level on the profile owning a campaign or order.
func (e *Evaluator) delegate(ctx context.Context, resource, profileID string, caller Identity, need Level) (Level, error) {
	profile, err := e.lookups.GetProfile(ctx, ids.Profile(profileID))
	if err != nil {
		return Undetermined, err
	}
	if profile == nil {
		e.logger.Warn("record references missing profile", "resource", resource, "profileId", profileID)
		return Undetermined, apierr.NotFoundf("%s not found", resource)
	}
	level, err := e.Level(ctx, profile, caller)
	if err != nil {
		return Undetermined, err
	}
	return level, e.require(resource, level, need)
}

func (e *Evaluator) require(resource string, level, need Level) error {
	if err := Require(level, need); err != nil {
		metrics.AccessDeniedTotal.WithLabelValues(resource).Inc()
		e.logger.Debug("access denied", "resource", resource, "level", level.String(), "need", need.String())
		return err
	}
	return nil
}

// Require returns Forbidden when level is below need.
func Require(level, need Level) error {
	if level < need || level <= Denied {
		return apierr.Forbiddenf("insufficient permissions")
	}
	return nil
}

// Authenticate returns Unauthorized for an anonymous caller.
func Authenticate(caller Identity) error {
	if !caller.Authenticated() {
		return apierr.Unauthorizedf("authentication required")
	}
	return nil
}
