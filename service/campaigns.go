package service

import (
	"context"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/internal/keys"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// CreateCampaignInput creates a campaign. With a SharedCampaignCode the
// catalog, name, year, dates and unit come from the shared campaign.
type CreateCampaignInput struct {
	ProfileID          string `json:"profileId" validate:"required"`
	SharedCampaignCode string `json:"sharedCampaignCode"`
	CatalogID          string `json:"catalogId" validate:"required_without=SharedCampaignCode"`
	CampaignName       string `json:"campaignName" validate:"required_without=SharedCampaignCode,max=200"`
	CampaignYear       int    `json:"campaignYear" validate:"omitempty,gte=2000,lte=2100"`
	StartDate          string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate            string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	UnitType           string `json:"unitType" validate:"omitempty,max=40"`
	UnitNumber         int    `json:"unitNumber" validate:"gte=0"`
	City               string `json:"city" validate:"omitempty,max=100"`
	State              string `json:"state" validate:"omitempty,max=40"`
}

// UpdateCampaignInput changes the non-nil fields of a campaign.
type UpdateCampaignInput struct {
	CampaignID   string  `json:"campaignId" validate:"required"`
	CatalogID    *string `json:"catalogId" validate:"omitempty,min=1"`
	CampaignName *string `json:"campaignName" validate:"omitempty,min=1,max=200"`
	CampaignYear *int    `json:"campaignYear" validate:"omitempty,gte=2000,lte=2100"`
	StartDate    *string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate      *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	IsActive     *bool   `json:"isActive"`
}

// withDefaults fills isActive for records stored before the flag existed.
func withDefaults(c *model.Campaign) *model.Campaign {
	if c.IsActive == nil {
		active := true
		c.IsActive = &active
	}
	return c
}

func unitOf(c *model.Campaign) keys.Unit {
	return keys.Unit{Type: c.UnitType, Number: c.UnitNumber, City: c.City, State: c.State}
}

// CreateCampaign creates a campaign on a profile the caller can write.
func (s *Service) CreateCampaign(ctx context.Context, caller access.Identity, in CreateCampaignInput) (*model.Campaign, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.SharedCampaignCode == "" && in.CampaignYear == 0 {
		return nil, apierr.Validationf("invalid input: campaignYear (required_without)")
	}
	profile, _, err := s.access.Profile(ctx, in.ProfileID, caller, access.Write)
	if err != nil {
		return nil, err
	}

	now := timestamp(s.now())
	active := true
	campaign := &model.Campaign{
		CampaignID:   s.ids.NewID(ids.CampaignPrefix),
		ProfileID:    profile.ProfileID,
		CatalogID:    ids.Catalog(in.CatalogID),
		CampaignName: in.CampaignName,
		CampaignYear: in.CampaignYear,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		UnitType:     in.UnitType,
		UnitNumber:   in.UnitNumber,
		City:         in.City,
		State:        in.State,
		IsActive:     &active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if in.SharedCampaignCode != "" {
		shared, err := s.repo.GetSharedCampaign(ctx, sharedCode(in.SharedCampaignCode))
		if err != nil {
			return nil, err
		}
		if shared == nil || !shared.IsActive {
			return nil, apierr.BadRequestf("shared campaign %s is not available", in.SharedCampaignCode)
		}
		prefill(campaign, shared)
	}

	if _, err := s.liveCatalog(ctx, campaign.CatalogID); err != nil {
		return nil, err
	}
	campaign.UnitCampaignKey = keys.UnitCampaign(unitOf(campaign), campaign.CampaignName, campaign.CampaignYear)

	err = s.repo.Put(ctx, s.repo.Tables().CampaignsTable, campaign, store.AttributeNotExists("campaignId"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.Conflict, "campaign id already exists")
	}
	s.logger.Info("campaign created", "campaignId", campaign.CampaignID, "profileId", campaign.ProfileID)
	return campaign, nil
}

// prefill copies a shared campaign into c. The shared values win over
// anything supplied directly.
func prefill(c *model.Campaign, shared *model.SharedCampaign) {
	c.SharedCampaignCode = shared.SharedCampaignCode
	c.CatalogID = ids.Catalog(shared.CatalogID)
	c.CampaignName = shared.CampaignName
	c.CampaignYear = shared.CampaignYear
	c.UnitType = shared.UnitType
	c.UnitNumber = shared.UnitNumber
	c.City = shared.City
	c.State = shared.State
	if shared.StartDate != "" {
		c.StartDate = shared.StartDate
	}
	if shared.EndDate != "" {
		c.EndDate = shared.EndDate
	}
}

// UpdateCampaign changes the non-nil fields of a campaign the caller can write.
func (s *Service) UpdateCampaign(ctx context.Context, caller access.Identity, in UpdateCampaignInput) (*model.Campaign, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	campaign, _, err := s.access.Campaign(ctx, in.CampaignID, caller, access.Write)
	if err != nil {
		return nil, err
	}

	upd := store.Update{Set: map[string]any{"updatedAt": timestamp(s.now())}}
	if in.CatalogID != nil {
		catalog, err := s.liveCatalog(ctx, *in.CatalogID)
		if err != nil {
			return nil, err
		}
		upd.Set["catalogId"] = catalog.CatalogID
	}
	if in.CampaignName != nil {
		campaign.CampaignName = *in.CampaignName
		upd.Set["campaignName"] = *in.CampaignName
	}
	if in.CampaignYear != nil {
		campaign.CampaignYear = *in.CampaignYear
		upd.Set["campaignYear"] = *in.CampaignYear
	}
	setOptional(&upd, "startDate", in.StartDate)
	setOptional(&upd, "endDate", in.EndDate)
	if in.IsActive != nil {
		upd.Set["isActive"] = *in.IsActive
	}
	if in.CampaignName != nil || in.CampaignYear != nil {
		if key := keys.UnitCampaign(unitOf(campaign), campaign.CampaignName, campaign.CampaignYear); key != "" {
			upd.Set["unitCampaignKey"] = key
		}
	}

	item, err := s.repo.Backend().UpdateItem(ctx, s.repo.Tables().CampaignsTable,
		repo.CampaignKey(campaign.CampaignID), upd, store.AttributeExists("campaignId"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.NotFound, "campaign not found")
	}
	updated, err := model.FromItem[model.Campaign](item)
	if err != nil {
		return nil, err
	}
	return withDefaults(updated), nil
}

// DeleteCampaign deletes a campaign the caller can write, after its orders.
func (s *Service) DeleteCampaign(ctx context.Context, caller access.Identity, campaignID string) (bool, error) {
	campaign, _, err := s.access.Campaign(ctx, campaignID, caller, access.Write)
	if err != nil {
		return false, err
	}
	report, err := s.cascade.DeleteAll(ctx, "campaign", campaign.CampaignID)
	if err != nil {
		// Orders left behind are inert: every order read goes through its campaign.
		s.logger.Warn("campaign orders not fully deleted", "campaignId", campaign.CampaignID, "error", err)
	}
	err = s.repo.Backend().DeleteItem(ctx, s.repo.Tables().CampaignsTable,
		repo.CampaignKey(campaign.CampaignID), store.Condition{})
	if err != nil {
		return false, err
	}
	s.logger.Info("campaign deleted", "campaignId", campaign.CampaignID, "orders", report["order"])
	return true, nil
}

// GetCampaign returns a campaign the caller can read. A missing campaign is
// NotFound; one the caller cannot read is nil.
func (s *Service) GetCampaign(ctx context.Context, caller access.Identity, campaignID string) (*model.Campaign, error) {
	campaign, _, err := s.access.Campaign(ctx, campaignID, caller, access.Read)
	if apierr.IsKind(err, apierr.Forbidden) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return withDefaults(campaign), nil
}

// ListCampaignsByProfile returns the campaigns of a profile the caller can
// read, or nil.
func (s *Service) ListCampaignsByProfile(ctx context.Context, caller access.Identity, profileID string) ([]model.Campaign, error) {
	profile, _, err := s.access.Profile(ctx, profileID, caller, access.Read)
	if denied(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	campaigns, err := s.repo.ListCampaignsByProfile(ctx, profile.ProfileID)
	if err != nil {
		return nil, err
	}
	for i := range campaigns {
		withDefaults(&campaigns[i])
	}
	return campaigns, nil
}

// UnitCampaignSummary describes the campaigns a unit runs in one season
// without exposing the profiles behind them.
type UnitCampaignSummary struct {
	UnitCampaignKey string `json:"unitCampaignKey"`
	CampaignName    string `json:"campaignName"`
	CampaignYear    int    `json:"campaignYear"`
	CatalogID       string `json:"catalogId"`
	SellerCount     int    `json:"sellerCount"`
}

// FindUnitCampaignInput identifies a unit's campaign by unit and name.
type FindUnitCampaignInput struct {
	UnitType     string `json:"unitType" validate:"required"`
	UnitNumber   int    `json:"unitNumber" validate:"required,gte=1"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	CampaignName string `json:"campaignName" validate:"required"`
	CampaignYear int    `json:"campaignYear" validate:"required,gte=2000,lte=2100"`
}

// FindCampaignsByUnit summarizes the active campaigns sharing a unit season.
// It returns nil when there are none.
func (s *Service) FindCampaignsByUnit(ctx context.Context, caller access.Identity, in FindUnitCampaignInput) (*UnitCampaignSummary, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	unit := keys.Unit{Type: in.UnitType, Number: in.UnitNumber, City: in.City, State: in.State}
	key := keys.UnitCampaign(unit, in.CampaignName, in.CampaignYear)
	campaigns, err := s.repo.ListCampaignsByUnit(ctx, key)
	if err != nil {
		return nil, err
	}

	var summary *UnitCampaignSummary
	for i := range campaigns {
		c := &campaigns[i]
		if !c.Active() {
			continue
		}
		if summary == nil {
			summary = &UnitCampaignSummary{
				UnitCampaignKey: key,
				CampaignName:    c.CampaignName,
				CampaignYear:    c.CampaignYear,
				CatalogID:       c.CatalogID,
			}
		}
		summary.SellerCount++
	}
	return summary, nil
}
