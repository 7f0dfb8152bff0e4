package service

import (
	"context"
	"strings"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/internal/keys"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// CreateSharedCampaignInput is the payload of CreateSharedCampaign.
type CreateSharedCampaignInput struct {
	CatalogID      string `json:"catalogId" validate:"required"`
	CampaignName   string `json:"campaignName" validate:"required,max=200"`
	CampaignYear   int    `json:"campaignYear" validate:"required,gte=2000,lte=2100"`
	StartDate      string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate        string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	UnitType       string `json:"unitType" validate:"required,max=40"`
	UnitNumber     int    `json:"unitNumber" validate:"required,gte=1"`
	City           string `json:"city" validate:"required,max=100"`
	State          string `json:"state" validate:"required,max=40"`
	CreatorMessage string `json:"creatorMessage" validate:"omitempty,max=300"`
}

// CreateSharedCampaign creates a campaign template handed out by code.
// Each creator may hold a limited number of them.
func (s *Service) CreateSharedCampaign(ctx context.Context, caller access.Identity, in CreateSharedCampaignInput) (*model.SharedCampaign, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if _, err := s.limiter.CheckAndCount(ctx, caller.AccountID()); err != nil {
		return nil, err
	}
	catalog, err := s.liveCatalog(ctx, in.CatalogID)
	if err != nil {
		return nil, err
	}

	shared := &model.SharedCampaign{
		SharedCampaignCode: keys.SharedCampaignCode(caller.AccountID(), s.ids.NewID("")),
		CreatedBy:          caller.AccountID(),
		CatalogID:          catalog.CatalogID,
		CampaignName:       in.CampaignName,
		CampaignYear:       in.CampaignYear,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		UnitType:           in.UnitType,
		UnitNumber:         in.UnitNumber,
		City:               in.City,
		State:              in.State,
		CreatorMessage:     in.CreatorMessage,
		IsActive:           true,
		CreatedAt:          timestamp(s.now()),
	}
	err = s.repo.Put(ctx, s.repo.Tables().SharedCampaignsTable, shared, store.AttributeNotExists("sharedCampaignCode"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.Conflict, "shared campaign code collision, retry")
	}
	s.logger.Info("shared campaign created", "sharedCampaignCode", shared.SharedCampaignCode, "createdBy", shared.CreatedBy)
	return shared, nil
}

// GetSharedCampaign returns the shared campaign with code, or nil.
func (s *Service) GetSharedCampaign(ctx context.Context, caller access.Identity, code string) (*model.SharedCampaign, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	return s.repo.GetSharedCampaign(ctx, sharedCode(code))
}

// sharedCode canonicalizes a code typed from a flyer.
func sharedCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ListMySharedCampaigns returns the shared campaigns the caller created.
func (s *Service) ListMySharedCampaigns(ctx context.Context, caller access.Identity) ([]model.SharedCampaign, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	return s.repo.ListSharedCampaignsByCreator(ctx, caller.AccountID())
}

// DeactivateSharedCampaign stops a shared campaign from prefilling new
// campaigns. Only its creator may do this.
func (s *Service) DeactivateSharedCampaign(ctx context.Context, caller access.Identity, code string) (*model.SharedCampaign, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	cond := store.And(
		store.AttributeExists("sharedCampaignCode"),
		store.Equal("createdBy", caller.AccountID()),
	)
	item, err := s.repo.Backend().UpdateItem(ctx, s.repo.Tables().SharedCampaignsTable,
		repo.SharedCampaignKey(sharedCode(code)),
		store.Update{Set: map[string]any{"isActive": false}}, cond)
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.Forbidden, "shared campaign not found or not yours")
	}
	return model.FromItem[model.SharedCampaign](item)
}
