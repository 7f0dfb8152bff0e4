// Package repo reads and writes typed records through a store.Backend.
//
// Getters return (nil, nil) when the record does not exist so callers can
// choose between NotFound, Forbidden and a null result.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/store"
)

// Repo provides typed access to the fundraiser tables.
type Repo struct {
	backend store.Backend
	tables  store.Config
}

// New creates a Repo over backend using the table names in tables.
func New(backend store.Backend, tables store.Config) *Repo {
	tables.Validate()
	return &Repo{backend: backend, tables: tables}
}

// Backend returns the underlying storage backend.
func (r *Repo) Backend() store.Backend { return r.backend }

// Tables returns the table layout.
func (r *Repo) Tables() store.Config { return r.tables }

// S is shorthand for a string attribute value.
func S(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func AccountKey(accountID string) store.PK { return store.PK{"accountId": S(accountID)} }
func ProfileKey(profileID string) store.PK { return store.PK{"profileId": S(profileID)} }
func CatalogKey(catalogID string) store.PK { return store.PK{"catalogId": S(catalogID)} }
func CampaignKey(campaignID string) store.PK {
	return store.PK{"campaignId": S(campaignID)}
}
func InviteKey(code string) store.PK { return store.PK{"inviteCode": S(code)} }
func SharedCampaignKey(code string) store.PK {
	return store.PK{"sharedCampaignCode": S(code)}
}

func OrderKey(campaignID, orderID string) store.PK {
	return store.PK{"campaignId": S(campaignID), "orderId": S(orderID)}
}

func ShareKey(profileID, targetAccountID string) store.PK {
	return store.PK{"profileId": S(profileID), "targetAccountId": S(targetAccountID)}
}

func get[T any](ctx context.Context, b store.Backend, table string, key store.PK) (*T, error) {
	item, err := b.GetItem(ctx, table, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get from %s: %w", table, err)
	}
	return model.FromItem[T](item)
}

func query[T any](ctx context.Context, b store.Backend, input store.QueryInput) ([]T, error) {
	result, err := b.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", input.TableName, err)
	}
	return model.FromItems[T](result.Items)
}

// Put writes record to table under cond.
func (r *Repo) Put(ctx context.Context, table string, record any, cond store.Condition) error {
	item, err := model.ToItem(record)
	if err != nil {
		return err
	}
	return r.backend.PutItem(ctx, table, item, cond)
}

// Accounts

func (r *Repo) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return get[model.Account](ctx, r.backend, r.tables.AccountsTable, AccountKey(accountID))
}

// Profiles

func (r *Repo) GetProfile(ctx context.Context, profileID string) (*model.SellerProfile, error) {
	return get[model.SellerProfile](ctx, r.backend, r.tables.ProfilesTable, ProfileKey(profileID))
}

func (r *Repo) ListProfilesByOwner(ctx context.Context, ownerID string) ([]model.SellerProfile, error) {
	return query[model.SellerProfile](ctx, r.backend, store.QueryInput{
		TableName: r.tables.ProfilesTable,
		IndexName: r.tables.OwnerIndex,
		KeyAttr:   "ownerAccountId",
		KeyValue:  ownerID,
	})
}

// Shares

func (r *Repo) GetShare(ctx context.Context, profileID, targetAccountID string) (*model.Share, error) {
	return get[model.Share](ctx, r.backend, r.tables.SharesTable, ShareKey(profileID, targetAccountID))
}

func (r *Repo) ListSharesByProfile(ctx context.Context, profileID string) ([]model.Share, error) {
	return query[model.Share](ctx, r.backend, store.QueryInput{
		TableName:      r.tables.SharesTable,
		KeyAttr:        "profileId",
		KeyValue:       profileID,
		ConsistentRead: true,
	})
}

func (r *Repo) ListSharesByTarget(ctx context.Context, targetAccountID string) ([]model.Share, error) {
	return query[model.Share](ctx, r.backend, store.QueryInput{
		TableName: r.tables.SharesTable,
		IndexName: r.tables.TargetAccountIndex,
		KeyAttr:   "targetAccountId",
		KeyValue:  targetAccountID,
	})
}

// Invites

func (r *Repo) GetInvite(ctx context.Context, code string) (*model.Invite, error) {
	return get[model.Invite](ctx, r.backend, r.tables.InvitesTable, InviteKey(code))
}

func (r *Repo) ListInvitesByProfile(ctx context.Context, profileID string) ([]model.Invite, error) {
	return query[model.Invite](ctx, r.backend, store.QueryInput{
		TableName: r.tables.InvitesTable,
		IndexName: r.tables.ProfileIndex,
		KeyAttr:   "profileId",
		KeyValue:  profileID,
	})
}

// Catalogs

func (r *Repo) GetCatalog(ctx context.Context, catalogID string) (*model.Catalog, error) {
	return get[model.Catalog](ctx, r.backend, r.tables.CatalogsTable, CatalogKey(catalogID))
}

func (r *Repo) ListPublicCatalogs(ctx context.Context) ([]model.Catalog, error) {
	return query[model.Catalog](ctx, r.backend, store.QueryInput{
		TableName: r.tables.CatalogsTable,
		IndexName: r.tables.PublicIndex,
		KeyAttr:   "isPublicStr",
		KeyValue:  "true",
		Filter:    store.NotDeleted(),
	})
}

func (r *Repo) ListCatalogsByOwner(ctx context.Context, ownerID string) ([]model.Catalog, error) {
	return query[model.Catalog](ctx, r.backend, store.QueryInput{
		TableName: r.tables.CatalogsTable,
		IndexName: r.tables.OwnerIndex,
		KeyAttr:   "ownerAccountId",
		KeyValue:  ownerID,
		Filter:    store.NotDeleted(),
	})
}

// Campaigns

func (r *Repo) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	return get[model.Campaign](ctx, r.backend, r.tables.CampaignsTable, CampaignKey(campaignID))
}

func (r *Repo) ListCampaignsByProfile(ctx context.Context, profileID string) ([]model.Campaign, error) {
	return query[model.Campaign](ctx, r.backend, store.QueryInput{
		TableName: r.tables.CampaignsTable,
		IndexName: r.tables.ProfileIndex,
		KeyAttr:   "profileId",
		KeyValue:  profileID,
	})
}

func (r *Repo) ListCampaignsByUnit(ctx context.Context, unitCampaignKey string) ([]model.Campaign, error) {
	return query[model.Campaign](ctx, r.backend, store.QueryInput{
		TableName: r.tables.CampaignsTable,
		IndexName: r.tables.UnitCampaignIndex,
		KeyAttr:   "unitCampaignKey",
		KeyValue:  unitCampaignKey,
	})
}

// CatalogInUse reports whether any campaign references catalogID.
func (r *Repo) CatalogInUse(ctx context.Context, catalogID string) (bool, error) {
	result, err := r.backend.Query(ctx, store.QueryInput{
		TableName: r.tables.CampaignsTable,
		IndexName: r.tables.CatalogIndex,
		KeyAttr:   "catalogId",
		KeyValue:  catalogID,
		Limit:     1,
	})
	if err != nil {
		return false, fmt.Errorf("query %s: %w", r.tables.CampaignsTable, err)
	}
	return len(result.Items) > 0, nil
}

// Orders

func (r *Repo) GetOrder(ctx context.Context, campaignID, orderID string) (*model.Order, error) {
	return get[model.Order](ctx, r.backend, r.tables.OrdersTable, OrderKey(campaignID, orderID))
}

func (r *Repo) ListOrdersByCampaign(ctx context.Context, campaignID string) ([]model.Order, error) {
	return query[model.Order](ctx, r.backend, store.QueryInput{
		TableName:      r.tables.OrdersTable,
		KeyAttr:        "campaignId",
		KeyValue:       campaignID,
		ConsistentRead: true,
	})
}

// Shared campaigns

func (r *Repo) GetSharedCampaign(ctx context.Context, code string) (*model.SharedCampaign, error) {
	return get[model.SharedCampaign](ctx, r.backend, r.tables.SharedCampaignsTable, SharedCampaignKey(code))
}

func (r *Repo) ListSharedCampaignsByCreator(ctx context.Context, creatorID string) ([]model.SharedCampaign, error) {
	return query[model.SharedCampaign](ctx, r.backend, store.QueryInput{
		TableName: r.tables.SharedCampaignsTable,
		IndexName: r.tables.CreatorIndex,
		KeyAttr:   "createdBy",
		KeyValue:  creatorID,
	})
}
