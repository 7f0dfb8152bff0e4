package service

import (
	"context"
	"maps"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/pipeline"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// ProductInput describes one catalog product.
type ProductInput struct {
	// ProductID is kept when set and generated when empty.
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Price       float64 `json:"price" validate:"gte=0"`
	SortOrder   int     `json:"sortOrder"`
}

// CreateCatalogInput is the payload of CreateCatalog.
type CreateCatalogInput struct {
	CatalogName string         `json:"catalogName" validate:"required,max=200"`
	CatalogType string         `json:"catalogType" validate:"omitempty,oneof=USER_CREATED ADMIN_MANAGED"`
	IsPublic    bool           `json:"isPublic"`
	Products    []ProductInput `json:"products" validate:"required,min=1,dive"`
}

// UpdateCatalogInput replaces a catalog's name, visibility and products.
type UpdateCatalogInput struct {
	CatalogID   string         `json:"catalogId" validate:"required"`
	CatalogName string         `json:"catalogName" validate:"required,max=200"`
	IsPublic    bool           `json:"isPublic"`
	Products    []ProductInput `json:"products" validate:"required,min=1,dive"`
}

// products converts inputs to products, keeping supplied ids and generating
// the missing ones. Duplicate ids are rejected.
func (s *Service) products(in []ProductInput) ([]model.Product, error) {
	seen := make(map[string]bool, len(in))
	out := make([]model.Product, 0, len(in))
	for _, p := range in {
		id := ids.Product(p.ProductID)
		if id == "" {
			id = s.ids.NewID(ids.ProductPrefix)
		}
		if seen[id] {
			return nil, apierr.Validationf("duplicate productId %s", id)
		}
		seen[id] = true
		out = append(out, model.Product{
			ProductID:   id,
			ProductName: p.ProductName,
			Description: p.Description,
			Price:       p.Price,
			SortOrder:   p.SortOrder,
		})
	}
	return out, nil
}

// CreateCatalog creates a catalog owned by the caller. Only admins may create
// ADMIN_MANAGED catalogs.
func (s *Service) CreateCatalog(ctx context.Context, caller access.Identity, in CreateCatalogInput) (*model.Catalog, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.CatalogType == "" {
		in.CatalogType = model.CatalogUserCreated
	}
	if in.CatalogType == model.CatalogAdminManaged && !caller.IsAdmin() {
		return nil, apierr.Forbiddenf("only admins can create managed catalogs")
	}
	products, err := s.products(in.Products)
	if err != nil {
		return nil, err
	}

	now := timestamp(s.now())
	catalog := &model.Catalog{
		CatalogID:      s.ids.NewID(ids.CatalogPrefix),
		CatalogName:    in.CatalogName,
		CatalogType:    in.CatalogType,
		OwnerAccountID: caller.AccountID(),
		Products:       products,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	catalog.SetPublic(in.IsPublic)

	err = s.repo.Put(ctx, s.repo.Tables().CatalogsTable, catalog, store.AttributeNotExists("catalogId"))
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.Conflict, "catalog id already exists")
	}
	s.logger.Info("catalog created", "catalogId", catalog.CatalogID, "products", len(products))
	return catalog, nil
}

// ownedCatalog is the write condition of catalog mutations: the catalog
// exists, is not deleted and belongs to the caller. Admins skip ownership.
func ownedCatalog(caller access.Identity) store.Condition {
	live := store.And(store.AttributeExists("catalogId"), store.NotEqual("isDeleted", true))
	if caller.IsAdmin() {
		return live
	}
	return store.And(live, store.Equal("ownerAccountId", caller.AccountID()))
}

// Stash keys of the catalog pipelines.
const (
	keyCatalogInput = "catalogInput"
	keyCatalogID    = "catalogId"
	keyProducts     = "products"
)

// UpdateCatalog replaces a catalog's name, visibility and products.
// Ownership is enforced by the conditional write itself.
func (s *Service) UpdateCatalog(ctx context.Context, caller access.Identity, in UpdateCatalogInput) (*model.Catalog, error) {
	stash := pipeline.NewStash().
		Set(keyCaller, caller).
		Set(keyCatalogInput, in)
	return pipeline.Output[*model.Catalog](s.updateCatalog.Run(ctx, stash))
}

func (s *Service) updateCatalogPipeline() *pipeline.Pipeline {
	return pipeline.New("updateCatalog", s.logger,
		pipeline.Step{
			Name:   "validate-input",
			Reads:  []string{keyCaller, keyCatalogInput},
			Writes: []string{keyCatalogID, keyProducts},
			Run: func(_ context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				if err := access.Authenticate(pipeline.Must[access.Identity](st, keyCaller)); err != nil {
					return pipeline.Result{}, err
				}
				in := pipeline.Must[UpdateCatalogInput](st, keyCatalogInput)
				if err := s.check(in); err != nil {
					return pipeline.Result{}, err
				}
				products, err := s.products(in.Products)
				if err != nil {
					return pipeline.Result{}, err
				}
				st.Set(keyCatalogID, ids.Catalog(in.CatalogID)).Set(keyProducts, products)
				return pipeline.Continue(), nil
			},
		},
		pipeline.Step{
			Name:   "conditional-update",
			Reads:  []string{keyCaller, keyCatalogInput, keyCatalogID, keyProducts},
			Writes: []string{pipeline.ResultKey},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				caller := pipeline.Must[access.Identity](st, keyCaller)
				in := pipeline.Must[UpdateCatalogInput](st, keyCatalogInput)
				catalogID := pipeline.Must[string](st, keyCatalogID)

				set := map[string]any{
					"catalogName": in.CatalogName,
					"products":    pipeline.Must[[]model.Product](st, keyProducts),
					"updatedAt":   timestamp(s.now()),
				}
				maps.Copy(set, model.PublicAttributes(in.IsPublic))

				item, err := s.repo.Backend().UpdateItem(ctx, s.repo.Tables().CatalogsTable,
					repo.CatalogKey(catalogID), store.Update{Set: set}, ownedCatalog(caller))
				if err != nil {
					return pipeline.Result{}, apierr.FromCondition(err, apierr.Forbidden, "catalog not found or not owned")
				}
				catalog, err := model.FromItem[model.Catalog](item)
				if err != nil {
					return pipeline.Result{}, err
				}
				st.Set(pipeline.ResultKey, catalog)
				return pipeline.Continue(), nil
			},
		},
	)
}

// DeleteCatalog soft-deletes a catalog. A catalog referenced by any campaign
// cannot be deleted. Ownership is verified before the in-use check and again
// by the final conditional write.
func (s *Service) DeleteCatalog(ctx context.Context, caller access.Identity, catalogID string) (bool, error) {
	stash := pipeline.NewStash().
		Set(keyCaller, caller).
		Set(keyCatalogID, ids.Catalog(catalogID))
	return pipeline.Output[bool](s.deleteCatalog.Run(ctx, stash))
}

func (s *Service) deleteCatalogPipeline() *pipeline.Pipeline {
	return pipeline.New("deleteCatalog", s.logger,
		pipeline.Step{
			Name:  "verify-owner",
			Reads: []string{keyCaller, keyCatalogID},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				caller := pipeline.Must[access.Identity](st, keyCaller)
				if err := access.Authenticate(caller); err != nil {
					return pipeline.Result{}, err
				}
				catalogID := pipeline.Must[string](st, keyCatalogID)
				if catalogID == "" {
					return pipeline.Result{}, apierr.Validationf("catalogId is required")
				}
				catalog, err := s.repo.GetCatalog(ctx, catalogID)
				if err != nil {
					return pipeline.Result{}, err
				}
				if catalog == nil || catalog.IsDeleted ||
					(!caller.IsAdmin() && catalog.OwnerAccountID != caller.AccountID()) {
					return pipeline.Result{}, apierr.New(apierr.Forbidden, "catalog not found or not owned")
				}
				return pipeline.Continue(), nil
			},
		},
		pipeline.Step{
			Name:  "check-in-use",
			Reads: []string{keyCatalogID},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				catalogID := pipeline.Must[string](st, keyCatalogID)
				inUse, err := s.repo.CatalogInUse(ctx, catalogID)
				if err != nil {
					return pipeline.Result{}, err
				}
				if inUse {
					return pipeline.Result{}, apierr.New(apierr.CatalogInUse, "catalog is used by one or more campaigns")
				}
				return pipeline.Continue(), nil
			},
		},
		pipeline.Step{
			Name:   "soft-delete",
			Reads:  []string{keyCaller, keyCatalogID},
			Writes: []string{pipeline.ResultKey},
			Run: func(ctx context.Context, st *pipeline.Stash) (pipeline.Result, error) {
				caller := pipeline.Must[access.Identity](st, keyCaller)
				catalogID := pipeline.Must[string](st, keyCatalogID)
				upd := store.Update{Set: map[string]any{
					"isDeleted": true,
					"updatedAt": timestamp(s.now()),
				}}
				_, err := s.repo.Backend().UpdateItem(ctx, s.repo.Tables().CatalogsTable,
					repo.CatalogKey(catalogID), upd, ownedCatalog(caller))
				if err != nil {
					return pipeline.Result{}, apierr.FromCondition(err, apierr.Forbidden, "catalog not found or not owned")
				}
				s.logger.Info("catalog deleted", "catalogId", catalogID)
				st.Set(pipeline.ResultKey, true)
				return pipeline.Continue(), nil
			},
		},
	)
}

// GetCatalog returns a catalog visible to the caller: public, owned, or any
// catalog for an admin. Deleted and invisible catalogs are nil.
func (s *Service) GetCatalog(ctx context.Context, caller access.Identity, catalogID string) (*model.Catalog, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	catalog, err := s.repo.GetCatalog(ctx, ids.Catalog(catalogID))
	if err != nil || catalog == nil || catalog.IsDeleted {
		return nil, err
	}
	if catalog.IsPublic || catalog.OwnerAccountID == caller.AccountID() || caller.IsAdmin() {
		return catalog, nil
	}
	return nil, nil
}

// ListPublicCatalogs returns every public catalog that is not deleted.
func (s *Service) ListPublicCatalogs(ctx context.Context, caller access.Identity) ([]model.Catalog, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	return s.repo.ListPublicCatalogs(ctx)
}

// ListMyCatalogs returns the caller's own live catalogs.
func (s *Service) ListMyCatalogs(ctx context.Context, caller access.Identity) ([]model.Catalog, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	return s.repo.ListCatalogsByOwner(ctx, caller.AccountID())
}

// liveCatalog loads a catalog a campaign may reference. A missing or deleted
// catalog is a BadRequest.
func (s *Service) liveCatalog(ctx context.Context, catalogID string) (*model.Catalog, error) {
	catalog, err := s.repo.GetCatalog(ctx, ids.Catalog(catalogID))
	if err != nil {
		return nil, err
	}
	if catalog == nil || catalog.IsDeleted {
		return nil, apierr.BadRequestf("catalog %s not found", ids.Catalog(catalogID))
	}
	return catalog, nil
}
