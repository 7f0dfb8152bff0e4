package resolver

import (
	"context"
	"encoding/json"

	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/service"
)

// decode unmarshals raw into a T. Absent arguments decode to the zero value.
func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, apierr.BadRequestf("invalid arguments: %v", err)
	}
	return v, nil
}

// withInput is the argument shape of mutations taking an input object.
type withInput[T any] struct {
	Input T `json:"input"`
}

// input routes a mutation of the form field(input: T).
func input[T any](run func(ctx context.Context, req *request, in T) (any, error)) handlerFunc {
	return func(ctx context.Context, req *request) (any, error) {
		args, err := decode[withInput[T]](req.event.Arguments)
		if err != nil {
			return nil, err
		}
		return run(ctx, req, args.Input)
	}
}

// arguments routes a field whose arguments decode into A.
func arguments[A any](run func(ctx context.Context, req *request, args A) (any, error)) handlerFunc {
	return func(ctx context.Context, req *request) (any, error) {
		args, err := decode[A](req.event.Arguments)
		if err != nil {
			return nil, err
		}
		return run(ctx, req, args)
	}
}

// source routes a nested field resolved from its parent object S.
func source[S any](run func(ctx context.Context, req *request, src S) (any, error)) handlerFunc {
	return func(ctx context.Context, req *request) (any, error) {
		src, err := decode[S](req.event.Source)
		if err != nil {
			return nil, err
		}
		return run(ctx, req, src)
	}
}

type profileArgs struct {
	ProfileID string `json:"profileId"`
}

type shareArgs struct {
	ProfileID       string `json:"profileId"`
	TargetAccountID string `json:"targetAccountId"`
}

type inviteArgs struct {
	ProfileID  string `json:"profileId"`
	InviteCode string `json:"inviteCode"`
}

type catalogArgs struct {
	CatalogID string `json:"catalogId"`
}

type campaignArgs struct {
	CampaignID string `json:"campaignId"`
}

type orderArgs struct {
	CampaignID string `json:"campaignId"`
	OrderID    string `json:"orderId"`
}

type sharedCampaignArgs struct {
	SharedCampaignCode string `json:"sharedCampaignCode"`
}

type paymentMethodArgs struct {
	Name string `json:"name"`
}

type renamePaymentMethodArgs struct {
	CurrentName string                     `json:"currentName"`
	Input       service.PaymentMethodInput `json:"input"`
}

type paymentQRArgs struct {
	Name string `json:"name"`
	// Image is base64 in the GraphQL payload.
	Image       []byte `json:"image"`
	ContentType string `json:"contentType"`
}

func (h *Handler) routeTable() map[string]handlerFunc {
	svc := h.svc
	return map[string]handlerFunc{
		// Accounts and payment methods.
		"Query.getMyAccount": func(ctx context.Context, req *request) (any, error) {
			return svc.GetMyAccount(ctx, req.caller)
		},
		"Mutation.updateMyPreferences": input(func(ctx context.Context, req *request, in service.UpdatePreferencesInput) (any, error) {
			return svc.UpdateMyPreferences(ctx, req.caller, in)
		}),
		"Query.listPaymentMethods": arguments(func(ctx context.Context, req *request, a profileArgs) (any, error) {
			return svc.ListPaymentMethods(ctx, req.caller, a.ProfileID)
		}),
		"SellerProfile.paymentMethods": source(func(ctx context.Context, req *request, p profileArgs) (any, error) {
			return svc.ListPaymentMethods(ctx, req.caller, p.ProfileID)
		}),
		"Mutation.createPaymentMethod": input(func(ctx context.Context, req *request, in service.PaymentMethodInput) (any, error) {
			return svc.CreatePaymentMethod(ctx, req.caller, in)
		}),
		"Mutation.updatePaymentMethod": arguments(func(ctx context.Context, req *request, a renamePaymentMethodArgs) (any, error) {
			return svc.UpdatePaymentMethod(ctx, req.caller, a.CurrentName, a.Input)
		}),
		"Mutation.deletePaymentMethod": arguments(func(ctx context.Context, req *request, a paymentMethodArgs) (any, error) {
			return svc.DeletePaymentMethod(ctx, req.caller, a.Name)
		}),
		"Mutation.setPaymentMethodQR": arguments(func(ctx context.Context, req *request, a paymentQRArgs) (any, error) {
			return svc.SetPaymentMethodQR(ctx, req.caller, a.Name, a.Image, a.ContentType)
		}),
		"Mutation.clearPaymentMethodQR": arguments(func(ctx context.Context, req *request, a paymentMethodArgs) (any, error) {
			return svc.ClearPaymentMethodQR(ctx, req.caller, a.Name)
		}),

		// Profiles.
		"Mutation.createSellerProfile": input(func(ctx context.Context, req *request, in service.CreateProfileInput) (any, error) {
			return svc.CreateSellerProfile(ctx, req.caller, in)
		}),
		"Mutation.updateSellerProfile": input(func(ctx context.Context, req *request, in service.UpdateProfileInput) (any, error) {
			return svc.UpdateSellerProfile(ctx, req.caller, in)
		}),
		"Mutation.deleteSellerProfile": arguments(func(ctx context.Context, req *request, a profileArgs) (any, error) {
			return svc.DeleteSellerProfile(ctx, req.caller, a.ProfileID)
		}),
		"Query.getProfile": arguments(func(ctx context.Context, req *request, a profileArgs) (any, error) {
			return svc.GetProfile(ctx, req.caller, a.ProfileID)
		}),
		"Query.listMyProfiles": func(ctx context.Context, req *request) (any, error) {
			return svc.ListMyProfiles(ctx, req.caller)
		},
		"Query.listSharedProfiles": func(ctx context.Context, req *request) (any, error) {
			return svc.ListSharedProfiles(ctx, req.caller)
		},

		// Shares and invites.
		"Mutation.createProfileShare": input(func(ctx context.Context, req *request, in service.CreateShareInput) (any, error) {
			share, err := svc.CreateProfileShare(ctx, req.caller, in)
			if err != nil {
				return nil, err
			}
			return h.shareOut(ctx, req, share), nil
		}),
		"Mutation.revokeShare": arguments(func(ctx context.Context, req *request, a shareArgs) (any, error) {
			return svc.RevokeShare(ctx, req.caller, a.ProfileID, a.TargetAccountID)
		}),
		"Query.listSharesByProfile": arguments(func(ctx context.Context, req *request, a profileArgs) (any, error) {
			shares, err := svc.ListSharesByProfile(ctx, req.caller, a.ProfileID)
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(shares))
			for i := range shares {
				out = append(out, h.shareOut(ctx, req, &shares[i]))
			}
			return out, nil
		}),
		"Mutation.createProfileInvite": input(func(ctx context.Context, req *request, in service.CreateInviteInput) (any, error) {
			return svc.CreateProfileInvite(ctx, req.caller, in)
		}),
		"Mutation.redeemProfileInvite": arguments(func(ctx context.Context, req *request, a inviteArgs) (any, error) {
			share, err := svc.RedeemProfileInvite(ctx, req.caller, a.InviteCode)
			if err != nil {
				return nil, err
			}
			return h.shareOut(ctx, req, share), nil
		}),
		"Mutation.deleteProfileInvite": arguments(func(ctx context.Context, req *request, a inviteArgs) (any, error) {
			return svc.DeleteProfileInvite(ctx, req.caller, a.ProfileID, a.InviteCode)
		}),
		"Query.listInvitesByProfile": arguments(func(ctx context.Context, req *request, a profileArgs) (any, error) {
			invites, err := svc.ListInvitesByProfile(ctx, req.caller, a.ProfileID)
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(invites))
			for i := range invites {
				out = append(out, h.inviteOut(ctx, req, &invites[i]))
			}
			return out, nil
		}),

		// Catalogs.
		"Mutation.createCatalog": input(func(ctx context.Context, req *request, in service.CreateCatalogInput) (any, error) {
			return svc.CreateCatalog(ctx, req.caller, in)
		}),
		"Mutation.updateCatalog": input(func(ctx context.Context, req *request, in service.UpdateCatalogInput) (any, error) {
			return svc.UpdateCatalog(ctx, req.caller, in)
		}),
		"Mutation.deleteCatalog": arguments(func(ctx context.Context, req *request, a catalogArgs) (any, error) {
			return svc.DeleteCatalog(ctx, req.caller, a.CatalogID)
		}),
		"Query.getCatalog": arguments(func(ctx context.Context, req *request, a catalogArgs) (any, error) {
			return svc.GetCatalog(ctx, req.caller, a.CatalogID)
		}),
		"Campaign.catalog": source(func(ctx context.Context, req *request, c catalogArgs) (any, error) {
			return svc.GetCatalog(ctx, req.caller, c.CatalogID)
		}),
		"Query.listPublicCatalogs": func(ctx context.Context, req *request) (any, error) {
			return svc.ListPublicCatalogs(ctx, req.caller)
		},
		"Query.listMyCatalogs": func(ctx context.Context, req *request) (any, error) {
			return svc.ListMyCatalogs(ctx, req.caller)
		},

		// Campaigns.
		"Mutation.createCampaign": input(func(ctx context.Context, req *request, in service.CreateCampaignInput) (any, error) {
			return svc.CreateCampaign(ctx, req.caller, in)
		}),
		"Mutation.updateCampaign": input(func(ctx context.Context, req *request, in service.UpdateCampaignInput) (any, error) {
			return svc.UpdateCampaign(ctx, req.caller, in)
		}),
		"Mutation.deleteCampaign": arguments(func(ctx context.Context, req *request, a campaignArgs) (any, error) {
			return svc.DeleteCampaign(ctx, req.caller, a.CampaignID)
		}),
		"Query.getCampaign": arguments(func(ctx context.Context, req *request, a campaignArgs) (any, error) {
			return svc.GetCampaign(ctx, req.caller, a.CampaignID)
		}),
		"Query.listCampaignsByProfile": arguments(func(ctx context.Context, req *request, a profileArgs) (any, error) {
			return svc.ListCampaignsByProfile(ctx, req.caller, a.ProfileID)
		}),
		"SellerProfile.campaigns": source(func(ctx context.Context, req *request, p profileArgs) (any, error) {
			return svc.ListCampaignsByProfile(ctx, req.caller, p.ProfileID)
		}),
		"Query.findCampaignsByUnit": arguments(func(ctx context.Context, req *request, in service.FindUnitCampaignInput) (any, error) {
			return svc.FindCampaignsByUnit(ctx, req.caller, in)
		}),

		// Orders.
		"Mutation.createOrder": input(func(ctx context.Context, req *request, in service.CreateOrderInput) (any, error) {
			return svc.CreateOrder(ctx, req.caller, in)
		}),
		"Mutation.updateOrder": input(func(ctx context.Context, req *request, in service.UpdateOrderInput) (any, error) {
			return svc.UpdateOrder(ctx, req.caller, in)
		}),
		"Mutation.deleteOrder": arguments(func(ctx context.Context, req *request, a orderArgs) (any, error) {
			return svc.DeleteOrder(ctx, req.caller, a.CampaignID, a.OrderID)
		}),
		"Query.getOrder": arguments(func(ctx context.Context, req *request, a orderArgs) (any, error) {
			return svc.GetOrder(ctx, req.caller, a.CampaignID, a.OrderID)
		}),
		"Query.listOrdersByCampaign": arguments(func(ctx context.Context, req *request, a campaignArgs) (any, error) {
			return svc.ListOrdersByCampaign(ctx, req.caller, a.CampaignID)
		}),
		"Campaign.orders": source(func(ctx context.Context, req *request, c campaignArgs) (any, error) {
			return svc.ListOrdersByCampaign(ctx, req.caller, c.CampaignID)
		}),

		// Shared campaigns.
		"Mutation.createSharedCampaign": input(func(ctx context.Context, req *request, in service.CreateSharedCampaignInput) (any, error) {
			return svc.CreateSharedCampaign(ctx, req.caller, in)
		}),
		"Query.getSharedCampaign": arguments(func(ctx context.Context, req *request, a sharedCampaignArgs) (any, error) {
			return svc.GetSharedCampaign(ctx, req.caller, a.SharedCampaignCode)
		}),
		"Query.listMySharedCampaigns": func(ctx context.Context, req *request) (any, error) {
			return svc.ListMySharedCampaigns(ctx, req.caller)
		},
		"Mutation.deactivateSharedCampaign": arguments(func(ctx context.Context, req *request, a sharedCampaignArgs) (any, error) {
			return svc.DeactivateSharedCampaign(ctx, req.caller, a.SharedCampaignCode)
		}),
	}
}
