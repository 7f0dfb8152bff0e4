package service

import (
	"context"
	"errors"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// GetMyAccount returns the caller's account, creating it on first access.
func (s *Service) GetMyAccount(ctx context.Context, caller access.Identity) (*model.Account, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	account, err := s.repo.GetAccount(ctx, caller.AccountID())
	if err != nil || account != nil {
		return account, err
	}

	now := timestamp(s.now())
	account = &model.Account{
		AccountID: caller.AccountID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.repo.Put(ctx, s.repo.Tables().AccountsTable, account, store.AttributeNotExists("accountId"))
	if errors.Is(err, store.ErrConditionFailed) {
		// Created by a concurrent request.
		return s.repo.GetAccount(ctx, caller.AccountID())
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("account created", "accountId", account.AccountID)
	return account, nil
}

// PaymentMethodInput names one custom payment method.
type PaymentMethodInput struct {
	Name string `json:"name" validate:"required,max=50"`
}

// UpdatePreferencesInput replaces the caller's stored preferences.
type UpdatePreferencesInput struct {
	// PaymentMethods is the full ordered list of stored methods. Methods are
	// matched by name, so their QR codes follow them; methods left out are
	// removed.
	PaymentMethods []PaymentMethodInput `json:"paymentMethods" validate:"dive"`
}

// UpdateMyPreferences replaces the caller's preferences.
func (s *Service) UpdateMyPreferences(ctx context.Context, caller access.Identity, in UpdatePreferencesInput) (*model.Account, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	account, err := s.GetMyAccount(ctx, caller)
	if err != nil {
		return nil, err
	}

	current := account.Preferences.PaymentMethods
	methods := make([]model.PaymentMethod, 0, len(in.PaymentMethods))
	for _, m := range in.PaymentMethods {
		name, err := checkMethodName(m.Name)
		if err != nil {
			return nil, err
		}
		if findMethod(methods, name) >= 0 {
			return nil, apierr.Validationf("payment method %q is listed twice", name)
		}
		method := model.PaymentMethod{Name: name}
		if i := findMethod(current, name); i >= 0 {
			method.QRCodeKey = current[i].QRCodeKey
		}
		methods = append(methods, method)
	}

	updated, err := s.savePreferences(ctx, account, model.Preferences{PaymentMethods: methods})
	if err != nil {
		return nil, err
	}
	for _, m := range current {
		if m.QRCodeKey != "" && findMethod(methods, m.Name) < 0 {
			s.deleteObject(ctx, m.QRCodeKey)
		}
	}
	return updated, nil
}

// savePreferences writes prefs if the account is unchanged since it was read.
func (s *Service) savePreferences(ctx context.Context, account *model.Account, prefs model.Preferences) (*model.Account, error) {
	upd := store.Update{Set: map[string]any{
		"preferences": prefs,
		"updatedAt":   timestamp(s.now()),
	}}
	cond := store.And(store.AttributeExists("accountId"), store.Equal("updatedAt", account.UpdatedAt))
	item, err := s.repo.Backend().UpdateItem(ctx, s.repo.Tables().AccountsTable, repo.AccountKey(account.AccountID), upd, cond)
	if err != nil {
		return nil, apierr.FromCondition(err, apierr.Conflict, "account was modified concurrently, retry")
	}
	return model.FromItem[model.Account](item)
}
