package service

import (
	"context"
	"strings"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/model"
)

// Reserved payment methods are offered to every seller and never stored.
var reservedMethods = []string{"Cash", "Check"}

func reservedMethod(name string) (string, bool) {
	for _, r := range reservedMethods {
		if strings.EqualFold(strings.TrimSpace(name), r) {
			return r, true
		}
	}
	return "", false
}

// checkMethodName trims name and rejects reserved names.
func checkMethodName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierr.Validationf("payment method name is required")
	}
	if _, ok := reservedMethod(name); ok {
		return "", apierr.Validationf("%q is a reserved payment method", name)
	}
	return name, nil
}

// findMethod returns the index of the method named name, ignoring case, or -1.
func findMethod(methods []model.PaymentMethod, name string) int {
	name = strings.TrimSpace(name)
	for i, m := range methods {
		if strings.EqualFold(m.Name, name) {
			return i
		}
	}
	return -1
}

// ListPaymentMethods returns the payment methods of a profile's owner as the
// caller sees them: the reserved methods first, then the stored ones. QR
// links are included only when the caller's level shows QR codes. An empty
// profileID lists the caller's own methods.
func (s *Service) ListPaymentMethods(ctx context.Context, caller access.Identity, profileID string) ([]model.PaymentMethodView, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	ownerID, level := caller.AccountID(), access.Owner
	if profileID != "" {
		profile, l, err := s.access.Profile(ctx, profileID, caller, access.Read)
		if denied(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		ownerID, level = ids.Account(profile.OwnerAccountID), l
	}

	account, err := s.repo.GetAccount(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	views := make([]model.PaymentMethodView, 0, len(reservedMethods))
	for _, r := range reservedMethods {
		views = append(views, model.PaymentMethodView{Name: r})
	}
	if account == nil {
		return views, nil
	}
	for _, m := range account.Preferences.PaymentMethods {
		views = append(views, model.PaymentMethodView{
			Name:      m.Name,
			QRCodeURL: s.qrURL(ctx, m, level),
		})
	}
	return views, nil
}

// qrURL presigns the QR image of m when level may see it. Failures degrade
// to no link.
func (s *Service) qrURL(ctx context.Context, m model.PaymentMethod, level access.Level) *string {
	if m.QRCodeKey == "" || !level.QRVisible() || s.media == nil {
		return nil
	}
	u, err := s.media.Presign(ctx, m.QRCodeKey)
	if err != nil {
		s.logger.Warn("failed to presign payment QR", "paymentMethod", m.Name, "error", err)
		return nil
	}
	return &u
}

// CreatePaymentMethod adds a payment method to the caller's account. Names
// are unique ignoring case.
func (s *Service) CreatePaymentMethod(ctx context.Context, caller access.Identity, in PaymentMethodInput) (*model.PaymentMethodView, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	name, err := checkMethodName(in.Name)
	if err != nil {
		return nil, err
	}
	account, err := s.GetMyAccount(ctx, caller)
	if err != nil {
		return nil, err
	}
	methods := account.Preferences.PaymentMethods
	if findMethod(methods, name) >= 0 {
		return nil, apierr.Validationf("payment method %q already exists", name)
	}

	methods = append(methods, model.PaymentMethod{Name: name})
	if _, err := s.savePreferences(ctx, account, model.Preferences{PaymentMethods: methods}); err != nil {
		return nil, err
	}
	return &model.PaymentMethodView{Name: name}, nil
}

// UpdatePaymentMethod renames a payment method, keeping its QR code.
func (s *Service) UpdatePaymentMethod(ctx context.Context, caller access.Identity, currentName string, in PaymentMethodInput) (*model.PaymentMethodView, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	name, err := checkMethodName(in.Name)
	if err != nil {
		return nil, err
	}
	account, err := s.GetMyAccount(ctx, caller)
	if err != nil {
		return nil, err
	}

	methods := append([]model.PaymentMethod(nil), account.Preferences.PaymentMethods...)
	i := findMethod(methods, currentName)
	if i < 0 {
		return nil, apierr.NotFoundf("payment method %q not found", currentName)
	}
	if j := findMethod(methods, name); j >= 0 && j != i {
		return nil, apierr.Validationf("payment method %q already exists", name)
	}
	methods[i].Name = name

	if _, err := s.savePreferences(ctx, account, model.Preferences{PaymentMethods: methods}); err != nil {
		return nil, err
	}
	return &model.PaymentMethodView{Name: name, QRCodeURL: s.qrURL(ctx, methods[i], access.Owner)}, nil
}

// DeletePaymentMethod removes a payment method and, best-effort, its QR image.
func (s *Service) DeletePaymentMethod(ctx context.Context, caller access.Identity, name string) (bool, error) {
	if err := access.Authenticate(caller); err != nil {
		return false, err
	}
	account, err := s.GetMyAccount(ctx, caller)
	if err != nil {
		return false, err
	}
	methods := account.Preferences.PaymentMethods
	i := findMethod(methods, name)
	if i < 0 {
		return false, apierr.NotFoundf("payment method %q not found", name)
	}
	removed := methods[i]

	kept := make([]model.PaymentMethod, 0, len(methods)-1)
	kept = append(kept, methods[:i]...)
	kept = append(kept, methods[i+1:]...)
	if _, err := s.savePreferences(ctx, account, model.Preferences{PaymentMethods: kept}); err != nil {
		return false, err
	}
	if removed.QRCodeKey != "" {
		s.deleteObject(ctx, removed.QRCodeKey)
	}
	return true, nil
}

// SetPaymentMethodQR uploads a QR image for a payment method, replacing any
// previous one.
func (s *Service) SetPaymentMethodQR(ctx context.Context, caller access.Identity, name string, image []byte, contentType string) (*model.PaymentMethodView, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	if s.media == nil {
		return nil, apierr.Internalf("media storage is not configured")
	}
	if len(image) == 0 {
		return nil, apierr.Validationf("QR image is empty")
	}
	if contentType != "image/png" && contentType != "image/jpeg" {
		return nil, apierr.Validationf("unsupported QR image type %q", contentType)
	}
	account, err := s.GetMyAccount(ctx, caller)
	if err != nil {
		return nil, err
	}
	methods := append([]model.PaymentMethod(nil), account.Preferences.PaymentMethods...)
	i := findMethod(methods, name)
	if i < 0 {
		return nil, apierr.NotFoundf("payment method %q not found", name)
	}

	previous := methods[i].QRCodeKey
	key := "payment-qr/" + ids.Strip(account.AccountID, ids.AccountPrefix) + "/" + strings.ToLower(s.ids.NewInviteCode())
	if err := s.media.Upload(ctx, key, image, contentType); err != nil {
		return nil, err
	}
	methods[i].QRCodeKey = key
	if _, err := s.savePreferences(ctx, account, model.Preferences{PaymentMethods: methods}); err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	if previous != "" {
		s.deleteObject(ctx, previous)
	}
	return &model.PaymentMethodView{Name: methods[i].Name, QRCodeURL: s.qrURL(ctx, methods[i], access.Owner)}, nil
}

// ClearPaymentMethodQR removes the QR image of a payment method.
func (s *Service) ClearPaymentMethodQR(ctx context.Context, caller access.Identity, name string) (*model.PaymentMethodView, error) {
	if err := access.Authenticate(caller); err != nil {
		return nil, err
	}
	account, err := s.GetMyAccount(ctx, caller)
	if err != nil {
		return nil, err
	}
	methods := append([]model.PaymentMethod(nil), account.Preferences.PaymentMethods...)
	i := findMethod(methods, name)
	if i < 0 {
		return nil, apierr.NotFoundf("payment method %q not found", name)
	}
	previous := methods[i].QRCodeKey
	if previous == "" {
		return &model.PaymentMethodView{Name: methods[i].Name}, nil
	}

	methods[i].QRCodeKey = ""
	if _, err := s.savePreferences(ctx, account, model.Preferences{PaymentMethods: methods}); err != nil {
		return nil, err
	}
	s.deleteObject(ctx, previous)
	return &model.PaymentMethodView{Name: methods[i].Name}, nil
}

// deleteObject removes a media object, logging instead of failing.
func (s *Service) deleteObject(ctx context.Context, key string) {
	if s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete media object", "key", key, "error", err)
	}
}
