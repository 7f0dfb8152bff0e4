// Package model defines the records stored in the fundraiser tables.
//
// Field names double as the DynamoDB attribute names and the GraphQL field
// names, so the same struct is marshalled to an item and returned to the API.
// Attributes tagged `dynamodbav:"-"` are computed per request and never stored.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/fundraiser/store"
)

// Share permissions.
const (
	PermRead  = "READ"
	PermWrite = "WRITE"
)

// Catalog types.
const (
	CatalogUserCreated  = "USER_CREATED"
	CatalogAdminManaged = "ADMIN_MANAGED"
)

// Account is the record of an authenticated user.
type Account struct {
	AccountID   string      `json:"accountId" dynamodbav:"accountId"`
	Email       string      `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Preferences Preferences `json:"preferences" dynamodbav:"preferences"`
	CreatedAt   string      `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt   string      `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Preferences holds per-account settings.
type Preferences struct {
	PaymentMethods []PaymentMethod `json:"paymentMethods" dynamodbav:"paymentMethods"`
}

// PaymentMethod is a stored payment option. QRCodeKey is the object-storage
// key of the uploaded QR image, never a URL.
type PaymentMethod struct {
	Name      string `json:"name" dynamodbav:"name"`
	QRCodeKey string `json:"-" dynamodbav:"qrCodeUrl,omitempty"`
}

// PaymentMethodView is a payment method as returned to a viewer. QRCodeURL is
// nil when there is no QR code or the viewer may not see it.
type PaymentMethodView struct {
	Name      string  `json:"name"`
	QRCodeURL *string `json:"qrCodeUrl"`
}

// SellerProfile is a seller (usually a scout) whose campaigns are tracked.
type SellerProfile struct {
	ProfileID      string `json:"profileId" dynamodbav:"profileId"`
	OwnerAccountID string `json:"ownerAccountId" dynamodbav:"ownerAccountId"`
	SellerName     string `json:"sellerName" dynamodbav:"sellerName"`
	UnitType       string `json:"unitType,omitempty" dynamodbav:"unitType,omitempty"`
	UnitNumber     int    `json:"unitNumber,omitempty" dynamodbav:"unitNumber,omitempty"`
	City           string `json:"city,omitempty" dynamodbav:"city,omitempty"`
	State          string `json:"state,omitempty" dynamodbav:"state,omitempty"`
	CreatedAt      string `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt      string `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`

	IsOwner     bool     `json:"isOwner" dynamodbav:"-"`
	Permissions []string `json:"permissions,omitempty" dynamodbav:"-"`
}

// Catalog is a list of products campaigns sell from.
type Catalog struct {
	CatalogID      string    `json:"catalogId" dynamodbav:"catalogId"`
	CatalogName    string    `json:"catalogName" dynamodbav:"catalogName"`
	CatalogType    string    `json:"catalogType" dynamodbav:"catalogType"`
	OwnerAccountID string    `json:"ownerAccountId" dynamodbav:"ownerAccountId"`
	IsPublic       bool      `json:"isPublic" dynamodbav:"isPublic"`
	IsPublicStr    string    `json:"-" dynamodbav:"isPublicStr"`
	Products       []Product `json:"products" dynamodbav:"products"`
	IsDeleted      bool      `json:"isDeleted" dynamodbav:"isDeleted"`
	CreatedAt      string    `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt      string    `json:"updatedAt" dynamodbav:"updatedAt"`
}

// SetPublic sets isPublic and its string mirror used by the public index.
// It is the only code that may write either attribute.
func (c *Catalog) SetPublic(public bool) {
	c.IsPublic = public
	c.IsPublicStr = strconv.FormatBool(public)
}

// PublicAttributes returns the isPublic pair for an update expression.
func PublicAttributes(public bool) map[string]any {
	var c Catalog
	c.SetPublic(public)
	return map[string]any{"isPublic": c.IsPublic, "isPublicStr": c.IsPublicStr}
}

// Product returns the product with the given id.
func (c *Catalog) Product(productID string) (Product, bool) {
	for _, p := range c.Products {
		if p.ProductID == productID {
			return p, true
		}
	}
	return Product{}, false
}

// Product is a catalog entry.
type Product struct {
	ProductID   string  `json:"productId" dynamodbav:"productId"`
	ProductName string  `json:"productName" dynamodbav:"productName"`
	Description *string `json:"description" dynamodbav:"description,omitempty"`
	Price       float64 `json:"price" dynamodbav:"price"`
	SortOrder   int     `json:"sortOrder" dynamodbav:"sortOrder"`
}

// Campaign is one selling season of a profile.
type Campaign struct {
	CampaignID         string `json:"campaignId" dynamodbav:"campaignId"`
	ProfileID          string `json:"profileId" dynamodbav:"profileId"`
	CatalogID          string `json:"catalogId" dynamodbav:"catalogId"`
	CampaignName       string `json:"campaignName" dynamodbav:"campaignName"`
	CampaignYear       int    `json:"campaignYear" dynamodbav:"campaignYear"`
	StartDate          string `json:"startDate,omitempty" dynamodbav:"startDate,omitempty"`
	EndDate            string `json:"endDate,omitempty" dynamodbav:"endDate,omitempty"`
	UnitType           string `json:"unitType,omitempty" dynamodbav:"unitType,omitempty"`
	UnitNumber         int    `json:"unitNumber,omitempty" dynamodbav:"unitNumber,omitempty"`
	City               string `json:"city,omitempty" dynamodbav:"city,omitempty"`
	State              string `json:"state,omitempty" dynamodbav:"state,omitempty"`
	SharedCampaignCode string `json:"sharedCampaignCode,omitempty" dynamodbav:"sharedCampaignCode,omitempty"`
	UnitCampaignKey    string `json:"unitCampaignKey,omitempty" dynamodbav:"unitCampaignKey,omitempty"`
	IsActive           *bool  `json:"isActive" dynamodbav:"isActive,omitempty"`
	CreatedAt          string `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt          string `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}

// Active reports isActive, treating an absent flag as true. Records created
// before the flag existed carry none.
func (c *Campaign) Active() bool {
	return c.IsActive == nil || *c.IsActive
}

// Order is a customer order within a campaign.
type Order struct {
	CampaignID    string     `json:"campaignId" dynamodbav:"campaignId"`
	OrderID       string     `json:"orderId" dynamodbav:"orderId"`
	ProfileID     string     `json:"profileId" dynamodbav:"profileId"`
	CustomerName  string     `json:"customerName" dynamodbav:"customerName"`
	CustomerPhone string     `json:"customerPhone,omitempty" dynamodbav:"customerPhone,omitempty"`
	LineItems     []LineItem `json:"lineItems" dynamodbav:"lineItems"`
	PaymentMethod string     `json:"paymentMethod" dynamodbav:"paymentMethod"`
	TotalAmount   float64    `json:"totalAmount" dynamodbav:"totalAmount"`
	OrderDate     string     `json:"orderDate" dynamodbav:"orderDate"`
	Notes         string     `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
	CreatedAt     string     `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     string     `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}

// LineItem is a priced product quantity on an order.
type LineItem struct {
	ProductID    string  `json:"productId" dynamodbav:"productId"`
	ProductName  string  `json:"productName" dynamodbav:"productName"`
	Quantity     int     `json:"quantity" dynamodbav:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit" dynamodbav:"pricePerUnit"`
	Subtotal     float64 `json:"subtotal" dynamodbav:"subtotal"`
}

// Share grants another account delegated access to a profile.
type Share struct {
	ProfileID       string   `json:"profileId" dynamodbav:"profileId"`
	TargetAccountID string   `json:"targetAccountId" dynamodbav:"targetAccountId"`
	ShareID         string   `json:"shareId" dynamodbav:"shareId"`
	Permissions     []string `json:"permissions" dynamodbav:"permissions,stringset,omitempty"`
	CreatedBy       string   `json:"createdBy" dynamodbav:"createdBy"`
	CreatedAt       string   `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt       string   `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}

// Has reports whether the share grants perm.
func (s *Share) Has(perm string) bool {
	return hasPermission(s.Permissions, perm)
}

// Invite is a single-use, time-limited token that becomes a Share.
type Invite struct {
	InviteCode  string   `json:"inviteCode" dynamodbav:"inviteCode"`
	ProfileID   string   `json:"profileId" dynamodbav:"profileId"`
	Permissions []string `json:"permissions" dynamodbav:"permissions,stringset,omitempty"`
	ExpiresAt   int64    `json:"expiresAt" dynamodbav:"expiresAt"`
	Used        bool     `json:"used" dynamodbav:"used"`
	UsedBy      string   `json:"usedBy,omitempty" dynamodbav:"usedBy,omitempty"`
	UsedAt      string   `json:"usedAt,omitempty" dynamodbav:"usedAt,omitempty"`
	CreatedBy   string   `json:"createdBy" dynamodbav:"createdBy"`
	CreatedAt   string   `json:"createdAt" dynamodbav:"createdAt"`
}

// SharedCampaign is a campaign template a unit leader hands out by code.
type SharedCampaign struct {
	SharedCampaignCode string `json:"sharedCampaignCode" dynamodbav:"sharedCampaignCode"`
	CreatedBy          string `json:"createdBy" dynamodbav:"createdBy"`
	CatalogID          string `json:"catalogId" dynamodbav:"catalogId"`
	CampaignName       string `json:"campaignName" dynamodbav:"campaignName"`
	CampaignYear       int    `json:"campaignYear" dynamodbav:"campaignYear"`
	StartDate          string `json:"startDate,omitempty" dynamodbav:"startDate,omitempty"`
	EndDate            string `json:"endDate,omitempty" dynamodbav:"endDate,omitempty"`
	UnitType           string `json:"unitType" dynamodbav:"unitType"`
	UnitNumber         int    `json:"unitNumber" dynamodbav:"unitNumber"`
	City               string `json:"city" dynamodbav:"city"`
	State              string `json:"state" dynamodbav:"state"`
	CreatorMessage     string `json:"creatorMessage,omitempty" dynamodbav:"creatorMessage,omitempty"`
	IsActive           bool   `json:"isActive" dynamodbav:"isActive"`
	CreatedAt          string `json:"createdAt" dynamodbav:"createdAt"`
}

// ValidPermissions reports whether perms is a non-empty subset of READ/WRITE.
func ValidPermissions(perms []string) bool {
	if len(perms) == 0 {
		return false
	}
	for _, p := range perms {
		if p != PermRead && p != PermWrite {
			return false
		}
	}
	return true
}

func hasPermission(perms []string, perm string) bool {
	for _, p := range perms {
		if strings.EqualFold(p, perm) {
			return true
		}
	}
	return false
}

// ToItem marshals a record into a storage item.
func ToItem(v any) (store.Item, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return item, nil
}

// FromItem unmarshals a storage item into a record.
func FromItem[T any](item store.Item) (*T, error) {
	var v T
	if err := attributevalue.UnmarshalMap(item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return &v, nil
}

// FromItems unmarshals a list of storage items.
func FromItems[T any](items []store.Item) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := FromItem[T](item)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
