package model_test

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/fundraiser/model"
)

func TestCatalog_SetPublicMirrorsString(t *testing.T) {
	var c model.Catalog
	c.SetPublic(true)
	assert.True(t, c.IsPublic)
	assert.Equal(t, "true", c.IsPublicStr)

	c.SetPublic(false)
	assert.False(t, c.IsPublic)
	assert.Equal(t, "false", c.IsPublicStr)

	assert.Equal(t, map[string]any{"isPublic": true, "isPublicStr": "true"}, model.PublicAttributes(true))
}

func TestCatalog_ItemCarriesMirror(t *testing.T) {
	c := model.Catalog{CatalogID: "CATALOG#c1", Products: []model.Product{{ProductID: "PRODUCT#p1", ProductName: "Popcorn", Price: 20}}}
	c.SetPublic(true)

	item, err := model.ToItem(c)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "true"}, item["isPublicStr"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, item["isPublic"])

	products := item["products"].(*types.AttributeValueMemberL).Value
	_, hasDescription := products[0].(*types.AttributeValueMemberM).Value["description"]
	assert.False(t, hasDescription, "nil description is not stored")
}

func TestCampaign_Active(t *testing.T) {
	yes, no := true, false
	assert.True(t, (&model.Campaign{}).Active(), "absent flag means active")
	assert.True(t, (&model.Campaign{IsActive: &yes}).Active())
	assert.False(t, (&model.Campaign{IsActive: &no}).Active())

	item := mustItem(t, model.Campaign{CampaignID: "CAMPAIGN#1"})
	_, ok := item["isActive"]
	assert.False(t, ok)

	got, err := model.FromItem[model.Campaign](item)
	require.NoError(t, err)
	assert.True(t, got.Active())
}

func TestShare_Has(t *testing.T) {
	s := model.Share{Permissions: []string{model.PermRead}}
	assert.True(t, s.Has(model.PermRead))
	assert.False(t, s.Has(model.PermWrite))
	assert.False(t, (&model.Share{}).Has(model.PermRead))
}

func TestShare_PermissionsStoredAsStringSet(t *testing.T) {
	item := mustItem(t, model.Share{ProfileID: "PROFILE#p1", TargetAccountID: "ACCOUNT#a2", Permissions: []string{"READ", "WRITE"}})

	set, ok := item["permissions"].(*types.AttributeValueMemberSS)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"READ", "WRITE"}, set.Value)

	got, err := model.FromItem[model.Share](item)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"READ", "WRITE"}, got.Permissions)
}

func TestPaymentMethod_KeyNotInJSONButStored(t *testing.T) {
	item := mustItem(t, model.PaymentMethod{Name: "Venmo", QRCodeKey: "payment-qr/a1/venmo.png"})
	assert.Equal(t, &types.AttributeValueMemberS{Value: "payment-qr/a1/venmo.png"}, item["qrCodeUrl"])

	item = mustItem(t, model.PaymentMethod{Name: "Zelle"})
	_, ok := item["qrCodeUrl"]
	assert.False(t, ok)
}

func TestValidPermissions(t *testing.T) {
	tests := []struct {
		name  string
		perms []string
		want  bool
	}{
		{"read", []string{"READ"}, true},
		{"read write", []string{"READ", "WRITE"}, true},
		{"empty", nil, false},
		{"unknown", []string{"ADMIN"}, false},
		{"lower case", []string{"read"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.ValidPermissions(tt.perms))
		})
	}
}

func TestFromItems(t *testing.T) {
	items := []map[string]types.AttributeValue{
		mustItem(t, model.Order{CampaignID: "CAMPAIGN#1", OrderID: "ORDER#1", TotalAmount: 12.5}),
		mustItem(t, model.Order{CampaignID: "CAMPAIGN#1", OrderID: "ORDER#2"}),
	}
	orders, err := model.FromItems[model.Order](items)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 12.5, orders[0].TotalAmount)
	assert.Equal(t, "ORDER#2", orders[1].OrderID)
}

func mustItem(t *testing.T, v any) map[string]types.AttributeValue {
	t.Helper()
	item, err := model.ToItem(v)
	require.NoError(t, err)
	return item
}
