package store

// Config holds table and index names for the Store and its callers.
type Config struct {
	// Table names.
	// Defaults: "accounts", "profiles", "catalogs", "campaigns", "orders",
	// "shares", "invites", "shared_campaigns".
	AccountsTable        string
	ProfilesTable        string
	CatalogsTable        string
	CampaignsTable       string
	OrdersTable          string
	SharesTable          string
	InvitesTable         string
	SharedCampaignsTable string

	// OwnerIndex is the GSI on ownerAccountId (profiles, catalogs).
	// Default: "ownerAccountId-index"
	OwnerIndex string

	// PublicIndex is the GSI on isPublicStr (catalogs).
	// Default: "isPublic-index"
	PublicIndex string

	// ProfileIndex is the GSI on profileId (campaigns, orders, invites).
	// Default: "profileId-index"
	ProfileIndex string

	// CatalogIndex is the GSI on catalogId (campaigns).
	// Default: "catalogId-index"
	CatalogIndex string

	// UnitCampaignIndex is the GSI on unitCampaignKey (campaigns).
	// Default: "unitCampaignKey-index"
	UnitCampaignIndex string

	// TargetAccountIndex is the GSI on targetAccountId (shares).
	// Default: "targetAccountId-index"
	TargetAccountIndex string

	// CreatorIndex is the GSI on createdBy (shared campaigns).
	// Default: "createdBy-index"
	CreatorIndex string
}

// DefaultConfig returns the default table layout.
func DefaultConfig() Config {
	c := Config{}
	c.validate()
	return c
}

// Validate fills any empty names with their defaults.
func (c *Config) Validate() {
	c.validate()
}

// validate ensures every name is set.
func (c *Config) validate() {
	setDefault(&c.AccountsTable, "accounts")
	setDefault(&c.ProfilesTable, "profiles")
	setDefault(&c.CatalogsTable, "catalogs")
	setDefault(&c.CampaignsTable, "campaigns")
	setDefault(&c.OrdersTable, "orders")
	setDefault(&c.SharesTable, "shares")
	setDefault(&c.InvitesTable, "invites")
	setDefault(&c.SharedCampaignsTable, "shared_campaigns")
	setDefault(&c.OwnerIndex, "ownerAccountId-index")
	setDefault(&c.PublicIndex, "isPublic-index")
	setDefault(&c.ProfileIndex, "profileId-index")
	setDefault(&c.CatalogIndex, "catalogId-index")
	setDefault(&c.UnitCampaignIndex, "unitCampaignKey-index")
	setDefault(&c.TargetAccountIndex, "targetAccountId-index")
	setDefault(&c.CreatorIndex, "createdBy-index")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Schemas returns the primary key layout of every table. The invites table
// expects TTL on expiresAt so redeemed and expired invites are reclaimed.
func (c Config) Schemas() []TableSchema {
	return []TableSchema{
		{Name: c.AccountsTable, PartitionKey: "accountId"},
		{Name: c.ProfilesTable, PartitionKey: "profileId"},
		{Name: c.CatalogsTable, PartitionKey: "catalogId"},
		{Name: c.CampaignsTable, PartitionKey: "campaignId"},
		{Name: c.OrdersTable, PartitionKey: "campaignId", SortKey: "orderId"},
		{Name: c.SharesTable, PartitionKey: "profileId", SortKey: "targetAccountId"},
		{Name: c.InvitesTable, PartitionKey: "inviteCode", TTLAttribute: "expiresAt"},
		{Name: c.SharedCampaignsTable, PartitionKey: "sharedCampaignCode"},
	}
}

// Schema returns the schema of the named table.
func (c Config) Schema(table string) (TableSchema, bool) {
	for _, s := range c.Schemas() {
		if s.Name == table {
			return s, true
		}
	}
	return TableSchema{}, false
}
