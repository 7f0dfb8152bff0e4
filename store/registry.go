package store

// Relationship defines a parent-child relationship for cascade operations.
type Relationship struct {
	// ParentType is the parent entity type (e.g., "profile").
	ParentType string

	// ChildType is the child entity type (e.g., "campaign").
	ChildType string

	// Child is the schema of the table holding children.
	Child TableSchema

	// IndexName is the GSI used to find children by parent (empty = table query).
	IndexName string

	// ParentKeyAttr is the attribute name in child that references parent (e.g., "profileId").
	ParentKeyAttr string

	// ChildIDAttr is the child's own id attribute, used to cascade further down.
	ChildIDAttr string
}

// Registry holds all known entity relationships for cascade operations.
type Registry struct {
	byParent map[string][]Relationship
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{byParent: make(map[string][]Relationship)}
}

// DefaultRegistry returns the relationships of the fundraiser data model in
// deletion order: a profile's shares, invites and campaigns, and a campaign's orders.
func DefaultRegistry(c Config) *Registry {
	schema := func(table string) TableSchema {
		s, _ := c.Schema(table)
		return s
	}
	r := NewRegistry()
	r.Register(Relationship{
		ParentType:    "profile",
		ChildType:     "share",
		Child:         schema(c.SharesTable),
		ParentKeyAttr: "profileId",
	})
	r.Register(Relationship{
		ParentType:    "profile",
		ChildType:     "invite",
		Child:         schema(c.InvitesTable),
		IndexName:     c.ProfileIndex,
		ParentKeyAttr: "profileId",
	})
	r.Register(Relationship{
		ParentType:    "profile",
		ChildType:     "campaign",
		Child:         schema(c.CampaignsTable),
		IndexName:     c.ProfileIndex,
		ParentKeyAttr: "profileId",
		ChildIDAttr:   "campaignId",
	})
	r.Register(Relationship{
		ParentType:    "campaign",
		ChildType:     "order",
		Child:         schema(c.OrdersTable),
		ParentKeyAttr: "campaignId",
	})
	return r
}

// Register adds a relationship to the registry.
func (r *Registry) Register(rel Relationship) {
	r.byParent[rel.ParentType] = append(r.byParent[rel.ParentType], rel)
}

// ChildrenOf returns all child relationships for a given parent type.
func (r *Registry) ChildrenOf(parentType string) []Relationship {
	return r.byParent[parentType]
}

// Lookup returns the relationship between parentType and childType.
func (r *Registry) Lookup(parentType, childType string) (Relationship, bool) {
	for _, rel := range r.byParent[parentType] {
		if rel.ChildType == childType {
			return rel, true
		}
	}
	return Relationship{}, false
}

// HasChildren returns true if the parent type has any registered child relationships.
func (r *Registry) HasChildren(parentType string) bool {
	return len(r.byParent[parentType]) > 0
}
