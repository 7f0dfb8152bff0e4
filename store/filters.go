package store

// NotDeleted returns the filter excluding soft-deleted items.
// Use this when building queries over tables with an isDeleted flag.
func NotDeleted() Condition {
	return Or(AttributeNotExists("isDeleted"), Equal("isDeleted", false))
}

// Owned returns the condition that item exists and belongs to ownerID.
// Pass it as the condition of a write to enforce ownership atomically.
func Owned(idAttr, ownerID string) Condition {
	return And(AttributeExists(idAttr), Equal("ownerAccountId", ownerID))
}
