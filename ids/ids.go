// Package ids canonicalizes typed identifiers.
//
// Every identifier stored by the system carries a type prefix (for example
// "ACCOUNT#abc123"). Clients may send identifiers with or without the prefix;
// inbound values are passed through [Normalize] before any storage access and
// outbound values that must look "clean" are passed through [Strip].
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Type prefixes.
const (
	AccountPrefix  = "ACCOUNT#"
	ProfilePrefix  = "PROFILE#"
	CatalogPrefix  = "CATALOG#"
	ProductPrefix  = "PRODUCT#"
	SharePrefix    = "SHARE#"
	CampaignPrefix = "CAMPAIGN#"
	OrderPrefix    = "ORDER#"
)

// Normalize prepends prefix to raw iff it is not already present.
// An empty raw id stays empty.
func Normalize(raw, prefix string) string {
	if raw == "" || strings.HasPrefix(raw, prefix) {
		return raw
	}
	return prefix + raw
}

// Strip removes a leading prefix from id if present.
func Strip(id, prefix string) string {
	return strings.TrimPrefix(id, prefix)
}

// Account normalizes raw to an ACCOUNT# id.
func Account(raw string) string { return Normalize(raw, AccountPrefix) }

// Profile normalizes raw to a PROFILE# id.
func Profile(raw string) string { return Normalize(raw, ProfilePrefix) }

// Catalog normalizes raw to a CATALOG# id.
func Catalog(raw string) string { return Normalize(raw, CatalogPrefix) }

// Product normalizes raw to a PRODUCT# id.
func Product(raw string) string { return Normalize(raw, ProductPrefix) }

// Share normalizes raw to a SHARE# id.
func Share(raw string) string { return Normalize(raw, SharePrefix) }

// Campaign normalizes raw to a CAMPAIGN# id.
func Campaign(raw string) string { return Normalize(raw, CampaignPrefix) }

// Order normalizes raw to an ORDER# id.
func Order(raw string) string { return Normalize(raw, OrderPrefix) }

// Generator produces globally unique identifiers and invite codes.
type Generator interface {
	NewID(prefix string) string
	NewInviteCode() string
}

// UUIDGenerator generates identifiers from random UUIDs.
type UUIDGenerator struct{}

// NewID returns prefix followed by a random UUID.
func (UUIDGenerator) NewID(prefix string) string {
	return prefix + uuid.NewString()
}

// inviteCodeLen keeps codes short enough to type by hand.
const inviteCodeLen = 10

// NewInviteCode returns an unprefixed, upper-case code.
func (UUIDGenerator) NewInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:inviteCodeLen])
}
