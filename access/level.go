// Package access decides what a caller may do with a seller profile and the
// campaigns and orders under it.
package access

import (
	"slices"
	"strings"

	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/model"
)

// Level is the access a caller holds on a profile. Levels are ordered:
// every operation allowed at one level is allowed at all higher levels.
type Level int

const (
	Undetermined Level = iota
	Denied
	Read
	Write
	Owner
)

func (l Level) String() string {
	switch l {
	case Denied:
		return "DENIED"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case Owner:
		return "OWNER"
	}
	return "UNDETERMINED"
}

// CanRead reports whether the level allows reading the profile and its records.
func (l Level) CanRead() bool { return l >= Read }

// CanWrite reports whether the level allows changing campaigns and orders.
func (l Level) CanWrite() bool { return l >= Write }

// CanManage reports whether the level allows sharing or deleting the profile.
func (l Level) CanManage() bool { return l == Owner }

// QRVisible reports whether payment QR codes are shown at this level.
func (l Level) QRVisible() bool { return l >= Write }

// Permissions returns the share permissions equivalent to the level.
func (l Level) Permissions() []string {
	switch {
	case l >= Write:
		return []string{model.PermRead, model.PermWrite}
	case l == Read:
		return []string{model.PermRead}
	}
	return nil
}

// Resolve computes the level of callerID on a resource owned by ownerID.
// The owner needs no share; anyone else gets what their share grants.
func Resolve(ownerID, callerID string, share *model.Share) Level {
	if ownerID != "" && ownerID == callerID {
		return Owner
	}
	if share == nil {
		return Denied
	}
	switch {
	case share.Has(model.PermWrite):
		return Write
	case share.Has(model.PermRead):
		return Read
	}
	return Denied
}

// AdminGroup is the identity group allowed to manage any catalog.
const AdminGroup = "admin"

// Identity is the authenticated caller.
type Identity struct {
	Sub    string
	Groups []string
}

// Authenticated reports whether the identity carries a subject.
func (i Identity) Authenticated() bool {
	return i.Sub != ""
}

// AccountID returns the caller's canonical account id.
func (i Identity) AccountID() string {
	return ids.Account(i.Sub)
}

// IsAdmin reports membership of the admin group.
func (i Identity) IsAdmin() bool {
	return slices.ContainsFunc(i.Groups, func(g string) bool {
		return strings.EqualFold(g, AdminGroup)
	})
}
