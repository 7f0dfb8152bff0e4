package resolver

import (
	"context"

	"github.com/jacentio/fundraiser/fields"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/model"
)

// profileFields resolves the profile fields shown on shares and invites.
// Parents pointing at the same profile share one lookup per response.
func (h *Handler) profileFields(ctx context.Context, req *request, profileID string) map[string]any {
	return h.profiles.Fields(ctx, req.profiles.Slot(profileID), profileID, fields.ProfileFieldNames)
}

// shareOut shapes a share for the schema. The target account goes out as
// the bare subject.
func (h *Handler) shareOut(ctx context.Context, req *request, s *model.Share) map[string]any {
	out := h.profileFields(ctx, req, s.ProfileID)
	out["profileId"] = s.ProfileID
	out["targetAccountId"] = ids.Strip(s.TargetAccountID, ids.AccountPrefix)
	out["shareId"] = s.ShareID
	out["permissions"] = s.Permissions
	out["createdBy"] = s.CreatedBy
	out["createdAt"] = s.CreatedAt
	if s.UpdatedAt != "" {
		out["updatedAt"] = s.UpdatedAt
	}
	return out
}

func (h *Handler) inviteOut(ctx context.Context, req *request, inv *model.Invite) map[string]any {
	out := h.profileFields(ctx, req, inv.ProfileID)
	out["inviteCode"] = inv.InviteCode
	out["profileId"] = inv.ProfileID
	out["permissions"] = inv.Permissions
	out["expiresAt"] = inv.ExpiresAt
	out["used"] = inv.Used
	out["createdBy"] = inv.CreatedBy
	out["createdAt"] = inv.CreatedAt
	return out
}
