package store_test

import (
	"testing"

	"github.com/jacentio/fundraiser/store"
)

func TestNewRegistry(t *testing.T) {
	r := store.NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil Registry")
	}
	if r.HasChildren("profile") {
		t.Error("expected empty registry")
	}
}

func TestRegistry_ChildrenOf(t *testing.T) {
	r := store.NewRegistry()
	r.Register(store.Relationship{ParentType: "unit", ChildType: "profile", ParentKeyAttr: "unitId"})
	r.Register(store.Relationship{ParentType: "profile", ChildType: "campaign", ParentKeyAttr: "profileId"})
	r.Register(store.Relationship{ParentType: "profile", ChildType: "invite", ParentKeyAttr: "profileId"})

	if got := len(r.ChildrenOf("profile")); got != 2 {
		t.Errorf("expected 2 children for profile, got %d", got)
	}
	if got := len(r.ChildrenOf("campaign")); got != 0 {
		t.Errorf("expected 0 children for campaign, got %d", got)
	}
	if !r.HasChildren("unit") {
		t.Error("expected unit to have children")
	}
	if r.HasChildren("invite") {
		t.Error("expected invite to have no children")
	}
}

func TestDefaultRegistry(t *testing.T) {
	cfg := store.DefaultConfig()
	r := store.DefaultRegistry(cfg)

	children := r.ChildrenOf("profile")
	want := []string{"share", "invite", "campaign"}
	if len(children) != len(want) {
		t.Fatalf("expected %d profile children, got %d", len(want), len(children))
	}
	for i, rel := range children {
		if rel.ChildType != want[i] {
			t.Errorf("child %d: expected %q, got %q", i, want[i], rel.ChildType)
		}
		if rel.ParentKeyAttr != "profileId" {
			t.Errorf("child %s: expected ParentKeyAttr profileId, got %q", rel.ChildType, rel.ParentKeyAttr)
		}
	}

	shares, ok := r.Lookup("profile", "share")
	if !ok {
		t.Fatal("expected profile->share relationship")
	}
	if shares.IndexName != "" {
		t.Errorf("expected shares to be queried on the table, got index %q", shares.IndexName)
	}
	if shares.Child.SortKey != "targetAccountId" {
		t.Errorf("expected shares sort key targetAccountId, got %q", shares.Child.SortKey)
	}

	campaigns, _ := r.Lookup("profile", "campaign")
	if campaigns.ChildIDAttr != "campaignId" {
		t.Errorf("expected campaign ChildIDAttr campaignId, got %q", campaigns.ChildIDAttr)
	}
	if !r.HasChildren("campaign") {
		t.Error("expected campaign to have orders")
	}

	if _, ok := r.Lookup("campaign", "share"); ok {
		t.Error("expected no campaign->share relationship")
	}
}
