package opendrive

import "testing"

func TestLookupKnownType(t *testing.T) {
	cat := DefaultLaneTypeCatalogue()
	info := cat.lookup("driving")
	if info.Discard {
		t.Errorf("driving lanes should not be discarded by default")
	}
	if !info.Permissions.has(PermissionPassenger) {
		t.Errorf("driving lanes should permit passenger traffic")
	}
}

func TestLookupUnknownType(t *testing.T) {
	cat := DefaultLaneTypeCatalogue()
	info := cat.lookup("totally-unknown-type")
	if !info.Discard {
		t.Errorf("an unrecognized lane type should be conservatively discarded")
	}
}

func TestDefaultLaneTypeCatalogueIsACopy(t *testing.T) {
	cat := DefaultLaneTypeCatalogue()
	cat["driving"] = LaneTypeInfo{Discard: true}
	fresh := DefaultLaneTypeCatalogue()
	if fresh["driving"].Discard {
		t.Errorf("mutating one catalogue instance should not affect a freshly built one")
	}
}
