package docstore

import "testing"

func TestQuery_BuilderDoesNotAlias(t *testing.T) {
	base := Collection("users").Where("role", OpEqual, "staff")
	a := base.Where("chips", OpGreater, 0)
	b := base.Where("chips", OpLess, 0)

	if len(base.Filters) != 1 || len(a.Filters) != 2 || len(b.Filters) != 2 {
		t.Fatalf("unexpected filter lengths: %d %d %d", len(base.Filters), len(a.Filters), len(b.Filters))
	}
	if a.Filters[1].Op != OpGreater || b.Filters[1].Op != OpLess {
		t.Fatal("builder methods share backing arrays")
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("different queries must have different fingerprints")
	}
}

func TestQuery_ApplyOrdersAndSkipsMissingField(t *testing.T) {
	docs := []Document{
		{ID: "a", Data: map[string]any{"chips": float64(10)}},
		{ID: "b", Data: map[string]any{}},
		{ID: "c", Data: map[string]any{"chips": float64(30)}},
		{ID: "d", Data: map[string]any{"chips": float64(20)}},
	}
	got := Collection("users").OrderBy("chips", Desc).apply(docs)
	if len(got) != 3 {
		t.Fatalf("expected doc without order field excluded, got %d", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "d" || got[2].ID != "a" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestQuery_FilterTypeMismatch(t *testing.T) {
	docs := []Document{
		{ID: "a", Data: map[string]any{"chips": "many"}},
		{ID: "b", Data: map[string]any{"chips": float64(5)}},
	}
	got := Collection("users").Where("chips", OpGreaterEqual, 1).apply(docs)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected result: %+v", got)
	}
}
