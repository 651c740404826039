package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewItemValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  ItemParams
		wantErr string
	}{
		{name: "missing id", params: ItemParams{Category: CategoryMisc, MaxStackSize: 1}, wantErr: "id must be provided"},
		{name: "bad category", params: ItemParams{ID: "x", Category: "gizmo", MaxStackSize: 1}, wantErr: "invalid category"},
		{name: "zero stack", params: ItemParams{ID: "x", Category: CategoryMisc}, wantErr: "max stack size"},
		{name: "negative durability", params: ItemParams{ID: "x", Category: CategoryTool, MaxStackSize: 1, Durability: -1}, wantErr: "durability must not be negative"},
		{name: "durability on material", params: ItemParams{ID: "x", Category: CategoryMaterial, MaxStackSize: 5, Durability: 3}, wantErr: "only valid for equipment"},
		{name: "stacking equipment", params: ItemParams{ID: "x", Category: CategoryWeapon, MaxStackSize: 4, Durability: 3}, wantErr: "must not stack"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewItem(tc.params)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewItemDefaultsNameToID(t *testing.T) {
	item, err := NewItem(ItemParams{ID: "pebble", Category: CategoryResource, MaxStackSize: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Name != "pebble" {
		t.Fatalf("expected name to default to id, got %q", item.Name)
	}
	if !item.Category.Valid() || item.Category.IsEquipment() {
		t.Fatalf("unexpected category flags for %s", item.Category)
	}
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	item := mustDefine(ItemParams{ID: "wood", Category: CategoryResource, MaxStackSize: 10})
	if _, err := New(item, item); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestCatalogLookupSharesDefinitions(t *testing.T) {
	c := Default()
	first, ok := c.Lookup(ItemWood)
	if !ok {
		t.Fatalf("expected %s to resolve", ItemWood)
	}
	second := c.MustLookup(ItemWood)
	if first != second {
		t.Fatalf("expected lookups to return the same definition pointer")
	}
	if _, err := c.Resolve("missing"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
}

func TestCatalogItemsSortedByID(t *testing.T) {
	items := Default().Items()
	if len(items) == 0 {
		t.Fatalf("expected default catalog to contain items")
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].ID >= items[i].ID {
			t.Fatalf("expected sorted ids, got %q before %q", items[i-1].ID, items[i].ID)
		}
	}
}

func TestLoadAcceptsArrayAndObject(t *testing.T) {
	array := `[
		{"id": "wood", "category": "resource", "maxStackSize": 64},
		{"id": "axe", "category": "Tool", "maxStackSize": 1, "durability": 40}
	]`
	c, err := Load(strings.NewReader(array))
	if err != nil {
		t.Fatalf("unexpected error loading array: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", c.Len())
	}
	axe := c.MustLookup("axe")
	if axe.Category != CategoryTool || axe.Durability != 40 {
		t.Fatalf("unexpected axe definition: %+v", axe)
	}

	object := `{
		"rope": {"category": "material", "maxStackSize": 16},
		"stone": {"id": "stone", "category": "resource", "maxStackSize": 64}
	}`
	c, err = Load(strings.NewReader(object))
	if err != nil {
		t.Fatalf("unexpected error loading object: %v", err)
	}
	if rope := c.MustLookup("rope"); rope.MaxStackSize != 16 {
		t.Fatalf("expected rope stack size 16, got %d", rope.MaxStackSize)
	}
}

func TestLoadRejectsMismatchedKeys(t *testing.T) {
	object := `{"rope": {"id": "string", "category": "material", "maxStackSize": 16}}`
	if _, err := Load(strings.NewReader(object)); err == nil {
		t.Fatalf("expected mismatched id error")
	}
	if _, err := Load(strings.NewReader(`"nope"`)); err == nil {
		t.Fatalf("expected unexpected token error")
	}
	if _, err := Load(strings.NewReader(`[{"id": "x", "category": "misc", "maxStackSize": 0}]`)); err == nil {
		t.Fatalf("expected validation error for zero stack size")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	if err := os.WriteFile(path, []byte(`[{"id": "gem", "category": "misc", "maxStackSize": 5}]`), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Lookup("gem"); !ok {
		t.Fatalf("expected gem to be loaded")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSchemaDescribesDocuments(t *testing.T) {
	data, err := SchemaJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(data)
	for _, want := range []string{"Satchel Item Catalog", "maxStackSize", "category"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected schema to mention %q", want)
		}
	}
}
