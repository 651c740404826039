package catalog

import (
	"fmt"
	"strings"
)

// Category groups items for queries such as "every weapon in this inventory".
type Category string

const (
	CategoryWeapon     Category = "weapon"
	CategoryTool       Category = "tool"
	CategoryArmor      Category = "armor"
	CategoryConsumable Category = "consumable"
	CategoryMaterial   Category = "material"
	CategoryResource   Category = "resource"
	CategoryQuest      Category = "quest"
	CategoryMisc       Category = "misc"
)

var validCategories = map[Category]struct{}{
	CategoryWeapon:     {},
	CategoryTool:       {},
	CategoryArmor:      {},
	CategoryConsumable: {},
	CategoryMaterial:   {},
	CategoryResource:   {},
	CategoryQuest:      {},
	CategoryMisc:       {},
}

// Categories lists every known category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryWeapon,
		CategoryTool,
		CategoryArmor,
		CategoryConsumable,
		CategoryMaterial,
		CategoryResource,
		CategoryQuest,
		CategoryMisc,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := validCategories[c]
	return ok
}

// IsEquipment reports whether items of this category carry durability.
func (c Category) IsEquipment() bool {
	return c == CategoryWeapon || c == CategoryTool || c == CategoryArmor
}

// Item is the static definition of an item kind. Items are owned by a Catalog
// and shared by pointer; two stacks hold the same item iff they point at the
// same definition.
type Item struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Category     Category `json:"category"`
	MaxStackSize int      `json:"maxStackSize"`
	Durability   int      `json:"durability,omitempty"`
}

// Stackable reports whether more than one unit fits in a slot.
func (i *Item) Stackable() bool {
	return i != nil && i.MaxStackSize > 1
}

func (i *Item) String() string {
	if i == nil {
		return "<nil item>"
	}
	return i.ID
}

// ItemParams describes the configurable fields used when constructing an Item.
type ItemParams struct {
	ID           string
	Name         string
	Description  string
	Category     Category
	MaxStackSize int
	Durability   int
}

// NewItem validates params and constructs an Item.
func NewItem(params ItemParams) (Item, error) {
	id := strings.TrimSpace(params.ID)
	if id == "" {
		return Item{}, fmt.Errorf("item id must be provided")
	}
	if !params.Category.Valid() {
		return Item{}, fmt.Errorf("item %q: invalid category %q", id, params.Category)
	}
	if params.MaxStackSize <= 0 {
		return Item{}, fmt.Errorf("item %q: max stack size must be positive, got %d", id, params.MaxStackSize)
	}
	if params.Durability < 0 {
		return Item{}, fmt.Errorf("item %q: durability must not be negative, got %d", id, params.Durability)
	}
	if params.Durability > 0 && !params.Category.IsEquipment() {
		return Item{}, fmt.Errorf("item %q: durability is only valid for equipment, category is %s", id, params.Category)
	}
	if params.Category.IsEquipment() && params.MaxStackSize != 1 && params.Durability > 0 {
		return Item{}, fmt.Errorf("item %q: equipment with durability must not stack", id)
	}

	name := params.Name
	if name == "" {
		name = id
	}
	return Item{
		ID:           id,
		Name:         name,
		Description:  params.Description,
		Category:     params.Category,
		MaxStackSize: params.MaxStackSize,
		Durability:   params.Durability,
	}, nil
}
