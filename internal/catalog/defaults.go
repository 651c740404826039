package catalog

const (
	ItemWood         = "wood"
	ItemStone        = "stone"
	ItemIronOre      = "iron_ore"
	ItemRope         = "rope"
	ItemBerries      = "berries"
	ItemHealthPotion = "health_potion"
	ItemStoneAxe     = "stone_axe"
	ItemIronPickaxe  = "iron_pickaxe"
	ItemIronSword    = "iron_sword"
	ItemLeatherTunic = "leather_tunic"
	ItemOldKey       = "old_key"
)

// Default returns the built-in catalog used when no catalog file is configured.
func Default() *Catalog {
	c, err := New(
		mustDefine(ItemParams{ID: ItemWood, Name: "Wood", Category: CategoryResource, MaxStackSize: 64, Description: "Logs gathered from felled trees."}),
		mustDefine(ItemParams{ID: ItemStone, Name: "Stone", Category: CategoryResource, MaxStackSize: 64, Description: "Rough stone chipped from boulders."}),
		mustDefine(ItemParams{ID: ItemIronOre, Name: "Iron Ore", Category: CategoryMaterial, MaxStackSize: 32, Description: "Unrefined ore ready for smelting."}),
		mustDefine(ItemParams{ID: ItemRope, Name: "Rope", Category: CategoryMaterial, MaxStackSize: 16, Description: "Braided plant fibre."}),
		mustDefine(ItemParams{ID: ItemBerries, Name: "Berries", Category: CategoryConsumable, MaxStackSize: 20, Description: "A handful of wild berries."}),
		mustDefine(ItemParams{ID: ItemHealthPotion, Name: "Health Potion", Category: CategoryConsumable, MaxStackSize: 10, Description: "Restores a small amount of health."}),
		mustDefine(ItemParams{ID: ItemStoneAxe, Name: "Stone Axe", Category: CategoryTool, MaxStackSize: 1, Durability: 60, Description: "Crude but effective for chopping."}),
		mustDefine(ItemParams{ID: ItemIronPickaxe, Name: "Iron Pickaxe", Category: CategoryTool, MaxStackSize: 1, Durability: 250, Description: "Breaks stone and ore."}),
		mustDefine(ItemParams{ID: ItemIronSword, Name: "Iron Sword", Category: CategoryWeapon, MaxStackSize: 1, Durability: 200, Description: "A balanced blade."}),
		mustDefine(ItemParams{ID: ItemLeatherTunic, Name: "Leather Tunic", Category: CategoryArmor, MaxStackSize: 1, Durability: 120, Description: "Light body armour."}),
		mustDefine(ItemParams{ID: ItemOldKey, Name: "Old Key", Category: CategoryQuest, MaxStackSize: 1, Description: "Opens something, somewhere."}),
	)
	if err != nil {
		panic(err)
	}
	return c
}

func mustDefine(params ItemParams) Item {
	item, err := NewItem(params)
	if err != nil {
		panic(err)
	}
	return item
}
