package core

import "fmt"

// modelConfigs is the static per-model table driving the four import stages.
// Order is the stage order.
var modelConfigs = []ModelConfig{
	{
		Name:           ModelRestaurants,
		Table:          "restaurants",
		UniqueBy:       []string{"name"},
		UpdateFields:   []string{"name"},
		RequiredFields: []string{"name"},
	},
	{
		Name:           ModelMenus,
		Table:          "menus",
		UniqueBy:       []string{"name", "restaurant_id"},
		UpdateFields:   []string{"name", "description", "restaurant_id"},
		RequiredFields: []string{"name"},
	},
	{
		Name:           ModelMenuItems,
		Table:          "menu_items",
		UniqueBy:       []string{"name"},
		UpdateFields:   []string{"name", "description", "price", "picture_url"},
		RequiredFields: []string{"name"},
	},
	{
		Name:           ModelMenuMenuItems,
		Table:          "menu_menu_items",
		UniqueBy:       []string{"menu_id", "menu_item_id"},
		UpdateFields:   []string{"menu_id", "menu_item_id", "price"},
		FailureMessage: MessageAssociateFailed,
	},
}

var modelsByName = func() map[ModelName]ModelConfig {
	m := make(map[ModelName]ModelConfig, len(modelConfigs))
	for _, cfg := range modelConfigs {
		if _, exists := m[cfg.Name]; exists {
			panic(fmt.Sprintf("model already registered: %s", cfg.Name))
		}
		m[cfg.Name] = cfg
	}
	return m
}()

// LookupModel returns the configuration for a model.
// Returns false if not found.
func LookupModel(name ModelName) (ModelConfig, bool) {
	cfg, ok := modelsByName[name]
	return cfg, ok
}

// Models returns every model configuration in stage order.
func Models() []ModelConfig {
	out := make([]ModelConfig, len(modelConfigs))
	copy(out, modelConfigs)
	return out
}

// mustModel is used by the stages, which only ever ask for known models.
func mustModel(name ModelName) ModelConfig {
	cfg, ok := LookupModel(name)
	if !ok {
		panic(fmt.Sprintf("unknown model: %s", name))
	}
	return cfg
}
