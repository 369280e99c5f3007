package core

import (
	"testing"
)

func TestMenuRecords(t *testing.T) {
	restaurantIDs := newIDMap([]string{"name"})
	restaurantIDs.put(Record{"name": "A"}, 1)

	restaurants := []Record{
		{"name": "A", "menus": []any{
			map[string]any{"name": "lunch", "description": "noon", "menu_items": []any{map[string]any{"name": "Burger"}}},
			map[string]any{"name": "dinner", "dishes": []any{map[string]any{"name": "Soup"}}},
		}},
		{"name": "Unknown", "menus": []any{map[string]any{"name": "brunch"}}},
		{"name": "NoMenus"},
	}

	menus := menuRecords(restaurants, restaurantIDs)

	if len(menus) != 3 {
		t.Fatalf("len(menus) = %d, want 3", len(menus))
	}
	if menus[0]["restaurant_id"] != int64(1) {
		t.Errorf("lunch restaurant_id = %v, want 1", menus[0]["restaurant_id"])
	}
	if menus[0]["description"] != "noon" {
		t.Errorf("lunch description = %v, want noon", menus[0]["description"])
	}
	if items := asRecords(menus[1][fieldMenuItems]); len(items) != 1 || items[0]["name"] != "Soup" {
		t.Errorf("dinner items = %v, want dishes fallback [Soup]", items)
	}
	if menus[2]["restaurant_id"] != nil {
		t.Errorf("unresolved restaurant_id = %v, want nil", menus[2]["restaurant_id"])
	}
}

func TestMenuItemRecords(t *testing.T) {
	menuIDs := newIDMap([]string{"name", "restaurant_id"})
	menuIDs.put(Record{"name": "lunch", "restaurant_id": int64(1)}, 7)

	menus := []Record{{
		"name":          "lunch",
		"restaurant_id": int64(1),
		fieldMenuItems: []any{
			map[string]any{"name": "Burger", "price": 9.0, "picture_url": "http://x/b.png", "secret": "drop"},
		},
	}}

	items := menuItemRecords(menus, menuIDs)

	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	item := items[0]
	if item["menu_id"] != int64(7) {
		t.Errorf("menu_id = %v, want 7", item["menu_id"])
	}
	if item["picture_url"] != "http://x/b.png" {
		t.Errorf("picture_url = %v", item["picture_url"])
	}
	if _, ok := item["secret"]; ok {
		t.Error("unexpected field carried into item record")
	}
}

func TestAssociationRecords(t *testing.T) {
	itemIDs := newIDMap([]string{"name"})
	itemIDs.put(Record{"name": "Burger"}, 3)

	items := []Record{
		{"name": "Burger", "price": 9.0, "menu_id": int64(1)},
		{"name": "Burger", "price": 12.0, "menu_id": int64(2)},
		{"name": "Ghost", "price": 1.0, "menu_id": int64(2)},
	}

	links := associationRecords(items, itemIDs)

	if len(links) != 3 {
		t.Fatalf("len(links) = %d, want 3", len(links))
	}
	if links[1]["menu_item_id"] != int64(3) || links[1]["price"] != 12.0 || links[1]["menu_id"] != int64(2) {
		t.Errorf("links[1] = %v", links[1])
	}
	if links[2]["menu_item_id"] != nil {
		t.Errorf("unresolved menu_item_id = %v, want nil", links[2]["menu_item_id"])
	}
}

func TestAsRecords(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"nil", nil, 0},
		{"records", []Record{{}, {}}, 2},
		{"maps", []map[string]any{{"a": 1}}, 1},
		{"mixed list keeps position of non-objects", []any{map[string]any{"a": 1}, "oops", 3}, 3},
		{"scalar", "nope", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(asRecords(tt.in)); got != tt.want {
				t.Errorf("len(asRecords(%#v)) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
