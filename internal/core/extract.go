package core

// Nested payload keys read while flattening.
const (
	fieldMenus     = "menus"
	fieldMenuItems = "menu_items"
	fieldDishes    = "dishes"
)

// menuRecords flattens every restaurant's menus and resolves restaurant_id
// through the restaurant stage's ids. A menu without menu_items falls back to
// its dishes. The items stay on the record for the next stage.
func menuRecords(restaurants []Record, restaurantIDs IDMap) []Record {
	var out []Record
	for _, restaurant := range restaurants {
		restaurantID := restaurantIDs.resolve(restaurant)

		for _, menu := range asRecords(restaurant[fieldMenus]) {
			items := menu[fieldMenuItems]
			if isBlank(items) {
				if dishes, ok := menu[fieldDishes]; ok {
					items = dishes
				}
			}

			out = append(out, Record{
				"name":          menu["name"],
				"description":   menu["description"],
				"restaurant_id": restaurantID,
				fieldMenuItems:  items,
			})
		}
	}
	return out
}

// menuItemRecords flattens every menu's items, carrying the owning menu's
// resolved id as menu_id.
func menuItemRecords(menus []Record, menuIDs IDMap) []Record {
	var out []Record
	for _, menu := range menus {
		menuID := menuIDs.resolve(menu)

		for _, item := range asRecords(menu[fieldMenuItems]) {
			out = append(out, Record{
				"name":        item["name"],
				"description": item["description"],
				"price":       item["price"],
				"picture_url": item["picture_url"],
				"menu_id":     menuID,
			})
		}
	}
	return out
}

// associationRecords builds one menu/item link per flattened item, before
// item deduplication, so a shared item keeps one price per menu.
func associationRecords(items []Record, itemIDs IDMap) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, Record{
			"price":        item["price"],
			"menu_id":      item["menu_id"],
			"menu_item_id": itemIDs.resolve(item),
		})
	}
	return out
}

// asRecords interprets a decoded list of objects. Elements that are not
// objects become empty records so required-field validation reports them.
func asRecords(v any) []Record {
	switch list := v.(type) {
	case nil:
		return nil
	case []Record:
		return list
	case []map[string]any:
		out := make([]Record, len(list))
		for i, m := range list {
			out[i] = Record(m)
		}
		return out
	case []any:
		out := make([]Record, len(list))
		for i, elem := range list {
			out[i] = asRecord(elem)
		}
		return out
	}
	return nil
}

func asRecord(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	}
	return Record{}
}
