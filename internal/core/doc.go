// Package core provides the business logic for restaurant menu imports.
//
// The package has no transport dependencies; the HTTP handlers, the async
// worker and the CLI all call [Service.ImportRestaurants] with a decoded
// [Payload].
//
// # Pipeline
//
// An import runs four stages inside one transaction, in this order:
//
//  1. restaurants      keyed by name
//  2. menus            keyed by (name, restaurant_id)
//  3. menu_items       keyed by name
//  4. menu_menu_items  keyed by (menu_id, menu_item_id), carrying price
//
// Each stage flattens the nested payload into [Record] rows, resolves
// references to the rows written by the previous stage through an [IDMap],
// drops duplicate keys (first occurrence wins) and upserts the rest in
// batches. A stage whose written row count differs from its input, or whose
// rows violate a not-null column, aborts the import: the transaction is
// rolled back and the [Report] says which stage failed.
//
// Menus read their items from "menu_items", falling back to "dishes" when
// "menu_items" is absent.
//
// # Reports and errors
//
// A rolled back import is not an error: ImportRestaurants returns a report
// with general.success false. A returned error means a storage fault or no
// free import slot ([ErrTooManyImports]).
//
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - IMP001-IMP006: Import errors (busy, unreadable document, not found)
//   - DB001-DB008: Database errors (constraints, connections)
//   - REQ001-REQ002: Request lifecycle (cancelled, timed out)
//
// # Reads
//
// [Catalog] serves the restaurant and menu lookups behind the read
// endpoints.
package core
