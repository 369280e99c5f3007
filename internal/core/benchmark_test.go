package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Payload Benchmarks
// ============================================================================

// largeDoc builds a document with n restaurants of two menus and five items each.
func largeDoc(n int) string {
	var b strings.Builder
	b.WriteString(`{"restaurants":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"name":"R%d","menus":[`, i)
		for m := 0; m < 2; m++ {
			if m > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"name":"menu %d","menu_items":[`, m)
			for j := 0; j < 5; j++ {
				if j > 0 {
					b.WriteString(",")
				}
				fmt.Fprintf(&b, `{"name":"item %d","price":%d.5}`, (i+j)%50, j+1)
			}
			b.WriteString("]}")
		}
		b.WriteString("]}")
	}
	b.WriteString("]}")
	return b.String()
}

func BenchmarkDecodePayload(b *testing.B) {
	doc := largeDoc(500)
	b.SetBytes(int64(len(doc)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := DecodePayload(strings.NewReader(doc), FormatJSON); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPermitPayload(b *testing.B) {
	p, err := DecodePayload(strings.NewReader(largeDoc(500)), FormatJSON)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = PermitPayload(p)
	}
}

// ============================================================================
// Key Benchmarks
// ============================================================================

func BenchmarkKeyOf(b *testing.B) {
	rec := Record{"name": "lunch", "restaurant_id": int64(42)}
	fields := []string{"name", "restaurant_id"}

	for i := 0; i < b.N; i++ {
		_ = keyOf(rec, fields)
	}
}

// ============================================================================
// Import Benchmarks
// ============================================================================

func BenchmarkImportRestaurants(b *testing.B) {
	p, err := DecodePayload(strings.NewReader(largeDoc(100)), FormatJSON)
	if err != nil {
		b.Fatal(err)
	}
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		report, err := svc.ImportRestaurants(ctx, p)
		if err != nil {
			b.Fatal(err)
		}
		if !report.General.Success {
			b.Fatalf("import failed: %v", report.General.Errors)
		}
	}
}
