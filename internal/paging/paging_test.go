// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package paging

import "testing"

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		page       int
		size       int
		wantPage   int
		wantPages  int
		wantOffset int
	}{
		{name: "first page", total: 25, page: 1, size: 10, wantPage: 1, wantPages: 3, wantOffset: 0},
		{name: "last partial page", total: 25, page: 3, size: 10, wantPage: 3, wantPages: 3, wantOffset: 20},
		{name: "beyond last clamps", total: 25, page: 5, size: 10, wantPage: 3, wantPages: 3, wantOffset: 20},
		{name: "zero page clamps", total: 25, page: 0, size: 10, wantPage: 1, wantPages: 3, wantOffset: 0},
		{name: "negative page clamps", total: 25, page: -4, size: 10, wantPage: 1, wantPages: 3, wantOffset: 0},
		{name: "exact multiple", total: 30, page: 3, size: 10, wantPage: 3, wantPages: 3, wantOffset: 20},
		{name: "empty source", total: 0, page: 1, size: 10, wantPage: 1, wantPages: 0, wantOffset: 0},
		{name: "empty source high page", total: 0, page: 9, size: 10, wantPage: 1, wantPages: 0, wantOffset: 0},
		{name: "zero size", total: 3, page: 2, size: 0, wantPage: 2, wantPages: 3, wantOffset: 1},
		{name: "single item", total: 1, page: 1, size: 20, wantPage: 1, wantPages: 1, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compute(tt.total, tt.page, tt.size)
			if m.Page != tt.wantPage {
				t.Errorf("Page: got %d, want %d", m.Page, tt.wantPage)
			}
			if m.TotalPages != tt.wantPages {
				t.Errorf("TotalPages: got %d, want %d", m.TotalPages, tt.wantPages)
			}
			if m.Offset() != tt.wantOffset {
				t.Errorf("Offset: got %d, want %d", m.Offset(), tt.wantOffset)
			}
			if m.TotalCount != tt.total {
				t.Errorf("TotalCount: got %d, want %d", m.TotalCount, tt.total)
			}
		})
	}
}

// TestComputeCeiling checks ceil(N/S) across a sweep of inputs.
func TestComputeCeiling(t *testing.T) {
	for total := 0; total <= 50; total++ {
		for size := 1; size <= 12; size++ {
			m := Compute(total, 1, size)
			want := total / size
			if total%size != 0 {
				want++
			}
			if m.TotalPages != want {
				t.Fatalf("Compute(%d, 1, %d).TotalPages = %d, want %d", total, size, m.TotalPages, want)
			}
		}
	}
}

func TestSlice(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i + 1
	}

	tests := []struct {
		name      string
		page      int
		wantFirst int
		wantLast  int
		wantLen   int
		wantPage  int
	}{
		{name: "page 1", page: 1, wantFirst: 1, wantLast: 10, wantLen: 10, wantPage: 1},
		{name: "page 2", page: 2, wantFirst: 11, wantLast: 20, wantLen: 10, wantPage: 2},
		{name: "page 3", page: 3, wantFirst: 21, wantLast: 25, wantLen: 5, wantPage: 3},
		{name: "page 5 clamps", page: 5, wantFirst: 21, wantLast: 25, wantLen: 5, wantPage: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Slice(items, tt.page, 10)
			if len(p.Items) != tt.wantLen {
				t.Fatalf("len(Items): got %d, want %d", len(p.Items), tt.wantLen)
			}
			if p.Items[0] != tt.wantFirst || p.Items[len(p.Items)-1] != tt.wantLast {
				t.Errorf("Items: got %d..%d, want %d..%d",
					p.Items[0], p.Items[len(p.Items)-1], tt.wantFirst, tt.wantLast)
			}
			if p.Page != tt.wantPage {
				t.Errorf("Page: got %d, want %d", p.Page, tt.wantPage)
			}
		})
	}
}

func TestSliceEmpty(t *testing.T) {
	p := Slice([]string{}, 3, 10)
	if len(p.Items) != 0 {
		t.Errorf("len(Items): got %d, want 0", len(p.Items))
	}
	if p.Page != 1 || p.TotalPages != 0 || p.TotalCount != 0 {
		t.Errorf("Meta: got %+v, want page 1 of 0", p.Meta)
	}

	p = Slice[string](nil, 1, 10)
	if len(p.Items) != 0 {
		t.Errorf("nil source: len(Items) = %d, want 0", len(p.Items))
	}
}

func TestNavigation(t *testing.T) {
	m := Compute(25, 2, 10)
	if !m.HasPrev() || !m.HasNext() {
		t.Errorf("page 2 of 3: HasPrev=%v HasNext=%v, want both true", m.HasPrev(), m.HasNext())
	}
	if m.Prev() != 1 || m.Next() != 3 {
		t.Errorf("Prev/Next: got %d/%d, want 1/3", m.Prev(), m.Next())
	}

	last := Compute(25, 3, 10)
	if last.HasNext() {
		t.Error("last page: HasNext() = true")
	}
	if last.Next() != 3 {
		t.Errorf("last.Next() = %d, want 3", last.Next())
	}

	pages := m.Pages()
	if len(pages) != 3 || pages[0] != 1 || pages[2] != 3 {
		t.Errorf("Pages() = %v, want [1 2 3]", pages)
	}

	empty := Compute(0, 1, 10)
	if empty.HasPrev() || empty.HasNext() || len(empty.Pages()) != 0 {
		t.Errorf("empty listing navigation: %+v", empty)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		size, def, max, want int
	}{
		{0, 10, 100, 10},
		{-3, 20, 100, 20},
		{15, 10, 100, 15},
		{500, 10, 100, 100},
		{500, 10, 0, 500},
	}
	for _, tt := range tests {
		if got := Normalize(tt.size, tt.def, tt.max); got != tt.want {
			t.Errorf("Normalize(%d, %d, %d) = %d, want %d", tt.size, tt.def, tt.max, got, tt.want)
		}
	}
}
