package models

import "testing"

// TestContentHasCategory verifies membership checks against CategoryIDs.
func TestContentHasCategory(t *testing.T) {
	c := &Content{CategoryIDs: []int64{3, 7, 11}}

	tests := []struct {
		name string
		id   int64
		want bool
	}{
		{name: "first", id: 3, want: true},
		{name: "last", id: 11, want: true},
		{name: "missing", id: 4, want: false},
		{name: "zero", id: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.HasCategory(tt.id); got != tt.want {
				t.Errorf("HasCategory(%d) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

// TestContentFirstCategory verifies the nil and non-nil cases.
func TestContentFirstCategory(t *testing.T) {
	var c Content
	if c.FirstCategory() != nil {
		t.Error("FirstCategory() on empty content should be nil")
	}

	c.Categories = []Category{{ID: 5, Title: "News"}, {ID: 6, Title: "Tech"}}
	first := c.FirstCategory()
	if first == nil || first.ID != 5 {
		t.Errorf("FirstCategory() = %+v, want ID 5", first)
	}
}

// TestProductMainPhoto verifies that the first photo is the main one.
func TestProductMainPhoto(t *testing.T) {
	var p Product
	if p.MainPhoto() != nil {
		t.Error("MainPhoto() without photos should be nil")
	}

	p.Photos = []ProductPhoto{{ID: 1, FileName: "a.jpg"}, {ID: 2, FileName: "b.jpg"}}
	if got := p.MainPhoto(); got == nil || got.FileName != "a.jpg" {
		t.Errorf("MainPhoto() = %+v, want a.jpg", got)
	}
}

// TestCategoryKindValid checks the known kinds.
func TestCategoryKindValid(t *testing.T) {
	tests := []struct {
		kind CategoryKind
		want bool
	}{
		{CategoryKindBlog, true},
		{CategoryKindProduct, true},
		{CategoryKind(""), false},
		{CategoryKind("Blog"), false},
	}

	for _, tt := range tests {
		if got := tt.kind.Valid(); got != tt.want {
			t.Errorf("CategoryKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestUploadedFileHumanSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		f := &UploadedFile{Size: tt.size}
		if got := f.HumanSize(); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
