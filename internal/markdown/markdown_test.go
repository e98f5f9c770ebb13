// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"heading", "# Title", `<h1 id="title">Title</h1>`},
		{"emphasis", "some *word*", "<em>word</em>"},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", "<table>"},
		{"raw html", "<div class=\"x\">kept</div>", `<div class="x">kept</div>`},
		{"strikethrough", "~~gone~~", "<del>gone</del>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.src)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("ToHTML(%q) = %q, want it to contain %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	src := "# Hello\n\nThis is **bold** text.\n\n```go\nfunc main() {}\n```\n\nMore words here."

	if got := Excerpt(src, 0); got != "Hello This is bold text. More words here." {
		t.Errorf("full excerpt: got %q", got)
	}
	if got := Excerpt(src, 14); got != "Hello This is..." {
		t.Errorf("short excerpt: got %q", got)
	}
}
