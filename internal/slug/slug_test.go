package slug

import "testing"

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple two words", "Hello World", "hello-world"},
		{"title with year", "Hello World 2026", "hello-world-2026"},
		{"punctuation", "Hello, World! How's it going?", "hello-world-hows-it-going"},
		{"ampersand", "Rock & Roll @ the Arena", "rock-roll-the-arena"},
		{"brackets", "Version (2.0) [Beta]", "version-20-beta"},
		{"french accents", "Crème Brûlée à la carte", "creme-brulee-a-la-carte"},
		{"german umlauts", "Über die Brücke", "uber-die-brucke"},
		{"vietnamese", "Điện thoại di động", "dien-thoai-di-dong"},
		{"sharp s", "Straße", "strasse"},
		{"leading spaces", "   hello world", "hello-world"},
		{"repeated spaces", "hello    world", "hello-world"},
		{"tab", "hello\tworld", "hello-world"},
		{"newline", "hello\nworld", "hello-world"},
		{"dashes around", "  --hello -- world--  ", "hello-world"},
		{"hyphenated word", "well-known fact", "well-known-fact"},
		{"dates", "2026-02-25", "2026-02-25"},
		{"empty", "", ""},
		{"only symbols", "!@#$%^&*()", ""},
		{"single char", "A", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.input)
			if got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	for _, s := range []string{"hello-world", "creme-brulee", "a", "2026-02-25"} {
		if got := Generate(s); got != s {
			t.Errorf("Generate(%q) = %q, want idempotent result %q", s, got, s)
		}
	}
}

func TestFold(t *testing.T) {
	if got := Fold("Ærø façade"); got != "aero facade" {
		t.Errorf("Fold: got %q, want %q", got, "aero facade")
	}
}

func TestValid(t *testing.T) {
	tests := map[string]bool{
		"hello-world": true,
		"Hello-World": false,
		"hello world": false,
		"-hello":      false,
		"":            false,
	}
	for in, want := range tests {
		if got := Valid(in); got != want {
			t.Errorf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}
