package resolve

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme LLC", "acme llc"},
		{"ACME, LLC", "acme llc"},
		{"  Acme   Holdings  ", "acme holdings"},
		{"O'Brien & Sons, Inc.", "o brien sons inc"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Acme LLC", "ACME, LLC", 1},      // Same name, registry spelling
		{"Acme", "Acme LLC", 1},           // Suffix dropped
		{"Acme", "Acme Holdings", 1},      // Containment
		{"Acme LLC", "Apex LLC", 0},       // No shared tokens beyond suffix
		{"Acme LLC", "", 0},
		{"LLC", "LLC", 1}, // Suffix-only names still compare equal
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarityPartialOverlap(t *testing.T) {
	// "acme global" vs "acme pacific": shared {acme}, union {acme, global,
	// pacific}
	got := Similarity("Acme Global LLC", "Acme Pacific LLC")
	want := 1.0 / 3.0
	if got != want {
		t.Errorf("Similarity = %v, want %v", got, want)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Acme LLC", "Acme Holdings Corp"},
		{"Jane Smith", "Jane A Smith"},
		{"Globex", "Initech"},
	}
	for _, p := range pairs {
		if Similarity(p[0], p[1]) != Similarity(p[1], p[0]) {
			t.Errorf("Similarity(%q, %q) not symmetric", p[0], p[1])
		}
	}
}
