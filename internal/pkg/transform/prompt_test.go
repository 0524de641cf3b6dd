package transform

import (
	"strings"
	"testing"
)

func TestStylePrompt_KnownStyles(t *testing.T) {
	for style := range stylePrompts {
		prompt := StylePrompt(style)
		if prompt == defaultPrompt {
			t.Fatalf("style %q should have its own prompt", style)
		}
		if !strings.HasPrefix(prompt, "Transform into") {
			t.Fatalf("unexpected prompt shape for %q: %q", style, prompt)
		}
	}
}

func TestStylePrompt_FallsBackForUnknown(t *testing.T) {
	for _, style := range []string{"", "cubist", "ECOMMERCE_v2"} {
		if got := StylePrompt(style); got != defaultPrompt {
			t.Fatalf("StylePrompt(%q) should fall back to the generic prompt", style)
		}
	}
}

func TestStylePrompt_CaseInsensitive(t *testing.T) {
	if StylePrompt(" Ecommerce ") != stylePrompts["ecommerce"] {
		t.Fatalf("style lookup should trim and lowercase")
	}
}

func TestNormalizeQuality(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "low", want: "low"},
		{in: "MEDIUM", want: "medium"},
		{in: " high ", want: "high"},
		{in: "", want: "medium"},
		{in: "ultra", want: "medium"},
	}

	for _, tt := range tests {
		if got := NormalizeQuality(tt.in); got != tt.want {
			t.Fatalf("NormalizeQuality(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQualitySize(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "low", want: 512},
		{in: "medium", want: 768},
		{in: "high", want: 1024},
		{in: "bogus", want: 768},
	}

	for _, tt := range tests {
		if got := QualitySize(tt.in); got != tt.want {
			t.Fatalf("QualitySize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
