package language

import "testing"

func TestForTranslator(t *testing.T) {
	tests := map[string]string{
		"zh":        "zh-cn",
		"Chinese":   "zh-cn",
		" zh-CN ":   "zh-cn",
		"hebrew":    "iw",
		"taiwanese": "zh-tw",
		"english":   "en",
		"eo":        "eo",
		"Klingon":   "klingon",
	}
	for in, want := range tests {
		if got := ForTranslator(in); got != want {
			t.Errorf("ForTranslator(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestForAPI(t *testing.T) {
	tests := map[string]string{
		"zh-cn":    "zh",
		"chinese":  "zh",
		"zh":       "zh",
		"hebrew":   "he",
		"he":       "he",
		"zh_tw":    "zh-tw",
		"japanese": "ja",
		"eo":       "eo",
	}
	for in, want := range tests {
		if got := ForAPI(in); got != want {
			t.Errorf("ForAPI(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNeedsTranslation(t *testing.T) {
	tests := []struct {
		detected, target string
		want             bool
	}{
		{"en", "zh", true},
		{"zh", "zh", false},
		{"zh-cn", "zh", false},
		{"ZH", "zh", false},
		{"en", "", false},
	}
	for _, tt := range tests {
		if got := NeedsTranslation(tt.detected, tt.target); got != tt.want {
			t.Errorf("NeedsTranslation(%q, %q) = %v, want %v", tt.detected, tt.target, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"en":     "English",
		"zh-cn":  "Chinese",
		"french": "French",
		"":       "",
		"!!":     "!!",
	}
	for in, want := range tests {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}
