package language

import "testing"

func TestIsAuto(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", true},
		{" ", true},
		{"auto", true},
		{"AUTO", true},
		{"en", false},
		{"english", false},
	}
	for _, tt := range tests {
		if got := IsAuto(tt.input); got != tt.expected {
			t.Errorf("IsAuto(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestIsKnown(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", true},
		{"auto", true},
		{"en", true},
		{"eng", true},
		{"fre", true},
		{"English", true},
		{"mandarin", true},
		// Codes outside the table are still code-shaped and accepted.
		{"cs", true},
		{"el", true},
		{"he", true},
		{"tha", true},
		{"klingon", false},
		{"e", false},
		{"e1", false},
	}
	for _, tt := range tests {
		if got := IsKnown(tt.input); got != tt.expected {
			t.Errorf("IsKnown(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"fra", "fr"},
		{"fre", "fr"},
		{"ger", "de"},
		{"chi", "zh"},
		{"dut", "nl"},
		{"english", "en"},
		{"French", "fr"},
		{"GERMAN", "de"},
		{"mandarin", "zh"},
		{"auto", ""},
		{"", ""},
		// Code-shaped hints the table does not know pass through.
		{"cs", "cs"},
		{"TH", "th"},
		{"ces", "ces"},
		{"klingon", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"fre", "French"},
		{"zh", "Chinese"},
		{"english", "English"},
		{"", "Auto"},
		{"auto", "Auto"},
		{"xyz", "XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
