package normalize

import "testing"

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// ISO 639-1 codes (passthrough)
		{"en", "en"},
		{"de", "de"},
		{"fr", "fr"},
		// ISO 639-2 codes
		{"eng", "en"},
		{"deu", "de"},
		{"ger", "de"}, // bibliographic variant
		// Locale codes
		{"en-US", "en"},
		{"en_GB", "en"},
		{"de-AT", "de"},
		// Language names
		{"english", "en"},
		{"English", "en"},
		{"ENGLISH", "en"},
		{"German", "de"},
		{"farsi", "fa"},
		// Edge cases
		{"", ""},
		{"  en  ", "en"},
		{"xyz", ""},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := LanguageCode(tt.input)
			if result != tt.expected {
				t.Errorf("LanguageCode(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"deu", "German"},
		{"  french  ", "French"},
		{"ja", "Japanese"},
		{"nonsense", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Language(tt.input); got != tt.expected {
				t.Errorf("Language(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text untouched", "  A quiet story.  ", "A quiet story."},
		{"html converted", "<p>A <strong>bold</strong> tale.</p>", "A **bold** tale."},
		{"null bytes dropped", "Tale\x00", "Tale"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Description(tt.input); got != tt.expected {
				t.Errorf("Description(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	if got := Title("  The   Long\tNight "); got != "The Long Night" {
		t.Errorf("Title() = %q", got)
	}
}

func TestIdentifier(t *testing.T) {
	if got := Identifier(" 978-0-306-40615-7 "); got != "9780306406157" {
		t.Errorf("Identifier() = %q", got)
	}
	if got := Identifier("b000fc0pda"); got != "B000FC0PDA" {
		t.Errorf("Identifier() = %q", got)
	}
}
