package security

import (
	"strings"
	"testing"
)

// TestSanitizeString tests the SanitizeString function
func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"simple string", "hello world", "hello world"},
		{"whitespace trim", "  hello world  ", "hello world"},
		{"null bytes removed", "hello\x00world", "helloworld"},
		{"multiple null bytes", "\x00test\x00input\x00", "testinput"},
		{"preserves newlines", "hello\nworld", "hello\nworld"},
		{"preserves tabs", "hello\tworld", "hello\tworld"},
		{"removes control chars", "hello\x01\x02\x03world", "helloworld"},
		{"unicode preserved", "hello 世界", "hello 世界"},
		{"emoji preserved", "hello 👋", "hello 👋"},
		{"mixed content", "  hello\x00\x01world  ", "helloworld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeString(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeString(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestStripHTMLTags tests the StripHTMLTags function
func TestStripHTMLTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no tags", "hello world", "hello world"},
		{"single tag", "<p>hello</p>", "hello"},
		{"nested tags", "<div><p>hello</p></div>", "hello"},
		{"self-closing tags", "<br/>hello<hr/>", "hello"},
		{"multiple tags", "<h1>Title</h1><p>Paragraph</p>", "TitleParagraph"},
		{"with attributes", "<a href='url'>link</a>", "link"},
		{"script tag", "<script>alert(1)</script>", "alert(1)"},
		{"style tag", "<style>.class{}</style>", ".class{}"},
		{"comment", "<!-- comment -->hello", "hello"},
		{"malformed tag", "<p>hello</div>", "hello"},
		{"uppercase tags", "<DIV>hello</DIV>", "hello"},
		{"mixed content", "Hello <b>World</b>!", "Hello World!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripHTMLTags(tt.input)
			if result != tt.expected {
				t.Errorf("StripHTMLTags(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestTruncateString tests the TruncateString function
func TestTruncateString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{"empty string", "", 10, ""},
		{"shorter than max", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"longer than max", "hello world", 5, "hello"},
		{"zero max length", "hello", 0, ""},
		{"shorter unicode", "hello", 10, "hello"},
		{"single char", "a", 1, "a"},
		{"truncate to 1", "hello", 1, "h"},
		{"very long string", strings.Repeat("a", 1000), 100, strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateString(tt.input, tt.maxLength)
			if result != tt.expected {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLength, result, tt.expected)
			}
		})
	}
}

// TestNormalizeWhitespace tests the NormalizeWhitespace function
func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"single space", "hello world", "hello world"},
		{"multiple spaces", "hello    world", "hello world"},
		{"tabs", "hello\t\tworld", "hello world"},
		{"newlines", "hello\n\nworld", "hello world"},
		{"mixed whitespace", "hello  \t\n  world", "hello world"},
		{"leading whitespace", "   hello world", "hello world"},
		{"trailing whitespace", "hello world   ", "hello world"},
		{"only whitespace", "     ", ""},
		{"single word", "hello", "hello"},
		{"complex mixed", "  hello  \t world  \n foo  ", "hello world foo"},
		{"carriage return", "hello\r\nworld", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeWhitespace(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeWhitespace(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestRemoveControlCharacters tests the removeControlCharacters function
func TestRemoveControlCharacters(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no control chars", "hello world", "hello world"},
		{"with newline", "hello\nworld", "hello\nworld"},
		{"with tab", "hello\tworld", "hello\tworld"},
		{"with bell", "hello\aworld", "helloworld"},
		{"with backspace", "hello\bworld", "helloworld"},
		{"with form feed", "hello\fworld", "helloworld"},
		{"with carriage return", "hello\rworld", "helloworld"},
		{"multiple control chars", "\x00\x01\x02hello\x03\x04", "hello"},
		{"printable range", " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~", " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeControlCharacters(tt.input)
			if result != tt.expected {
				t.Errorf("removeControlCharacters(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTruncateString_Runes(t *testing.T) {
	got := TruncateString("Nguyễn Văn An", 6)
	if got != "Nguyễn" {
		t.Errorf("TruncateString kept %q, want %q", got, "Nguyễn")
	}
}

func TestSanitizeNote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain reason", "bank account does not match", "bank account does not match"},
		{"trims", "  duplicate request \n", "duplicate request"},
		{"keeps line breaks", "checked ID\ncalled tutor", "checked ID\ncalled tutor"},
		{"drops markup", "<b>fraud</b> suspected<script>x()</script>", "fraud suspectedx()"},
		{"only markup", "<br/>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeNote(tt.input); got != tt.expected {
				t.Errorf("SanitizeNote(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	long := SanitizeNote(strings.Repeat("x", MaxNoteLength+50))
	if len(long) != MaxNoteLength {
		t.Errorf("SanitizeNote kept %d characters, want %d", len(long), MaxNoteLength)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "NGUYEN VAN AN", "NGUYEN VAN AN"},
		{"collapses spaces", "  NGUYEN \t VAN\n AN ", "NGUYEN VAN AN"},
		{"diacritics kept", "Trần Thị Bích", "Trần Thị Bích"},
		{"markup dropped", "<i>LE</i> MINH", "LE MINH"},
		{"control chars dropped", "LE\x00 MINH\x07", "LE MINH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.input); got != tt.expected {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func BenchmarkSanitizeNote(b *testing.B) {
	input := "  <p>tutor confirmed\x00 the account by phone</p>  "
	for i := 0; i < b.N; i++ {
		SanitizeNote(input)
	}
}
