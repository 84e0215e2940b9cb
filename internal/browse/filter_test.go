package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Allowed(t *testing.T) {
	f := DefaultFilter()

	tests := []struct {
		name string
		mime string
		want bool
	}{
		{"report.pdf", "", true},
		{"Report.DOCX", "", true},
		{"notes.md", "text/markdown", true},
		{"data.csv", "", true},
		{"setup.exe", "application/pdf", false},
		{"library.dll", "", false},
		{"photo.jpg", "image/jpeg", false},
		{"LICENSE", "text/plain", true},
		{"LICENSE", "TEXT/PLAIN; charset=utf-8", true},
		{"blob", "application/octet-stream", false},
		{"blob", "", false},
		{".env", "text/plain", false},
		{"Budget v2.1", "application/pdf", true},
		{"Budget v2.1", "image/png", false},
		{"Minutes 3.10 draft", "text/plain", true},
		{"Q3.2024", "", false},
		{"release.2.pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"|"+tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Allowed(tt.name, tt.mime))
		})
	}
}

func TestNewFilter_NormalizesInput(t *testing.T) {
	f := NewFilter([]string{" .PDF ", "", "txt"}, []string{"Application/JSON"})

	assert.True(t, f.Allowed("a.pdf", ""))
	assert.True(t, f.Allowed("a.TXT", ""))
	assert.True(t, f.Allowed("noext", "application/json"))
	assert.False(t, f.Allowed("a.doc", ""))
}
