package httpclient

import (
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        any
	}{
		{"json", "application/json; charset=utf-8", `{"a":[1,"b"]}`, map[string]any{"a": []any{1.0, "b"}}},
		{"json suffix", "application/problem+json", `{"title":"x"}`, map[string]any{"title": "x"}},
		{"form", ContentTypeForm, "a=1&b=2", url.Values{"a": {"1"}, "b": {"2"}}},
		{"xml", "application/xml", "<note><to>Tove</to></note>", map[string]any{"note": map[string]any{"to": "Tove"}}},
		{"text xml", "text/xml", "<a>1</a>", map[string]any{"a": "1"}},
		{"html", "text/html", "<p>hi</p>", "<p>hi</p>"},
		{"missing type", "", "plain", "plain"},
		{"empty", ContentTypeJSON, "", nil},
		{"whitespace", ContentTypeJSON, " \n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.contentType, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode(ContentTypeJSON, []byte("{"))
	assert.Error(t, err)
}
