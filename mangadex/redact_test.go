package mangadex

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret-token")
	h.Set("Cookie", "session=abc")
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")

	got := redactHeaders(h)
	assert.Equal(t, "Bearer "+redacted, got["Authorization"])
	assert.Equal(t, redacted, got["Cookie"])
	assert.Equal(t, "application/json, text/plain", got["Accept"])
}

func TestRedactJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"not json", "username=a&password=b", redacted},
		{"top level", `{"username":"a","password":"b"}`, `{"password":"[REDACTED]","username":"a"}`},
		{"nested", `{"user":{"Refresh_Token":"x","id":1}}`, `{"user":{"Refresh_Token":"[REDACTED]","id":1}}`},
		{"in array", `[{"code":"c"},{"title":"t"}]`, `[{"code":"[REDACTED]"},{"title":"t"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redactJSON([]byte(tt.input)))
		})
	}
}
