package mangadex

import (
	"encoding/json"
	"net/http"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeys are JSON object keys whose values never reach the logs.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"oldpassword":   true,
	"newpassword":   true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"client_secret": true,
	"code":          true,
	"session":       true,
	"refresh":       true,
}

// redactHeaders copies h with credentials masked.
func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		switch http.CanonicalHeaderKey(k) {
		case "Authorization", "Cookie", "Set-Cookie":
			if len(v) > 0 && strings.HasPrefix(v[0], "Bearer ") {
				out[k] = "Bearer " + redacted
				continue
			}
			out[k] = redacted
		default:
			out[k] = strings.Join(v, ", ")
		}
	}
	return out
}

// redactJSON masks sensitive values in a JSON document. Bodies that are not
// JSON are replaced wholesale, since their shape is unknown.
func redactJSON(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return redacted
	}
	out, err := json.Marshal(redactValue(v))
	if err != nil {
		return redacted
	}
	return string(out)
}

func redactValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			if sensitiveKeys[strings.ToLower(k)] {
				x[k] = redacted
				continue
			}
			x[k] = redactValue(val)
		}
		return x
	case []any:
		for i := range x {
			x[i] = redactValue(x[i])
		}
		return x
	}
	return v
}
