package mangadex

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the layout MangaDex accepts for timestamps in query strings
// and request bodies.
const TimeFormat = "2006-01-02T15:04:05Z"

// MaxDepth is the furthest offset+limit window MangaDex will serve for a list
// endpoint.
const MaxDepth = 10000

// Query holds query string parameters in the PHP style MangaDex expects.
//
// Values may be scalars, booleans, time.Time, fmt.Stringer, slices (rendered as
// repeated key[]=v in order) or maps with string keys (rendered as
// key[subkey]=v). Nil values are dropped.
type Query map[string]any

// Set stores v under key and returns q for chaining.
func (q Query) Set(key string, v any) Query {
	q[key] = v
	return q
}

// Encode renders q with top level keys sorted. Brackets are written literally.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		pairs = appendValue(pairs, k, q[k])
	}
	return strings.Join(pairs, "&")
}

// Values returns the encoded pairs as url.Values, in case a caller needs to
// merge them with something else.
func (q Query) Values() url.Values {
	out := url.Values{}
	for _, pair := range strings.Split(q.Encode(), "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k, _ = url.QueryUnescape(k)
		v, _ = url.QueryUnescape(v)
		out.Add(k, v)
	}
	return out
}

func appendValue(pairs []string, key string, v any) []string {
	if v == nil {
		return pairs
	}

	if s, ok := scalarString(v); ok {
		return append(pairs, escapeKey(key)+"="+url.QueryEscape(s))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return pairs
		}
		return appendValue(pairs, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return pairs
		}
		for i := 0; i < rv.Len(); i++ {
			pairs = appendValue(pairs, key+"[]", rv.Index(i).Interface())
		}
		return pairs
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return pairs
		}
		subkeys := make([]string, 0, rv.Len())
		for _, mk := range rv.MapKeys() {
			subkeys = append(subkeys, mk.String())
		}
		sort.Strings(subkeys)
		for _, sk := range subkeys {
			mv := rv.MapIndex(reflect.ValueOf(sk).Convert(rv.Type().Key()))
			pairs = appendValue(pairs, key+"["+sk+"]", mv.Interface())
		}
		return pairs
	}

	return append(pairs, escapeKey(key)+"="+url.QueryEscape(fmt.Sprint(v)))
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case time.Time:
		return FormatTime(x), true
	case time.Duration:
		return DeltaToISO(x), true
	case fmt.Stringer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", false
		}
		return x.String(), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}

// escapeKey query escapes a key but leaves PHP style brackets readable.
func escapeKey(key string) string {
	escaped := url.QueryEscape(key)
	escaped = strings.ReplaceAll(escaped, "%5B", "[")
	return strings.ReplaceAll(escaped, "%5D", "]")
}

// FormatTime renders t in UTC at second precision with a Z suffix.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeFormat)
}

// ClampLimits fits a limit/offset pair into the MangaDex pagination window.
// maxLimit is the largest page size the endpoint accepts.
func ClampLimits(limit, offset, maxLimit int) (int, int, error) {
	if offset >= MaxDepth {
		return 0, 0, fmt.Errorf("an offset of %d will not return results", MaxDepth)
	}
	offset = max(offset, 0)

	if remaining := MaxDepth - offset; remaining <= maxLimit {
		return remaining, MaxDepth - remaining, nil
	}

	limit = min(max(limit, 0), maxLimit)
	offset = min(offset, MaxDepth-limit)
	return limit, offset, nil
}
