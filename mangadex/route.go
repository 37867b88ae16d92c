package mangadex

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Base selects which host a route is sent to.
type Base int

const (
	// BaseAPI is the REST API host
	BaseAPI Base = iota
	// BaseAuth is the OpenID Connect host used for token grants
	BaseAuth
)

// Route describes a single endpoint call. Routes are built per call and never
// mutated after construction.
type Route struct {
	Method   string
	Template string
	Path     string
	Base     Base
	// Auth marks endpoints that need a bearer token.
	Auth  bool
	Query Query
}

// NewRoute substitutes {name} placeholders in template with params. Every
// placeholder must have a value and every value must be used.
func NewRoute(method, template string, params map[string]string) (Route, error) {
	path, err := expandTemplate(template, params)
	if err != nil {
		return Route{}, err
	}
	return Route{
		Method:   method,
		Template: template,
		Path:     path,
		Base:     BaseAPI,
	}, nil
}

// MustRoute is like NewRoute but panics on a template mismatch. Use it for
// routes built from literals in this package.
func MustRoute(method, template string, params map[string]string) Route {
	r, err := NewRoute(method, template, params)
	if err != nil {
		panic(err)
	}
	return r
}

// WithAuth returns a copy of the route that requires authentication.
func (r Route) WithAuth() Route {
	r.Auth = true
	return r
}

// WithQuery returns a copy of the route carrying q.
func (r Route) WithQuery(q Query) Route {
	r.Query = q
	return r
}

// OnAuthServer returns a copy of the route targeting the auth host.
func (r Route) OnAuthServer() Route {
	r.Base = BaseAuth
	return r
}

// Bucket is the rate limit bucket for the route. MangaDex limits per
// endpoint template, not per resource.
func (r Route) Bucket() string {
	return r.Method + " " + r.Template
}

// URL joins the route with baseURL and appends the encoded query.
func (r Route) URL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/") + r.Path
	if qs := r.Query.Encode(); qs != "" {
		u += "?" + qs
	}
	return u
}

func (r Route) String() string {
	return r.Method + " " + r.Path
}

func expandTemplate(template string, params map[string]string) (string, error) {
	var b strings.Builder
	used := make(map[string]bool, len(params))

	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("route %q: unterminated placeholder", template)
		}
		end += open

		name := rest[open+1 : end]
		value, ok := params[name]
		if !ok {
			return "", fmt.Errorf("route %q: missing parameter %q", template, name)
		}
		if value == "" {
			return "", fmt.Errorf("route %q: empty parameter %q", template, name)
		}
		used[name] = true

		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[end+1:]
	}

	if len(used) != len(params) {
		var unused []string
		for name := range params {
			if !used[name] {
				unused = append(unused, name)
			}
		}
		sort.Strings(unused)
		return "", fmt.Errorf("route %q: unused parameters %v", template, unused)
	}

	return b.String(), nil
}
