package mangadex

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ValidateID checks that id is a UUID as MangaDex issues them.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}

// ListOptions are the paging and expansion parameters shared by list
// endpoints.
type ListOptions struct {
	Limit    int
	Offset   int
	Includes []string
	Order    map[string]Order
}

// apply writes the shared parameters into q after clamping to the
// pagination window. maxLimit is the endpoint's page size cap.
func (o ListOptions) apply(q Query, maxLimit int) error {
	limit := o.Limit
	if limit == 0 {
		limit = maxLimit
	}
	limit, offset, err := ClampLimits(limit, o.Offset, maxLimit)
	if err != nil {
		return err
	}
	q["limit"] = limit
	q["offset"] = offset
	q["includes"] = optSlice(o.Includes)
	if len(o.Order) > 0 {
		q["order"] = o.Order
	}
	return nil
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optSlice[T any](s []T) any {
	if len(s) == 0 {
		return nil
	}
	return s
}

func optTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func optBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func optInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func idRoute(method, template, name, id string) (Route, error) {
	if err := ValidateID(id); err != nil {
		return Route{}, err
	}
	return NewRoute(method, template, map[string]string{name: id})
}
