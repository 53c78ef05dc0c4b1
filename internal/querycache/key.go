// Package querycache implements tag-based cache invalidation over structured
// query keys. A key names a resource, optionally one record of it, and the
// filters the query was made with; invalidating a key marks every cached
// query of that resource whose filters include the target's.
package querycache

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Resource is a cache tag: the collection a query reads from.
type Resource string

const (
	Students     Resource = "STUDENTS"
	Applications Resource = "APPLICATIONS"
	Activities   Resource = "ACTIVITIES"
	Messages     Resource = "MESSAGES"
	Universities Resource = "UNIVERSITIES"
	Courses      Resource = "COURSES"
)

// ErrMalformedKey is returned by ParseKey for strings String never produces.
var ErrMalformedKey = errors.New("malformed query key")

// Key identifies a cached query. Keys are values; the With* helpers
// return modified copies.
type Key struct {
	Resource Resource
	ID       string
	Filters  map[string]string
}

// Tag returns the key covering every query of a resource.
func Tag(r Resource) Key {
	return Key{Resource: r}
}

// WithID returns a copy of k addressing a single record.
func (k Key) WithID(id string) Key {
	c := k.clone()
	c.ID = id
	return c
}

// With returns a copy of k with one more filter.
func (k Key) With(name, value string) Key {
	c := k.clone()
	if c.Filters == nil {
		c.Filters = make(map[string]string, 1)
	}
	c.Filters[name] = value
	return c
}

// WithInt is With for integer filters such as take and page.
func (k Key) WithInt(name string, value int) Key {
	return k.With(name, strconv.Itoa(value))
}

// Filter returns a filter value.
func (k Key) Filter(name string) string {
	return k.Filters[name]
}

// Matches reports whether invalidating target covers k: same resource, the
// same record when target names one, and every target filter present in k
// with the same value. Filter order never matters.
func (k Key) Matches(target Key) bool {
	if k.Resource != target.Resource {
		return false
	}
	if target.ID != "" && k.ID != target.ID {
		return false
	}
	for name, want := range target.Filters {
		if got, ok := k.Filters[name]; !ok || got != want {
			return false
		}
	}
	return true
}

// Equal reports whether two keys address the same query.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// String is the canonical form of the key: RESOURCE[/id][?a=1&b=2] with
// filters sorted by name.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Resource))
	if k.ID != "" {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(k.ID))
	}
	if len(k.Filters) > 0 {
		names := make([]string, 0, len(k.Filters))
		for name := range k.Filters {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteByte('?')
		for i, name := range names {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(k.Filters[name]))
		}
	}
	return b.String()
}

// Query returns the filters as URL query values.
func (k Key) Query() url.Values {
	q := make(url.Values, len(k.Filters))
	for name, v := range k.Filters {
		q.Set(name, v)
	}
	return q
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	head, rawQuery, _ := strings.Cut(s, "?")
	resource, rawID, hasID := strings.Cut(head, "/")
	if resource == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	k := Key{Resource: Resource(resource)}
	if hasID {
		id, err := url.PathUnescape(rawID)
		if err != nil || id == "" {
			return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
		}
		k.ID = id
	}
	if rawQuery != "" {
		values, err := url.ParseQuery(rawQuery)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
		}
		k.Filters = make(map[string]string, len(values))
		for name, vs := range values {
			k.Filters[name] = vs[0]
		}
	}
	return k, nil
}

func (k Key) clone() Key {
	c := Key{Resource: k.Resource, ID: k.ID}
	if k.Filters != nil {
		c.Filters = make(map[string]string, len(k.Filters))
		for name, v := range k.Filters {
			c.Filters[name] = v
		}
	}
	return c
}
