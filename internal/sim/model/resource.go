package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Resource is one of the five tradeable resource types.
type Resource uint8

const (
	Brick Resource = iota
	Lumber
	Wool
	Grain
	Ore

	NumResources = 5

	// NoResource marks a hex that produces nothing (desert) or a generic port.
	NoResource Resource = 255
)

var resourceNames = [NumResources]string{"BRICK", "LUMBER", "WOOL", "GRAIN", "ORE"}

// Resources lists every resource in canonical order.
var Resources = [NumResources]Resource{Brick, Lumber, Wool, Grain, Ore}

func (r Resource) Valid() bool { return r < NumResources }

func (r Resource) String() string {
	if r.Valid() {
		return resourceNames[r]
	}
	return "NONE"
}

func ParseResource(s string) (Resource, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range resourceNames {
		if n == s {
			return Resource(i), nil
		}
	}
	if s == "" || s == "NONE" || s == "DESERT" {
		return NoResource, nil
	}
	return NoResource, fmt.Errorf("unknown resource %q", s)
}

func (r Resource) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Resource) UnmarshalText(b []byte) error {
	v, err := ParseResource(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ResourceSet is a count per resource. It marshals as a sparse JSON object.
type ResourceSet [NumResources]int

func Single(r Resource, n int) ResourceSet {
	var s ResourceSet
	if r.Valid() {
		s[r] = n
	}
	return s
}

func (s ResourceSet) Total() int {
	t := 0
	for _, n := range s {
		t += n
	}
	return t
}

func (s ResourceSet) IsZero() bool { return s == ResourceSet{} }

// Covers reports whether s holds at least need of every resource.
func (s ResourceSet) Covers(need ResourceSet) bool {
	for i := range s {
		if s[i] < need[i] {
			return false
		}
	}
	return true
}

// NonNegative reports whether every count is >= 0.
func (s ResourceSet) NonNegative() bool {
	for _, n := range s {
		if n < 0 {
			return false
		}
	}
	return true
}

func (s ResourceSet) Add(o ResourceSet) ResourceSet {
	for i := range s {
		s[i] += o[i]
	}
	return s
}

func (s ResourceSet) Sub(o ResourceSet) ResourceSet {
	for i := range s {
		s[i] -= o[i]
	}
	return s
}

func (s ResourceSet) Scale(k int) ResourceSet {
	for i := range s {
		s[i] *= k
	}
	return s
}

// Kinds returns how many distinct resources have a nonzero count.
func (s ResourceSet) Kinds() int {
	k := 0
	for _, n := range s {
		if n != 0 {
			k++
		}
	}
	return k
}

func (s ResourceSet) Map() map[string]int {
	out := make(map[string]int, NumResources)
	for i, n := range s {
		if n != 0 {
			out[resourceNames[i]] = n
		}
	}
	return out
}

func ResourceSetFromMap(m map[string]int) (ResourceSet, error) {
	var s ResourceSet
	for k, n := range m {
		r, err := ParseResource(k)
		if err != nil {
			return s, err
		}
		if !r.Valid() {
			return s, fmt.Errorf("resource %q is not tradeable", k)
		}
		s[r] += n
	}
	return s, nil
}

func (s ResourceSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Map()) }

func (s *ResourceSet) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	v, err := ResourceSetFromMap(m)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s ResourceSet) String() string {
	parts := make([]string, 0, NumResources)
	for i, n := range s {
		if n != 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", resourceNames[i], n))
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}
