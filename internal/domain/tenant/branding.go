package tenant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/Strob0t/tenantdash/internal/domain"
)

// Limits on branding payloads.
const (
	MaxExtraProperties = 64
	MaxValueLength     = 256
)

var keyRegex = regexp.MustCompile(`^(--)?[A-Za-z][A-Za-z0-9-]{0,63}$`)

// Branding is a tenant's theme: a fixed set of known string properties plus
// free-form string properties in Extra. An empty known field means unset.
//
// On the wire each property is keyed by its CSS variable name
// ("--primary-color"); camelCase aliases ("primaryColor") are accepted on input.
type Branding struct {
	PrimaryColor     string
	SecondaryColor   string
	BackgroundColor  string
	SidebarColor     string
	SidebarTextColor string
	TextColor        string
	LogoText         string

	Extra map[string]string
}

type property struct {
	key   string
	alias string
	field func(*Branding) *string
}

var properties = []property{
	{"--primary-color", "primaryColor", func(b *Branding) *string { return &b.PrimaryColor }},
	{"--secondary-color", "secondaryColor", func(b *Branding) *string { return &b.SecondaryColor }},
	{"--background-color", "backgroundColor", func(b *Branding) *string { return &b.BackgroundColor }},
	{"--sidebar-color", "sidebarColor", func(b *Branding) *string { return &b.SidebarColor }},
	{"--sidebar-text-color", "sidebarTextColor", func(b *Branding) *string { return &b.SidebarTextColor }},
	{"--text-color", "textColor", func(b *Branding) *string { return &b.TextColor }},
	{"--logo-text", "logoText", func(b *Branding) *string { return &b.LogoText }},
}

func lookupProperty(key string) (property, bool) {
	for _, p := range properties {
		if key == p.key || key == p.alias {
			return p, true
		}
	}
	return property{}, false
}

// canonicalKey maps an alias to its CSS variable name. Unknown keys are returned as-is.
func canonicalKey(key string) string {
	if p, ok := lookupProperty(key); ok {
		return p.key
	}
	return key
}

func (b *Branding) set(key, value string) {
	if p, ok := lookupProperty(key); ok {
		*p.field(b) = value
		return
	}
	if b.Extra == nil {
		b.Extra = make(map[string]string)
	}
	b.Extra[key] = value
}

// Get returns the value stored under key (canonical name or alias).
func (b Branding) Get(key string) (string, bool) {
	if p, ok := lookupProperty(key); ok {
		v := *p.field(&b)
		return v, v != ""
	}
	v, ok := b.Extra[key]
	return v, ok
}

// Map returns all set properties keyed by canonical name.
func (b Branding) Map() map[string]string {
	m := make(map[string]string, len(properties)+len(b.Extra))
	for k, v := range b.Extra {
		m[k] = v
	}
	for _, p := range properties {
		if v := *p.field(&b); v != "" {
			m[p.key] = v
		}
	}
	return m
}

// Len returns the number of set properties.
func (b Branding) Len() int {
	return len(b.Map())
}

// IsEmpty reports whether no property is set.
func (b Branding) IsEmpty() bool {
	return b.Len() == 0
}

// Clone returns a deep copy of b.
func (b Branding) Clone() Branding {
	c := b
	c.Extra = maps.Clone(b.Extra)
	return c
}

// Merge returns b with every property set in patch overwritten.
// Properties absent from patch are preserved unchanged; b is not modified.
func (b Branding) Merge(patch Branding) Branding {
	out := b.Clone()
	for _, p := range properties {
		if v := *p.field(&patch); v != "" {
			*p.field(&out) = v
		}
	}
	for k, v := range patch.Extra {
		out.set(k, v)
	}
	return out
}

// Validate enforces key shape and size limits.
func (b Branding) Validate() error {
	if len(b.Extra) > MaxExtraProperties {
		return fmt.Errorf("%w: at most %d custom theme properties allowed", domain.ErrValidation, MaxExtraProperties)
	}
	for k, v := range b.Map() {
		if !keyRegex.MatchString(k) {
			return fmt.Errorf("%w: invalid theme property name %q", domain.ErrValidation, k)
		}
		if len(v) > MaxValueLength {
			return fmt.Errorf("%w: value for %q exceeds %d bytes", domain.ErrValidation, k, MaxValueLength)
		}
	}
	return nil
}

// MarshalJSON encodes b as a flat object keyed by CSS variable name.
func (b Branding) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Map())
}

// UnmarshalJSON decodes a flat string-valued object, accepting aliases.
func (b *Branding) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*b = Branding{}
	for k, v := range m {
		b.set(k, v)
	}
	return nil
}

// ParseBrandingPatch decodes a partial theme update. Every value must be a
// non-empty JSON string; anything else yields domain.ErrValidation and no
// partial result.
func ParseBrandingPatch(data []byte) (Branding, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return Branding{}, fmt.Errorf("%w: theme must be a JSON object", domain.ErrValidation)
	}

	var patch Branding
	seen := make(map[string]string, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		if !keyRegex.MatchString(k) {
			return Branding{}, fmt.Errorf("%w: invalid theme property name %q", domain.ErrValidation, k)
		}
		canon := canonicalKey(k)
		if prev, dup := seen[canon]; dup {
			return Branding{}, fmt.Errorf("%w: %q and %q name the same property", domain.ErrValidation, prev, k)
		}
		seen[canon] = k

		v := bytes.TrimSpace(raw[k])
		if len(v) == 0 || v[0] != '"' {
			return Branding{}, fmt.Errorf("%w: value for %q must be a string", domain.ErrValidation, k)
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return Branding{}, fmt.Errorf("%w: value for %q must be a string", domain.ErrValidation, k)
		}
		if s == "" {
			return Branding{}, fmt.Errorf("%w: value for %q must not be empty", domain.ErrValidation, k)
		}
		patch.set(k, s)
	}

	if err := patch.Validate(); err != nil {
		return Branding{}, err
	}
	return patch, nil
}
