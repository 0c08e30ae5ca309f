package domain

import (
	"slices"
	"time"
)

// Location type names the importer depends on.
const (
	TypeState      = "State"
	TypeCity       = "City"
	TypeDataCenter = "Data Center"
	TypeBranch     = "Branch"
)

// StatusActive is the status assigned to every imported location.
const StatusActive = "Active"

// Role identifies the level a location occupies in an imported hierarchy.
type Role string

const (
	RoleState Role = "state"
	RoleCity  Role = "city"
	RoleSite  Role = "site"
)

// Status is a lifecycle marker attached to locations.
type Status struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LocationType classifies locations and constrains which types may nest under which.
type LocationType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Nestable  bool      `json:"nestable"`
	CreatedAt time.Time `json:"created_at"`
}

// SiteTypes are the location types a site row may produce.
var SiteTypes = []string{TypeDataCenter, TypeBranch}

// LocationTypeSpec describes a location type to bootstrap.
type LocationTypeSpec struct {
	Name   string
	Parent string // empty for a top-level type
}

// DefaultLocationTypes lists the types an import requires, parents first.
var DefaultLocationTypes = []LocationTypeSpec{
	{Name: TypeState},
	{Name: TypeCity, Parent: TypeState},
	{Name: TypeDataCenter, Parent: TypeCity},
	{Name: TypeBranch, Parent: TypeCity},
}

// Location is a node in the state → city → site hierarchy.
type Location struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LocationTypeID string    `json:"location_type_id"`
	LocationType   string    `json:"location_type"`
	StatusID       string    `json:"status_id"`
	Status         string    `json:"status"`
	ParentID       *string   `json:"parent_id,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// LocationKey is the natural key used by get-or-create and update-or-create.
// A nil ParentID matches top-level locations only. AnyParent ignores the
// parent entirely and matches on Name. A non-empty Types limits matches to
// locations whose type name is listed.
type LocationKey struct {
	Name      string
	ParentID  *string
	AnyParent bool
	Types     []string
}

// LocationFields are the non-key attributes written on create or update.
// ParentID is only applied when the key matches on AnyParent; otherwise the
// key's parent is authoritative.
type LocationFields struct {
	LocationTypeID string
	StatusID       string
	ParentID       *string
}

// ResolveParent returns the parent a created or updated record should carry.
func (k LocationKey) ResolveParent(f LocationFields) *string {
	if k.AnyParent {
		return f.ParentID
	}
	return k.ParentID
}

// Matches reports whether loc satisfies the key.
func (k LocationKey) Matches(loc Location) bool {
	if loc.Name != k.Name {
		return false
	}
	if len(k.Types) > 0 && !slices.Contains(k.Types, loc.LocationType) {
		return false
	}
	if k.AnyParent {
		return true
	}
	return SameID(loc.ParentID, k.ParentID)
}

// LocationFilter narrows ListLocations. Zero values match everything.
type LocationFilter struct {
	LocationType string
	ParentID     string
}

// SameID compares two optional identifiers.
func SameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
