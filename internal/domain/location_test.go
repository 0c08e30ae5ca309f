package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestLocationKey_Matches(t *testing.T) {
	top := Location{Name: "Colorado"}
	child := Location{Name: "Denver", ParentID: ptr("co")}

	assert.True(t, LocationKey{Name: "Colorado"}.Matches(top))
	assert.False(t, LocationKey{Name: "Colorado", ParentID: ptr("x")}.Matches(top))
	assert.True(t, LocationKey{Name: "Denver", ParentID: ptr("co")}.Matches(child))
	assert.False(t, LocationKey{Name: "Denver", ParentID: ptr("va")}.Matches(child))
	assert.False(t, LocationKey{Name: "Denver"}.Matches(child))
	assert.True(t, LocationKey{Name: "Denver", AnyParent: true}.Matches(child))
	assert.False(t, LocationKey{Name: "denver", AnyParent: true}.Matches(child))
}

func TestLocationKey_MatchesTypes(t *testing.T) {
	city := Location{Name: "HUB-DC", LocationType: TypeCity, ParentID: ptr("co")}
	site := Location{Name: "HUB-DC", LocationType: TypeDataCenter, ParentID: ptr("hub")}
	key := LocationKey{Name: "HUB-DC", AnyParent: true, Types: SiteTypes}

	assert.False(t, key.Matches(city))
	assert.True(t, key.Matches(site))
	assert.True(t, LocationKey{Name: "HUB-DC", AnyParent: true}.Matches(city))
}

func TestLocationKey_ResolveParent(t *testing.T) {
	fields := LocationFields{ParentID: ptr("city")}

	assert.Equal(t, ptr("city"), LocationKey{Name: "A-DC", AnyParent: true}.ResolveParent(fields))
	assert.Equal(t, ptr("state"), LocationKey{Name: "Denver", ParentID: ptr("state")}.ResolveParent(fields))
	assert.Nil(t, LocationKey{Name: "Colorado"}.ResolveParent(fields))
}

func TestSameID(t *testing.T) {
	assert.True(t, SameID(nil, nil))
	assert.True(t, SameID(ptr("a"), ptr("a")))
	assert.False(t, SameID(ptr("a"), nil))
	assert.False(t, SameID(nil, ptr("a")))
	assert.False(t, SameID(ptr("a"), ptr("b")))
}

func TestLocation_HasCoordinates(t *testing.T) {
	lat, lon := 39.7, -104.9
	assert.False(t, Location{}.HasCoordinates())
	assert.False(t, Location{Latitude: &lat}.HasCoordinates())
	assert.True(t, Location{Latitude: &lat, Longitude: &lon}.HasCoordinates())
}

func TestJobStatus_Finished(t *testing.T) {
	assert.False(t, JobPending.Finished())
	assert.False(t, JobRunning.Finished())
	assert.True(t, JobCompleted.Finished())
	assert.True(t, JobFailed.Finished())
}
