// Package storetest holds the behavioral suite every domain.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty, migrated store. The factory owns cleanup.
type Factory func(t *testing.T) domain.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("StatusGetOrCreate", func(t *testing.T) { testStatus(t, newStore(t)) })
	t.Run("LocationTypes", func(t *testing.T) { testLocationTypes(t, newStore(t)) })
	t.Run("GetOrCreateLocation", func(t *testing.T) { testGetOrCreateLocation(t, newStore(t)) })
	t.Run("UpdateOrCreateLocation", func(t *testing.T) { testUpdateOrCreateLocation(t, newStore(t)) })
	t.Run("MultipleMatches", func(t *testing.T) { testMultipleMatches(t, newStore(t)) })
	t.Run("Coordinates", func(t *testing.T) { testCoordinates(t, newStore(t)) })
	t.Run("ListLocations", func(t *testing.T) { testListLocations(t, newStore(t)) })
	t.Run("SiteTypesKey", func(t *testing.T) { testSiteTypesKey(t, newStore(t)) })
	t.Run("JobResults", func(t *testing.T) { testJobResults(t, newStore(t)) })
	t.Run("JobLogs", func(t *testing.T) { testJobLogs(t, newStore(t)) })
	t.Run("ListJobResults", func(t *testing.T) { testListJobResults(t, newStore(t)) })
}

// Fixture holds the ids Seed creates.
type Fixture struct {
	Active     domain.Status
	State      domain.LocationType
	City       domain.LocationType
	DataCenter domain.LocationType
	Branch     domain.LocationType
}

// Seed creates the Active status and the default location type hierarchy.
func Seed(t *testing.T, s domain.Store) Fixture {
	t.Helper()
	ctx := context.Background()

	active, _, err := s.GetOrCreateStatus(ctx, domain.StatusActive)
	require.NoError(t, err)

	created := map[string]domain.LocationType{}
	for _, want := range domain.DefaultLocationTypes {
		var parent *string
		if want.Parent != "" {
			id := created[want.Parent].ID
			parent = &id
		}
		lt, _, err := s.GetOrCreateLocationType(ctx, want.Name, parent)
		require.NoError(t, err)
		created[want.Name] = lt
	}

	return Fixture{
		Active:     active,
		State:      created[domain.TypeState],
		City:       created[domain.TypeCity],
		DataCenter: created[domain.TypeDataCenter],
		Branch:     created[domain.TypeBranch],
	}
}

func testStatus(t *testing.T, s domain.Store) {
	ctx := context.Background()

	first, created, err := s.GetOrCreateStatus(ctx, domain.StatusActive)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, domain.StatusActive, first.Name)

	second, created, err := s.GetOrCreateStatus(ctx, domain.StatusActive)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func testLocationTypes(t *testing.T, s domain.Store) {
	ctx := context.Background()

	_, err := s.GetLocationType(ctx, domain.TypeState)
	require.ErrorIs(t, err, domain.ErrNotFound)

	fx := Seed(t, s)
	assert.Nil(t, fx.State.ParentID)
	require.NotNil(t, fx.City.ParentID)
	assert.Equal(t, fx.State.ID, *fx.City.ParentID)
	require.NotNil(t, fx.Branch.ParentID)
	assert.Equal(t, fx.City.ID, *fx.Branch.ParentID)

	got, err := s.GetLocationType(ctx, domain.TypeDataCenter)
	require.NoError(t, err)
	assert.Equal(t, fx.DataCenter.ID, got.ID)

	again, created, err := s.GetOrCreateLocationType(ctx, domain.TypeCity, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, fx.City.ID, again.ID)
}

func testGetOrCreateLocation(t *testing.T, s domain.Store) {
	ctx := context.Background()
	fx := Seed(t, s)

	stateFields := domain.LocationFields{LocationTypeID: fx.State.ID, StatusID: fx.Active.ID}
	state, created, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Colorado"}, stateFields)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Colorado", state.Name)
	assert.Equal(t, domain.TypeState, state.LocationType)
	assert.Equal(t, domain.StatusActive, state.Status)
	assert.Nil(t, state.ParentID)

	again, created, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Colorado"}, stateFields)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, state.ID, again.ID)

	cityFields := domain.LocationFields{LocationTypeID: fx.City.ID, StatusID: fx.Active.ID}
	denver, created, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Denver", ParentID: &state.ID}, cityFields)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, denver.ParentID)
	assert.Equal(t, state.ID, *denver.ParentID)

	// Same city name under another state is a distinct record.
	virginia, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Virginia"}, stateFields)
	require.NoError(t, err)
	other, created, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Denver", ParentID: &virginia.ID}, cityFields)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, denver.ID, other.ID)

	// Defaults are not applied to an existing record.
	branchFields := domain.LocationFields{LocationTypeID: fx.Branch.ID, StatusID: fx.Active.ID}
	unchanged, created, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Denver", ParentID: &state.ID}, branchFields)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.TypeCity, unchanged.LocationType)

	_, _, err = s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Nowhere"}, domain.LocationFields{LocationTypeID: "missing", StatusID: fx.Active.ID})
	require.Error(t, err)
}

func testUpdateOrCreateLocation(t *testing.T, s domain.Store) {
	ctx := context.Background()
	fx := Seed(t, s)

	state, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Colorado"},
		domain.LocationFields{LocationTypeID: fx.State.ID, StatusID: fx.Active.ID})
	require.NoError(t, err)
	cityFields := domain.LocationFields{LocationTypeID: fx.City.ID, StatusID: fx.Active.ID}
	denver, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Denver", ParentID: &state.ID}, cityFields)
	require.NoError(t, err)
	boulder, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Boulder", ParentID: &state.ID}, cityFields)
	require.NoError(t, err)

	key := domain.LocationKey{Name: "DEN01-DC", AnyParent: true}
	site, created, err := s.UpdateOrCreateLocation(ctx, key,
		domain.LocationFields{LocationTypeID: fx.DataCenter.ID, StatusID: fx.Active.ID, ParentID: &denver.ID})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.TypeDataCenter, site.LocationType)
	require.NotNil(t, site.ParentID)
	assert.Equal(t, denver.ID, *site.ParentID)

	moved, created, err := s.UpdateOrCreateLocation(ctx, key,
		domain.LocationFields{LocationTypeID: fx.Branch.ID, StatusID: fx.Active.ID, ParentID: &boulder.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, site.ID, moved.ID)
	assert.Equal(t, domain.TypeBranch, moved.LocationType)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, boulder.ID, *moved.ParentID)
	assert.False(t, moved.UpdatedAt.Before(site.UpdatedAt))

	all, err := s.ListLocations(ctx, domain.LocationFilter{LocationType: domain.TypeBranch})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testMultipleMatches(t *testing.T, s domain.Store) {
	ctx := context.Background()
	fx := Seed(t, s)

	stateFields := domain.LocationFields{LocationTypeID: fx.State.ID, StatusID: fx.Active.ID}
	co, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Colorado"}, stateFields)
	require.NoError(t, err)
	va, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Virginia"}, stateFields)
	require.NoError(t, err)

	cityFields := domain.LocationFields{LocationTypeID: fx.City.ID, StatusID: fx.Active.ID}
	_, _, err = s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Springfield", ParentID: &co.ID}, cityFields)
	require.NoError(t, err)
	_, _, err = s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Springfield", ParentID: &va.ID}, cityFields)
	require.NoError(t, err)

	_, _, err = s.UpdateOrCreateLocation(ctx, domain.LocationKey{Name: "Springfield", AnyParent: true},
		domain.LocationFields{LocationTypeID: fx.Branch.ID, StatusID: fx.Active.ID, ParentID: &co.ID})
	require.ErrorIs(t, err, domain.ErrMultipleMatches)
}

func testSiteTypesKey(t *testing.T, s domain.Store) {
	ctx := context.Background()
	fx := Seed(t, s)

	co, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Colorado"},
		domain.LocationFields{LocationTypeID: fx.State.ID, StatusID: fx.Active.ID})
	require.NoError(t, err)
	city, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "HUB-DC", ParentID: &co.ID},
		domain.LocationFields{LocationTypeID: fx.City.ID, StatusID: fx.Active.ID})
	require.NoError(t, err)

	siteKey := domain.LocationKey{Name: "HUB-DC", AnyParent: true, Types: domain.SiteTypes}
	site, created, err := s.UpdateOrCreateLocation(ctx, siteKey,
		domain.LocationFields{LocationTypeID: fx.DataCenter.ID, StatusID: fx.Active.ID, ParentID: &city.ID})
	require.NoError(t, err)
	assert.True(t, created, "a city with the same name must not be taken over")
	assert.NotEqual(t, city.ID, site.ID)
	require.NotNil(t, site.ParentID)
	assert.Equal(t, city.ID, *site.ParentID)

	again, created, err := s.UpdateOrCreateLocation(ctx, siteKey,
		domain.LocationFields{LocationTypeID: fx.Branch.ID, StatusID: fx.Active.ID, ParentID: &city.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, site.ID, again.ID)
	assert.Equal(t, domain.TypeBranch, again.LocationType)

	stillCity, err := s.ListLocations(ctx, domain.LocationFilter{LocationType: domain.TypeCity})
	require.NoError(t, err)
	require.Len(t, stillCity, 1)
	assert.Equal(t, city.ID, stillCity[0].ID)

	_, _, err = s.UpdateOrCreateLocation(ctx, siteKey,
		domain.LocationFields{LocationTypeID: fx.Branch.ID, StatusID: fx.Active.ID, ParentID: &site.ID})
	require.ErrorIs(t, err, domain.ErrSelfParent)
}

func testCoordinates(t *testing.T, s domain.Store) {
	ctx := context.Background()
	fx := Seed(t, s)

	loc, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Illinois"},
		domain.LocationFields{LocationTypeID: fx.State.ID, StatusID: fx.Active.ID})
	require.NoError(t, err)
	assert.False(t, loc.HasCoordinates())

	updated, err := s.SetLocationCoordinates(ctx, loc.ID, 41.88, -87.63)
	require.NoError(t, err)
	require.True(t, updated.HasCoordinates())
	assert.InDelta(t, 41.88, *updated.Latitude, 0.0001)
	assert.InDelta(t, -87.63, *updated.Longitude, 0.0001)

	again, created, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Illinois"},
		domain.LocationFields{LocationTypeID: fx.State.ID, StatusID: fx.Active.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, again.HasCoordinates())

	_, err = s.SetLocationCoordinates(ctx, "missing", 1, 2)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testListLocations(t *testing.T, s domain.Store) {
	ctx := context.Background()
	fx := Seed(t, s)

	stateFields := domain.LocationFields{LocationTypeID: fx.State.ID, StatusID: fx.Active.ID}
	nj, _, err := s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "New Jersey"}, stateFields)
	require.NoError(t, err)
	_, _, err = s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "California"}, stateFields)
	require.NoError(t, err)
	_, _, err = s.GetOrCreateLocation(ctx, domain.LocationKey{Name: "Newark", ParentID: &nj.ID},
		domain.LocationFields{LocationTypeID: fx.City.ID, StatusID: fx.Active.ID})
	require.NoError(t, err)

	all, err := s.ListLocations(ctx, domain.LocationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"California", "New Jersey", "Newark"}, names(all))

	states, err := s.ListLocations(ctx, domain.LocationFilter{LocationType: domain.TypeState})
	require.NoError(t, err)
	assert.Equal(t, []string{"California", "New Jersey"}, names(states))

	children, err := s.ListLocations(ctx, domain.LocationFilter{ParentID: nj.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Newark"}, names(children))
}

func testJobResults(t *testing.T, s domain.Store) {
	ctx := context.Background()

	_, err := s.GetJobResult(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	job, err := s.CreateJobResult(ctx, domain.JobResult{
		ID:       "job-1",
		JobName:  domain.ImportJobName,
		Status:   domain.JobPending,
		FileName: "sites.csv",
		FileKey:  "uploads/job-1/sites.csv",
		FileSize: 42,
	})
	require.NoError(t, err)
	assert.False(t, job.CreatedAt.IsZero())

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	updated, err := s.UpdateJobResult(ctx, "job-1", func(j *domain.JobResult) error {
		j.Status = domain.JobCompleted
		j.StartedAt = &started
		j.CompletedAt = &started
		j.Summary = domain.Summary{Rows: 3, Skipped: 1, SitesCreated: 2}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, updated.Status)

	got, err := s.GetJobResult(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)
	assert.Equal(t, domain.Summary{Rows: 3, Skipped: 1, SitesCreated: 2}, got.Summary)
	assert.Equal(t, "uploads/job-1/sites.csv", got.FileKey)
	assert.Equal(t, int64(42), got.FileSize)
	require.NotNil(t, got.StartedAt)
	assert.True(t, started.Equal(*got.StartedAt))

	boom := errors.New("boom")
	_, err = s.UpdateJobResult(ctx, "job-1", func(j *domain.JobResult) error {
		j.Status = domain.JobFailed
		return boom
	})
	require.ErrorIs(t, err, boom)
	got, err = s.GetJobResult(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)

	_, err = s.UpdateJobResult(ctx, "missing", func(*domain.JobResult) error { return nil })
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testJobLogs(t *testing.T, s domain.Store) {
	ctx := context.Background()

	_, err := s.CreateJobResult(ctx, domain.JobResult{ID: "job-2", JobName: domain.ImportJobName, Status: domain.JobRunning})
	require.NoError(t, err)

	require.NoError(t, s.AppendJobLog(ctx, domain.JobLogEntry{JobID: "job-2", Level: "INFO", Message: "Created site: A-DC"}))
	require.NoError(t, s.AppendJobLog(ctx, domain.JobLogEntry{JobID: "job-2", Level: "ERROR", Message: "skip", Attrs: `{"line":3}`}))

	logs, err := s.ListJobLogs(ctx, "job-2")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Created site: A-DC", logs[0].Message)
	assert.Equal(t, "ERROR", logs[1].Level)
	assert.Equal(t, `{"line":3}`, logs[1].Attrs)
	assert.Less(t, logs[0].ID, logs[1].ID)

	empty, err := s.ListJobLogs(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testListJobResults(t *testing.T, s domain.Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, tc := range []struct {
		id     string
		status domain.JobStatus
	}{
		{"job-c", domain.JobPending},
		{"job-a", domain.JobRunning},
		{"job-b", domain.JobPending},
		{"job-d", domain.JobCompleted},
	} {
		_, err := s.CreateJobResult(ctx, domain.JobResult{
			ID:        tc.id,
			JobName:   domain.ImportJobName,
			Status:    tc.status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	pending, err := s.ListJobResults(ctx, domain.JobPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "job-c", pending[0].ID, "oldest first")
	assert.Equal(t, "job-b", pending[1].ID)

	running, err := s.ListJobResults(ctx, domain.JobRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "job-a", running[0].ID)

	failed, err := s.ListJobResults(ctx, domain.JobFailed)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func names(locs []domain.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.Name
	}
	return out
}
