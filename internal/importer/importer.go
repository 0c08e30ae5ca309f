// Package importer implements the CSV location import: each row becomes a
// State, a City under it, and a Data Center or Branch site under the City.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/couchcryptid/location-import-service/internal/observability"
)

const publishTimeout = 10 * time.Second

// ChangePublisher receives the location changes an import produced.
type ChangePublisher interface {
	LoadBatch(ctx context.Context, changes []domain.LocationChange) error
}

// Importer applies CSV payloads to a location store.
type Importer struct {
	store     domain.LocationStore
	geocoder  domain.Geocoder
	publisher ChangePublisher
	metrics   *observability.Metrics
}

// New creates an Importer. geocoder and publisher may be nil.
func New(store domain.LocationStore, geocoder domain.Geocoder, publisher ChangePublisher, metrics *observability.Metrics) *Importer {
	return &Importer{
		store:     store,
		geocoder:  geocoder,
		publisher: publisher,
		metrics:   metrics,
	}
}

// Run imports payload and reports what changed. Rows applied before a
// fatal error stay applied.
func (im *Importer) Run(ctx context.Context, payload io.Reader, logger *slog.Logger) (domain.Summary, error) {
	return im.RunJob(ctx, "", payload, logger)
}

// RunJob is Run with change events tagged by jobID.
func (im *Importer) RunJob(ctx context.Context, jobID string, payload io.Reader, logger *slog.Logger) (domain.Summary, error) {
	r := &run{
		Importer: im,
		jobID:    jobID,
		logger:   logger,
		types:    make(map[string]domain.LocationType, len(domain.DefaultLocationTypes)),
	}
	defer r.publish(ctx)

	if err := r.execute(ctx, payload); err != nil {
		return r.summary, err
	}
	return r.summary, nil
}

// run carries the state of one import.
type run struct {
	*Importer
	jobID   string
	logger  *slog.Logger
	active  domain.Status
	types   map[string]domain.LocationType
	summary domain.Summary
	changes []domain.LocationChange
}

func (r *run) execute(ctx context.Context, payload io.Reader) error {
	active, _, err := r.store.GetOrCreateStatus(ctx, domain.StatusActive)
	if err != nil {
		return fmt.Errorf("get or create status %q: %w", domain.StatusActive, err)
	}
	r.active = active

	data, err := io.ReadAll(payload)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	rows, err := domain.NewRowReader(data)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		r.summary.Rows++
		r.metrics.RowsProcessed.Inc()
		if err := r.processRow(ctx, row); err != nil {
			return fmt.Errorf("line %d: %w", row.Line, err)
		}
	}
}

func (r *run) processRow(ctx context.Context, row domain.Row) error {
	stateName := domain.NormalizeState(row.State)

	siteTypeName, err := domain.ClassifySite(row.Name)
	if err != nil {
		r.logger.Error(domain.SkipMessage(row.Name), "line", row.Line)
		r.summary.Skipped++
		r.metrics.RowsSkipped.Inc()
		return nil
	}

	stateType, err := r.locationType(ctx, domain.TypeState)
	if err != nil {
		return err
	}
	cityType, err := r.locationType(ctx, domain.TypeCity)
	if err != nil {
		return err
	}
	siteType, err := r.locationType(ctx, siteTypeName)
	if err != nil {
		return err
	}

	state, created, err := r.store.GetOrCreateLocation(ctx,
		domain.LocationKey{Name: stateName},
		domain.LocationFields{LocationTypeID: stateType.ID, StatusID: r.active.ID})
	if err != nil {
		return fmt.Errorf("get or create state %q: %w", stateName, err)
	}
	if created {
		r.summary.StatesCreated++
	}
	r.record(domain.RoleState, state, created, false)

	city, created, err := r.store.GetOrCreateLocation(ctx,
		domain.LocationKey{Name: row.City, ParentID: &state.ID},
		domain.LocationFields{LocationTypeID: cityType.ID, StatusID: r.active.ID})
	if err != nil {
		return fmt.Errorf("get or create city %q: %w", row.City, err)
	}
	if created {
		r.summary.CitiesCreated++
	}
	city = r.enrich(ctx, city, stateName)
	r.record(domain.RoleCity, city, created, false)

	site, created, err := r.store.UpdateOrCreateLocation(ctx,
		domain.LocationKey{Name: row.Name, AnyParent: true, Types: domain.SiteTypes},
		domain.LocationFields{LocationTypeID: siteType.ID, StatusID: r.active.ID, ParentID: &city.ID})
	if err != nil {
		return fmt.Errorf("update or create site %q: %w", row.Name, err)
	}
	r.record(domain.RoleSite, site, created, !created)

	if created {
		r.summary.SitesCreated++
		r.logger.Info("Created site: "+row.Name, "line", row.Line, "location_id", site.ID, "location_type", site.LocationType)
	} else {
		r.summary.SitesUpdated++
		r.logger.Info("Updated site: "+row.Name, "line", row.Line, "location_id", site.ID, "location_type", site.LocationType)
	}
	return nil
}

// locationType resolves a type by name once per run.
func (r *run) locationType(ctx context.Context, name string) (domain.LocationType, error) {
	if lt, ok := r.types[name]; ok {
		return lt, nil
	}
	lt, err := r.store.GetLocationType(ctx, name)
	if err != nil {
		return domain.LocationType{}, fmt.Errorf("get location type: %w", err)
	}
	r.types[name] = lt
	return lt, nil
}

// enrich stores coordinates on a city that has none. Failures only warn.
func (r *run) enrich(ctx context.Context, city domain.Location, stateName string) domain.Location {
	result, ok := domain.GeocodeCity(ctx, city, stateName, r.geocoder, r.logger)
	if !ok {
		return city
	}
	updated, err := r.store.SetLocationCoordinates(ctx, city.ID, result.Lat, result.Lon)
	if err != nil {
		r.logger.Warn("store city coordinates failed", "location_id", city.ID, "city", city.Name, "error", err)
		return city
	}
	r.summary.Geocoded++
	return updated
}

// record counts an upsert outcome and queues a change event for anything written.
func (r *run) record(role domain.Role, loc domain.Location, created, updated bool) {
	outcome := "existing"
	action := domain.ChangeAction("")
	switch {
	case created:
		outcome, action = "created", domain.ActionCreated
	case updated:
		outcome, action = "updated", domain.ActionUpdated
	}
	r.metrics.LocationUpserts.WithLabelValues(string(role), outcome).Inc()

	if action == "" || r.publisher == nil {
		return
	}
	r.changes = append(r.changes, domain.LocationChange{
		Action:     action,
		Role:       role,
		Location:   loc,
		JobID:      r.jobID,
		OccurredAt: domain.Now(),
	})
}

// publish hands queued changes to the publisher. It runs after fatal errors
// and cancellation too, so it gets its own deadline.
func (r *run) publish(ctx context.Context) {
	if r.publisher == nil || len(r.changes) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := r.publisher.LoadBatch(ctx, r.changes); err != nil {
		r.metrics.PublishErrors.Inc()
		r.logger.Warn("publish location changes failed", "changes", len(r.changes), "error", err)
		return
	}
	r.metrics.EventsPublished.Add(float64(len(r.changes)))
}
