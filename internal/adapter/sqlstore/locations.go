package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/location-import-service/internal/domain"
)

// GetOrCreateStatus implements domain.LocationStore.
func (s *Store) GetOrCreateStatus(ctx context.Context, name string) (domain.Status, bool, error) {
	st, err := s.statusByName(ctx, name)
	if err == nil {
		return st, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Status{}, false, err
	}

	st = domain.Status{ID: newID(), Name: name, CreatedAt: domain.Now()}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO statuses (id, name, created_at) VALUES (?, ?, ?)`),
		st.ID, st.Name, st.CreatedAt)
	if err != nil {
		// Lost a race with a concurrent insert.
		if existing, rerr := s.statusByName(ctx, name); rerr == nil {
			return existing, false, nil
		}
		return domain.Status{}, false, fmt.Errorf("insert status %q: %w", name, err)
	}
	return st, true, nil
}

func (s *Store) statusByName(ctx context.Context, name string) (domain.Status, error) {
	var st domain.Status
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, name, created_at FROM statuses WHERE name = ?`), name).
		Scan(&st.ID, &st.Name, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Status{}, fmt.Errorf("status %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Status{}, fmt.Errorf("select status %q: %w", name, err)
	}
	return st, nil
}

// GetLocationType implements domain.LocationStore.
func (s *Store) GetLocationType(ctx context.Context, name string) (domain.LocationType, error) {
	var (
		lt     domain.LocationType
		parent sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, parent_id, nestable, created_at FROM location_types WHERE name = ?`), name).
		Scan(&lt.ID, &lt.Name, &parent, &lt.Nestable, &lt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LocationType{}, fmt.Errorf("location type %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LocationType{}, fmt.Errorf("select location type %q: %w", name, err)
	}
	lt.ParentID = stringPtr(parent)
	return lt, nil
}

// GetOrCreateLocationType implements domain.LocationStore.
func (s *Store) GetOrCreateLocationType(ctx context.Context, name string, parentID *string) (domain.LocationType, bool, error) {
	lt, err := s.GetLocationType(ctx, name)
	if err == nil {
		return lt, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.LocationType{}, false, err
	}

	if parentID != nil {
		if err := s.exists(ctx, "location_types", *parentID); err != nil {
			return domain.LocationType{}, false, fmt.Errorf("parent location type %q: %w", *parentID, err)
		}
	}

	lt = domain.LocationType{ID: newID(), Name: name, ParentID: parentID, CreatedAt: domain.Now()}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO location_types (id, name, parent_id, nestable, created_at) VALUES (?, ?, ?, ?, ?)`),
		lt.ID, lt.Name, nullString(lt.ParentID), lt.Nestable, lt.CreatedAt)
	if err != nil {
		if existing, rerr := s.GetLocationType(ctx, name); rerr == nil {
			return existing, false, nil
		}
		return domain.LocationType{}, false, fmt.Errorf("insert location type %q: %w", name, err)
	}
	return lt, true, nil
}

// GetOrCreateLocation implements domain.LocationStore.
func (s *Store) GetOrCreateLocation(ctx context.Context, key domain.LocationKey, defaults domain.LocationFields) (domain.Location, bool, error) {
	existing, found, err := s.match(ctx, key)
	if err != nil || found {
		return existing, false, err
	}
	return s.create(ctx, key, defaults)
}

// UpdateOrCreateLocation implements domain.LocationStore.
func (s *Store) UpdateOrCreateLocation(ctx context.Context, key domain.LocationKey, fields domain.LocationFields) (domain.Location, bool, error) {
	existing, found, err := s.match(ctx, key)
	if err != nil {
		return domain.Location{}, false, err
	}
	if !found {
		return s.create(ctx, key, fields)
	}

	parent := key.ResolveParent(fields)
	if parent != nil && *parent == existing.ID {
		return domain.Location{}, false, fmt.Errorf("location %q: %w", key.Name, domain.ErrSelfParent)
	}
	if err := s.checkRefs(ctx, fields, parent); err != nil {
		return domain.Location{}, false, err
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`UPDATE locations SET location_type_id = ?, status_id = ?, parent_id = ?, updated_at = ? WHERE id = ?`),
		fields.LocationTypeID, fields.StatusID, nullString(parent), domain.Now(), existing.ID)
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("update location %q: %w", key.Name, err)
	}
	loc, err := s.locationByID(ctx, existing.ID)
	if err != nil {
		return domain.Location{}, false, err
	}
	return loc, false, nil
}

// SetLocationCoordinates implements domain.LocationStore.
func (s *Store) SetLocationCoordinates(ctx context.Context, id string, lat, lon float64) (domain.Location, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE locations SET latitude = ?, longitude = ?, updated_at = ? WHERE id = ?`),
		lat, lon, domain.Now(), id)
	if err != nil {
		return domain.Location{}, fmt.Errorf("update coordinates %q: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Location{}, fmt.Errorf("location %q: %w", id, domain.ErrNotFound)
	}
	return s.locationByID(ctx, id)
}

// ListLocations implements domain.LocationStore.
func (s *Store) ListLocations(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error) {
	query := selectLocation + ` WHERE 1 = 1`
	var args []any
	if filter.LocationType != "" {
		query += ` AND t.name = ?`
		args = append(args, filter.LocationType)
	}
	if filter.ParentID != "" {
		query += ` AND l.parent_id = ?`
		args = append(args, filter.ParentID)
	}
	query += ` ORDER BY l.name, l.id`

	return s.queryLocations(ctx, query, args...)
}

const selectLocation = `SELECT l.id, l.name, l.location_type_id, t.name, l.status_id, st.name,
	l.parent_id, l.latitude, l.longitude, l.created_at, l.updated_at
	FROM locations l
	JOIN location_types t ON t.id = l.location_type_id
	JOIN statuses st ON st.id = l.status_id`

func (s *Store) queryLocations(ctx context.Context, query string, args ...any) ([]domain.Location, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(sc scanner) (domain.Location, error) {
	var (
		loc      domain.Location
		parent   sql.NullString
		lat, lon sql.NullFloat64
	)
	err := sc.Scan(&loc.ID, &loc.Name, &loc.LocationTypeID, &loc.LocationType, &loc.StatusID, &loc.Status,
		&parent, &lat, &lon, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return domain.Location{}, fmt.Errorf("scan location: %w", err)
	}
	loc.ParentID = stringPtr(parent)
	if lat.Valid && lon.Valid {
		loc.Latitude = &lat.Float64
		loc.Longitude = &lon.Float64
	}
	return loc, nil
}

func (s *Store) locationByID(ctx context.Context, id string) (domain.Location, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectLocation+` WHERE l.id = ?`), id)
	loc, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, fmt.Errorf("location %q: %w", id, domain.ErrNotFound)
	}
	return loc, err
}

// match finds the single location satisfying key.
func (s *Store) match(ctx context.Context, key domain.LocationKey) (domain.Location, bool, error) {
	query := selectLocation + ` WHERE l.name = ?`
	args := []any{key.Name}
	switch {
	case key.AnyParent:
	case key.ParentID == nil:
		query += ` AND l.parent_id IS NULL`
	default:
		query += ` AND l.parent_id = ?`
		args = append(args, *key.ParentID)
	}
	if len(key.Types) > 0 {
		query += ` AND t.name IN (?` + strings.Repeat(`, ?`, len(key.Types)-1) + `)`
		for _, name := range key.Types {
			args = append(args, name)
		}
	}
	query += ` ORDER BY l.id LIMIT 2`

	locs, err := s.queryLocations(ctx, query, args...)
	if err != nil {
		return domain.Location{}, false, err
	}
	switch len(locs) {
	case 0:
		return domain.Location{}, false, nil
	case 1:
		return locs[0], true, nil
	default:
		return domain.Location{}, false, fmt.Errorf("location %q: %w", key.Name, domain.ErrMultipleMatches)
	}
}

func (s *Store) create(ctx context.Context, key domain.LocationKey, fields domain.LocationFields) (domain.Location, bool, error) {
	parent := key.ResolveParent(fields)
	if err := s.checkRefs(ctx, fields, parent); err != nil {
		return domain.Location{}, false, err
	}

	id := newID()
	now := domain.Now()
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO locations (id, name, location_type_id, status_id, parent_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, key.Name, fields.LocationTypeID, fields.StatusID, nullString(parent), now, now)
	if err != nil {
		if existing, found, rerr := s.match(ctx, key); rerr == nil && found {
			return existing, false, nil
		}
		return domain.Location{}, false, fmt.Errorf("insert location %q: %w", key.Name, err)
	}

	loc, err := s.locationByID(ctx, id)
	if err != nil {
		return domain.Location{}, false, err
	}
	return loc, true, nil
}

// checkRefs verifies the type, status and parent a location points at exist.
func (s *Store) checkRefs(ctx context.Context, fields domain.LocationFields, parent *string) error {
	if err := s.exists(ctx, "location_types", fields.LocationTypeID); err != nil {
		return fmt.Errorf("location type %q: %w", fields.LocationTypeID, err)
	}
	if err := s.exists(ctx, "statuses", fields.StatusID); err != nil {
		return fmt.Errorf("status %q: %w", fields.StatusID, err)
	}
	if parent != nil {
		if err := s.exists(ctx, "locations", *parent); err != nil {
			return fmt.Errorf("parent location %q: %w", *parent, err)
		}
	}
	return nil
}

// exists reports ErrNotFound when table has no row with id. table is never user input.
func (s *Store) exists(ctx context.Context, table, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM `+table+` WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return nil
}
