// Package store persists bus locations in Postgres and exposes the
// row-change feed used by subscribers in degraded mode.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/busbeacon/beacon/internal/domain"
	"github.com/busbeacon/beacon/internal/ports"
)

// PostgresStore implements ports.LocationStore over database/sql.
// Schema: bus_locations (append-only history), buses (status column),
// plus the latest_bus_locations and parent_child_buses views.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertLocation(ctx context.Context, busID string, lat, lon float64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO bus_locations (bus_id, latitude, longitude) VALUES ($1,$2,$3)",
		busID, lat, lon)
	if err != nil {
		return fmt.Errorf("insert location for %s: %w", busID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateBusStatus(ctx context.Context, busID string, status domain.Status) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE buses SET status = $2 WHERE id = $1",
		busID, string(status))
	if err != nil {
		return fmt.Errorf("update status for %s: %w", busID, err)
	}
	return nil
}

func (s *PostgresStore) LatestLocation(ctx context.Context, busID string) (*ports.LocationRow, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT l.bus_id, l.latitude, l.longitude, b.status, l.recorded_at"+
			" FROM latest_bus_locations l JOIN buses b ON b.id = l.bus_id"+
			" WHERE l.bus_id = $1",
		busID)

	var out ports.LocationRow
	var status string
	err := row.Scan(&out.BusID, &out.Latitude, &out.Longitude, &status, &out.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest location for %s: %w", busID, err)
	}
	out.Status = domain.ParseStatus(status)
	return &out, nil
}

func (s *PostgresStore) LatestLocations(ctx context.Context) ([]ports.LocationRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT l.bus_id, l.latitude, l.longitude, b.status, l.recorded_at"+
			" FROM latest_bus_locations l JOIN buses b ON b.id = l.bus_id")
	if err != nil {
		return nil, fmt.Errorf("latest locations: %w", err)
	}
	defer rows.Close()

	var out []ports.LocationRow
	for rows.Next() {
		var r ports.LocationRow
		var status string
		if err := rows.Scan(&r.BusID, &r.Latitude, &r.Longitude, &status, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Status = domain.ParseStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ChildrenWithBuses(ctx context.Context, parentID string) ([]domain.ChildBusView, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT parent_id, child_id, child_name, bus_id, bus_name, route_name,"+
			" status, latitude, longitude, last_updated, driver_name"+
			" FROM parent_child_buses WHERE parent_id = $1",
		parentID)
	if err != nil {
		return nil, fmt.Errorf("children with buses for %s: %w", parentID, err)
	}
	defer rows.Close()

	var out []domain.ChildBusView
	for rows.Next() {
		var v domain.ChildBusView
		var status, driver sql.NullString
		var lat, lon sql.NullFloat64
		var updated sql.NullTime
		if err := rows.Scan(&v.ParentID, &v.ChildID, &v.ChildName, &v.BusID,
			&v.BusName, &v.RouteName, &status, &lat, &lon, &updated, &driver); err != nil {
			return nil, err
		}
		v.Status = status.String
		v.Latitude = lat.Float64
		v.Longitude = lon.Float64
		v.LastUpdated = updated.Time
		v.DriverName = driver.String
		out = append(out, v)
	}
	return out, rows.Err()
}

var _ ports.LocationStore = (*PostgresStore)(nil)
