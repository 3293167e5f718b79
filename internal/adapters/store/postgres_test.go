package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/busbeacon/beacon/internal/domain"
	"github.com/busbeacon/beacon/internal/ports"
)

func TestInsertLocation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db)

	expected := regexp.QuoteMeta("INSERT INTO bus_locations (bus_id, latitude, longitude) VALUES ($1,$2,$3)")
	mock.ExpectExec(expected).
		WithArgs("BUS001", 37.7749, -122.4194).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := st.InsertLocation(context.Background(), "BUS001", 37.7749, -122.4194); err != nil {
		t.Fatalf("insert location: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateBusStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db)

	expected := regexp.QuoteMeta("UPDATE buses SET status = $2 WHERE id = $1")
	mock.ExpectExec(expected).
		WithArgs("BUS001", "inactive").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.UpdateBusStatus(context.Background(), "BUS001", domain.StatusInactive); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLatestLocationFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db)
	recorded := time.Now()

	rows := sqlmock.NewRows([]string{"bus_id", "latitude", "longitude", "status", "recorded_at"}).
		AddRow("BUS001", 37.7749, -122.4194, "active", recorded)
	mock.ExpectQuery("SELECT l.bus_id, l.latitude").
		WithArgs("BUS001").
		WillReturnRows(rows)

	row, err := st.LatestLocation(context.Background(), "BUS001")
	if err != nil {
		t.Fatalf("latest location: %v", err)
	}
	if row == nil {
		t.Fatal("expected a row")
	}
	if row.Status != domain.StatusActive || row.Latitude != 37.7749 {
		t.Fatalf("row mismatch: %+v", row)
	}
}

func TestLatestLocationNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db)

	mock.ExpectQuery("SELECT l.bus_id, l.latitude").
		WithArgs("BUS404").
		WillReturnRows(sqlmock.NewRows([]string{"bus_id", "latitude", "longitude", "status", "recorded_at"}))

	row, err := st.LatestLocation(context.Background(), "BUS404")
	if err != nil {
		t.Fatalf("no-rows lookup must not error: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil row, got %+v", row)
	}
}

func TestChildrenWithBusesScansNulls(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db)

	cols := []string{"parent_id", "child_id", "child_name", "bus_id", "bus_name",
		"route_name", "status", "latitude", "longitude", "last_updated", "driver_name"}
	rows := sqlmock.NewRows(cols).
		AddRow("p1", "c1", "Ada", "BUS001", "North Route", "Route 1",
			"active", 37.7749, -122.4194, time.Now(), "Sam").
		AddRow("p1", "c2", "Ben", "BUS002", "South Route", "Route 2",
			nil, nil, nil, nil, nil)
	mock.ExpectQuery("SELECT parent_id, child_id").
		WithArgs("p1").
		WillReturnRows(rows)

	views, err := st.ChildrenWithBuses(context.Background(), "p1")
	if err != nil {
		t.Fatalf("children with buses: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(views))
	}
	if views[0].DriverName != "Sam" {
		t.Fatalf("row mismatch: %+v", views[0])
	}
	if !views[1].LastUpdated.IsZero() || views[1].DriverName != "" {
		t.Fatalf("null columns must scan to zero values: %+v", views[1])
	}
}

func TestParseFeedPayload(t *testing.T) {
	ev, err := parsePayload(`{"op":"INSERT","bus_id":"BUS001"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Kind != ports.FeedInsert || ev.BusID != "BUS001" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	ev, err = parsePayload(`{"op":"UPDATE","bus_id":"BUS002"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Kind != ports.FeedUpdate || ev.BusID != "BUS002" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if _, err := parsePayload("not json"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
