package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNormalizeRecord(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	row := normalizeRecord(map[string]interface{}{
		"Id":      int64(7),
		"Name":    []byte("Ada"),
		"Created": created,
		"Missing": nil,
	})

	if row["Id"] != int64(7) {
		t.Errorf("expected Id 7, got %v", row["Id"])
	}
	if row["Name"] != "Ada" {
		t.Errorf("expected byte slice to become string, got %#v", row["Name"])
	}
	if row["Created"] != created {
		t.Errorf("expected time to be kept, got %v", row["Created"])
	}
	if v, ok := row["Missing"]; !ok || v != nil {
		t.Errorf("expected nil column to be kept, got %v", v)
	}
}

func TestFetchRowsEmptyQuery(t *testing.T) {
	repo := NewRowRepository(nil)
	_, err := repo.FetchRows(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

// recordedQuery captures what the repository sent to the database
type recordedQuery struct {
	query   string
	args    []driver.NamedValue
	columns []string
	values  [][]driver.Value
	err     error
}

type stubConnector struct{ q *recordedQuery }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn(c), nil }
func (c stubConnector) Driver() driver.Driver                         { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open through the connector")
}

type stubConn struct{ q *recordedQuery }

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare not supported") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("transactions not supported") }

func (c stubConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.q.query = query
	c.q.args = args
	if c.q.err != nil {
		return nil, c.q.err
	}
	return &stubRows{columns: c.q.columns, values: c.q.values}, nil
}

type stubRows struct {
	columns []string
	values  [][]driver.Value
	next    int
}

func (r *stubRows) Columns() []string { return r.columns }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}

func newStubDB(t *testing.T, q *recordedQuery) *gorm.DB {
	t.Helper()

	sqlDB := sql.OpenDB(stubConnector{q: q})
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return db
}

func TestFetchRows(t *testing.T) {
	q := &recordedQuery{
		columns: []string{"Id", "Name", "Age"},
		values: [][]driver.Value{
			{int64(1), []byte("Ada"), int64(36)},
			{int64(2), []byte("Grace"), nil},
		},
	}
	repo := NewRowRepository(newStubDB(t, q))

	rows, err := repo.FetchRows(context.Background(), "SELECT Id, Name, Age FROM people WHERE Age > ?", 30)
	if err != nil {
		t.Fatalf("FetchRows failed: %v", err)
	}

	if q.query != "SELECT Id, Name, Age FROM people WHERE Age > ?" {
		t.Errorf("unexpected query: %s", q.query)
	}
	if len(q.args) != 1 || q.args[0].Value != int64(30) {
		t.Errorf("unexpected query args: %+v", q.args)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Id"] != int64(1) || rows[0]["Name"] != "Ada" || rows[0]["Age"] != int64(36) {
		t.Errorf("unexpected first row: %#v", rows[0])
	}
	if rows[1]["Name"] != "Grace" {
		t.Errorf("expected byte column to become string, got %#v", rows[1]["Name"])
	}
	if v, ok := rows[1]["Age"]; !ok || v != nil {
		t.Errorf("expected NULL column to be kept as nil, got %#v", v)
	}
}

func TestFetchRowsNoRecords(t *testing.T) {
	q := &recordedQuery{columns: []string{"Id"}}
	repo := NewRowRepository(newStubDB(t, q))

	rows, err := repo.FetchRows(context.Background(), "SELECT Id FROM people")
	if err != nil {
		t.Fatalf("FetchRows failed: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil rows, got %#v", rows)
	}
}

func TestFetchRowsQueryError(t *testing.T) {
	q := &recordedQuery{err: errors.New("table people doesn't exist")}
	repo := NewRowRepository(newStubDB(t, q))

	_, err := repo.FetchRows(context.Background(), "SELECT Id FROM people")
	if err == nil || !strings.Contains(err.Error(), "failed to fetch rows") {
		t.Errorf("expected wrapped query error, got %v", err)
	}
}
