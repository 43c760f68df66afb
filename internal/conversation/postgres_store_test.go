package conversation

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"archie/internal/tester"
)

// emptyDB accepts every statement and answers every query with no rows.
type emptyDB struct {
	ddl atomic.Int32
}

func (d *emptyDB) Connect(context.Context) (driver.Conn, error) { return &emptyConn{db: d}, nil }
func (d *emptyDB) Driver() driver.Driver                        { return d }
func (d *emptyDB) Open(string) (driver.Conn, error)             { return &emptyConn{db: d}, nil }

type emptyConn struct{ db *emptyDB }

func (c *emptyConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare unsupported") }
func (c *emptyConn) Close() error                        { return nil }
func (c *emptyConn) Begin() (driver.Tx, error)           { return emptyTx{}, nil }

func (c *emptyConn) ExecContext(ctx context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.Contains(query, "CREATE TABLE") {
		c.db.ddl.Add(1)
	}
	return driver.RowsAffected(0), nil
}

func (c *emptyConn) QueryContext(ctx context.Context, _ string, _ []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return emptyRows{}, nil
}

type emptyTx struct{}

func (emptyTx) Commit() error   { return nil }
func (emptyTx) Rollback() error { return nil }

type emptyRows struct{}

func (emptyRows) Columns() []string         { return []string{"data"} }
func (emptyRows) Close() error              { return nil }
func (emptyRows) Next([]driver.Value) error { return io.EOF }

func TestPostgresStore_SchemaRetriedAfterFailure(t *testing.T) {
	fake := &emptyDB{}
	db := sql.OpenDB(fake)
	t.Cleanup(func() { _ = db.Close() })
	st := NewPostgresStoreFromDB(db, time.Minute)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := st.Get(canceled, "s1")
	tester.ErrIs(t, err, context.Canceled, "canceled caller")
	tester.Eq(t, fake.ddl.Load(), int32(0))

	_, err = st.Get(context.Background(), "s1")
	tester.ErrIs(t, err, ErrSessionNotFound, "schema retried with a live context")
	tester.Eq(t, fake.ddl.Load(), int32(1))

	_, err = st.Get(context.Background(), "s1")
	tester.ErrIs(t, err, ErrSessionNotFound)
	tester.Eq(t, fake.ddl.Load(), int32(1))
}
