package extractor

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldb/sentinel/internal/contracts"
	"github.com/sentineldb/sentinel/internal/types"
)

// fakeQuerier drives the sqlite3 driver as a stand-in target,
// exercising SQLExtractor's connection/pacing/error-wrapping logic without
// a real vendor-specific catalog query.
type fakeQuerier struct {
	objects []types.ProgrammableObject
}

func (fakeQuerier) Dialect() string { return "fake" }

func (fakeQuerier) ServerInfo(ctx context.Context, db *sql.DB) (string, error) {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return "", err
	}
	return "fake server", nil
}

func (f fakeQuerier) AllObjects(ctx context.Context, db *sql.DB) ([]types.ProgrammableObject, error) {
	return f.objects, nil
}

func (f fakeQuerier) SingleObject(ctx context.Context, db *sql.DB, schema, name string) (*types.ProgrammableObject, error) {
	for _, o := range f.objects {
		if o.Schema == schema && o.Name == name {
			obj := o
			return &obj, nil
		}
	}
	return nil, nil
}

func testConn() contracts.ConnectionDescriptor {
	return contracts.ConnectionDescriptor{
		Target:   types.Target{TenantID: 1, TenantCode: "T1", Environment: types.EnvironmentDevelopment},
		Host:     ":memory:",
		Database: "test",
	}
}

func TestTestConnectionReturnsServerInfo(t *testing.T) {
	e := New("sqlite3", fakeQuerier{}, 1000)
	info, err := e.TestConnection(context.Background(), testConn())
	require.NoError(t, err)
	assert.Equal(t, "fake server", info)
}

func TestExtractAllReturnsObjects(t *testing.T) {
	objects := []types.ProgrammableObject{
		{Schema: "dbo", Name: "GetUser", Kind: types.KindProcedure, Definition: "CREATE PROC dbo.GetUser AS SELECT 1"},
	}
	e := New("sqlite3", fakeQuerier{objects: objects}, 1000)
	got, err := e.ExtractAll(context.Background(), testConn())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dbo.GetUser", got[0].FullName())
}

func TestExtractSingleMissingReturnsNil(t *testing.T) {
	e := New("sqlite3", fakeQuerier{}, 1000)
	got, err := e.ExtractSingle(context.Background(), testConn(), "dbo", "Missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenFailureWrapsErrConnect(t *testing.T) {
	e := New("nonexistent-driver", fakeQuerier{}, 1000)
	_, err := e.TestConnection(context.Background(), testConn())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConnect)
}

func TestCanceledContextWrapsErrCancelled(t *testing.T) {
	e := New("sqlite3", fakeQuerier{}, 1000)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	_, err := e.TestConnection(ctx, testConn())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrCancelled)
}
