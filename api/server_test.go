package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lightlink-network/ll-bridge-relayer/database"
	"github.com/lightlink-network/ll-bridge-relayer/database/models"
	"github.com/lightlink-network/ll-bridge-relayer/relayer"
	"github.com/lightlink-network/ll-bridge-relayer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct{ st relayer.Status }

func (f fakeStatus) Status() relayer.Status { return f.st }

type fakeMints struct {
	mints      map[string]models.PreparedMint
	lastFilter models.Filter
	lastPage   int64
	lastSize   int64
	err        error
}

func (f *fakeMints) GetPreparedMints(ctx context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error) {
	f.lastFilter, f.lastPage, f.lastSize = filter, page, pageSize
	if f.err != nil {
		return nil, f.err
	}
	items := []models.PreparedMint{}
	for _, m := range f.mints {
		items = append(items, m)
	}
	return &models.PaginatedResult{Items: items, TotalCount: int64(len(items)), Page: page, PageSize: pageSize}, nil
}

func (f *fakeMints) GetPreparedMintByNonce(ctx context.Context, sourceNonce string) (models.PreparedMint, error) {
	m, ok := f.mints[sourceNonce]
	if !ok {
		return models.PreparedMint{}, fmt.Errorf("prepared mint %s: %w", sourceNonce, database.ErrNotFound)
	}
	return m, nil
}

var testNonce = types.Nonce{0xab}

func newTestServer(mints MintReader) *Server {
	return NewServer(ServerOpts{
		Status: fakeStatus{relayer.Status{State: types.Running, LastProcessedBlock: 1234, Cycles: 5}},
		Mints:  mints,
	})
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(nil), "/v1/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"health_status":"online"}`, rec.Body.String())
}

func TestStatus(t *testing.T) {
	rec := get(t, newTestServer(nil), "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var st relayer.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, types.Running, st.State)
	assert.Equal(t, uint64(1234), st.LastProcessedBlock)
	assert.Equal(t, uint64(5), st.Cycles)
}

func TestMintsWithoutDatabase(t *testing.T) {
	s := newTestServer(nil)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/v1/mints").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/v1/mints/"+testNonce.Hex()).Code)
}

func TestMintsList(t *testing.T) {
	mints := &fakeMints{mints: map[string]models.PreparedMint{
		testNonce.Hex(): {SourceNonce: testNonce.Hex(), Amount: "1000"},
	}}
	s := newTestServer(mints)

	rec := get(t, s, "/v1/mints?page=2&pageSize=500&user=0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, int64(2), mints.lastPage)
	assert.Equal(t, int64(maxPageSize), mints.lastSize)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", mints.lastFilter.User)
	assert.Contains(t, rec.Body.String(), `"total_count":1`)
}

func TestMintsListDefaults(t *testing.T) {
	mints := &fakeMints{}
	get(t, newTestServer(mints), "/v1/mints?page=abc")

	assert.Equal(t, int64(1), mints.lastPage)
	assert.Equal(t, int64(10), mints.lastSize)
}

func TestMintsListBadAddress(t *testing.T) {
	rec := get(t, newTestServer(&fakeMints{}), "/v1/mints?token=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMintsListError(t *testing.T) {
	rec := get(t, newTestServer(&fakeMints{err: errors.New("server selection timeout")}), "/v1/mints")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "server selection timeout")
}

func TestMintByNonce(t *testing.T) {
	mints := &fakeMints{mints: map[string]models.PreparedMint{
		testNonce.Hex(): {SourceNonce: testNonce.Hex(), Amount: "1000"},
	}}
	s := newTestServer(mints)

	rec := get(t, s, "/v1/mints/"+strings.ToUpper(strings.TrimPrefix(testNonce.Hex(), "0x")))
	require.Equal(t, http.StatusOK, rec.Code)

	var m models.PreparedMint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "1000", m.Amount)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/v1/mints/"+types.Nonce{0x01}.Hex()).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/v1/mints/0x1234").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
