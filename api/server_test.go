package api

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrader/clock"
	"daytrader/prediction"
	"daytrader/store"
	"daytrader/trader"
)

type fakeStatus struct {
	phase clock.Signal
	date  int
	pick  *prediction.Pick
	state trader.State
}

func (f fakeStatus) CurrentPhase() clock.Signal  { return f.phase }
func (f fakeStatus) CurrentDate() int            { return f.date }
func (f fakeStatus) TodayPick() *prediction.Pick { return f.pick }
func (f fakeStatus) MachineState() trader.State  { return f.state }

func newTestServer(t *testing.T, status StatusProvider) *Server {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log, err := store.NewTradeLog(db)
	require.NoError(t, err)
	return NewServer(status, log)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, fakeStatus{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusReportsPick(t *testing.T) {
	status := fakeStatus{phase: clock.MarketOpen, date: 20240102, pick: &prediction.Pick{Stock: "A000001", Score: 0.8}, state: trader.Holding}
	s := newTestServer(t, status)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A000001")
	assert.Contains(t, rec.Body.String(), "Holding")
}

func TestStatusNoPick(t *testing.T) {
	status := fakeStatus{phase: clock.DataPrep, date: 20240102, state: trader.WaitingForEntry}
	s := newTestServer(t, status)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTradesEmpty(t *testing.T) {
	s := newTestServer(t, fakeStatus{})
	req := httptest.NewRequest(http.MethodGet, "/trades", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
