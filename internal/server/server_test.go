package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/skyscope/internal/dashboard"
	"github.com/KaramelBytes/skyscope/internal/dataset"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
)

func rec(id, city string, floors, year int, feet string) dataset.Record {
	return dataset.Record{
		ID:         id,
		Name:       "Tower " + id,
		City:       city,
		Floors:     dataset.NullInt{Int: floors, Valid: true},
		Completion: dataset.NullInt{Int: year, Valid: true},
		Height:     feet,
		Feet:       feet,
		Meters:     "300 m",
		Latitude:   dataset.NullFloat{Float: 25, Valid: true},
		Longitude:  dataset.NullFloat{Float: 55, Valid: true},
		Material:   "concrete",
	}
}

func fixture(t *testing.T, feetOfFirst string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("fixture.csv", []dataset.Record{
		rec("1", "Dubai", 40, 2010, feetOfFirst),
		rec("2", "Chicago", 30, 1970, "800 ft"),
		rec("3", "Dubai", 45, 2005, "600 ft"),
		rec("4", "Shanghai", 20, 1990, "700 ft"),
	})
	require.NoError(t, err)
	return ds
}

func defaults() dashboard.Request {
	return dashboard.Request{
		Criteria: pipeline.Criteria{MaxFloors: 50, MinYear: 1950},
		MapView:  dashboard.MapLocations,
		BarColor: "red",
	}
}

func newTestServer(t *testing.T, opt Options, load Loader) *Server {
	t.Helper()
	if opt.Defaults.BarColor == "" {
		opt.Defaults = defaults()
	}
	s, err := New(context.Background(), load, opt, nil)
	require.NoError(t, err)
	return s
}

func static(ds *dataset.Dataset) Loader {
	return func(context.Context) (*dataset.Dataset, error) { return ds, nil }
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestNewRefusesUnavailableDataset(t *testing.T) {
	_, err := New(context.Background(), func(ctx context.Context) (*dataset.Dataset, error) {
		return dataset.Load(ctx, "/does/not/exist.csv", dataset.LoadOptions{})
	}, Options{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrDataUnavailable)
}

func TestCitiesAndHealth(t *testing.T) {
	h := newTestServer(t, Options{}, static(fixture(t, "1,000 ft"))).Router()

	w := get(t, h, "/api/cities")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Cities []string `json:"cities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Dubai", "Chicago", "Shanghai"}, body.Cities)

	w = get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rows":4`)
}

func TestDashboardEndpoint(t *testing.T) {
	h := newTestServer(t, Options{}, static(fixture(t, "1,000 ft"))).Router()

	w := get(t, h, "/api/dashboard?city=Dubai&city=Chicago&max_floors=50&min_year=1950&view=density&color=pink")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 3, d.Matched)
	assert.Equal(t, []string{"Dubai", "Chicago"}, d.Request.Criteria.Cities)
	assert.Equal(t, dashboard.MapDensity, d.Request.MapView)
	require.NotNil(t, d.Bar)
	assert.Equal(t, "pink", d.Bar.Color)
	assert.Equal(t, pipeline.CityAverages{{City: "Dubai", Feet: 800}, {City: "Chicago", Feet: 800}}, d.Bar.Bars)

	// defaults apply when parameters are omitted
	w = get(t, h, "/api/dashboard?city=Shanghai")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 1, d.Matched)
	assert.Equal(t, 50, d.Request.Criteria.MaxFloors)
}

func TestDashboardErrors(t *testing.T) {
	h := newTestServer(t, Options{}, static(fixture(t, "unknown"))).Router()

	cases := map[string]int{
		"/api/dashboard?city=Dubai&max_floors=lots": http.StatusBadRequest,
		"/api/dashboard?city=Dubai&min_year=x":      http.StatusBadRequest,
		"/api/dashboard?city=Dubai&color=green":     http.StatusBadRequest,
		"/api/dashboard?city=Dubai&view=satellite":  http.StatusBadRequest,
		"/api/dashboard?city=Dubai":                 http.StatusUnprocessableEntity,
		"/api/dashboard?city=Chicago":               http.StatusOK,
	}
	for url, want := range cases {
		w := get(t, h, url)
		assert.Equal(t, want, w.Code, url)
		if want != http.StatusOK {
			assert.Contains(t, w.Body.String(), `"error"`, url)
		}
	}
}

func TestSkipPolicyReportsMalformedHeights(t *testing.T) {
	h := newTestServer(t, Options{HeightPolicy: pipeline.HeightSkip}, static(fixture(t, "unknown"))).Router()
	w := get(t, h, "/api/dashboard?city=Dubai")
	require.Equal(t, http.StatusOK, w.Code)
	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	require.Len(t, d.SkippedHeights, 1)
	assert.Equal(t, "1", d.SkippedHeights[0].ID)
}

func TestDashboardCacheAndReload(t *testing.T) {
	var fail atomic.Bool
	var loads atomic.Int32
	s := newTestServer(t, Options{CacheEntries: 8}, func(context.Context) (*dataset.Dataset, error) {
		loads.Add(1)
		if fail.Load() {
			return nil, &dataset.DataUnavailableError{Source: "fixture.csv", Reason: "gone"}
		}
		return fixture(t, "1,000 ft"), nil
	})
	req := defaults()
	req.Criteria.Cities = []string{"Dubai"}

	first, err := s.Dashboard(req)
	require.NoError(t, err)
	second, err := s.Dashboard(req)
	require.NoError(t, err)
	assert.Same(t, first.Table, second.Table, "second request should be served from cache")
	assert.NotEqual(t, first.RunID, second.RunID, "each response gets its own run id")
	assert.Equal(t, 1, s.cache.Len())

	fail.Store(true)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	_, gen := s.snapshot()
	assert.Equal(t, uint64(1), gen)
	cached, err := s.Dashboard(req)
	require.NoError(t, err)
	assert.Same(t, first.Table, cached.Table)

	fail.Store(false)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"generation":2`)
	fresh, err := s.Dashboard(req)
	require.NoError(t, err)
	assert.NotSame(t, first.Table, fresh.Table)
	assert.Equal(t, int32(3), loads.Load())
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1}, static(fixture(t, "1,000 ft"))).Router()
	assert.Equal(t, http.StatusOK, get(t, h, "/api/cities").Code)
	w := get(t, h, "/api/cities")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	// health checks are not limited
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestGzipResponses(t *testing.T) {
	var recs []dataset.Record
	for i := 1; i <= 40; i++ {
		recs = append(recs, rec(strconv.Itoa(i), "Dubai", 10, 2000, "500 ft"))
	}
	ds, err := dataset.New("big.csv", recs)
	require.NoError(t, err)
	h := newTestServer(t, Options{}, static(ds)).Router()
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard?city=Dubai", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"matched":40`)
}

func TestSummaryEndpoint(t *testing.T) {
	h := newTestServer(t, Options{}, static(fixture(t, "1,000 ft"))).Router()
	w := get(t, h, "/api/summary")
	require.Equal(t, http.StatusOK, w.Code)
	var sum pipeline.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, 4, sum.Rows)
	assert.Equal(t, 3, sum.Cities)
}

func TestWebSocketSession(t *testing.T) {
	s := newTestServer(t, Options{}, static(fixture(t, "1,000 ft")))
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"criteria":{"cities":["Dubai"]}}`)))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "dashboard", reply.Type)
	assert.Equal(t, 1, reply.Seq)
	require.NotNil(t, reply.Dashboard)
	assert.Equal(t, 2, reply.Dashboard.Matched)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"bar_color":"green"}`)))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, http.StatusBadRequest, reply.Status)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, 3, reply.Seq)
}

func TestLRUEviction(t *testing.T) {
	c := newLRU(2)
	a, b, d := &dashboard.Dashboard{RunID: "a"}, &dashboard.Dashboard{RunID: "b"}, &dashboard.Dashboard{RunID: "d"}
	c.Add("a", a)
	c.Add("b", b)
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Add("d", d)
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)
	c.Purge()
	assert.Zero(t, c.Len())

	off := newLRU(0)
	off.Add("a", a)
	_, ok = off.Get("a")
	assert.False(t, ok)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(&pipeline.UnknownColumnError{Column: "x"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(&dataset.DataUnavailableError{}))
}
