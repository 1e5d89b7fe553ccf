package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/app"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/config"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/metrics"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/worker"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWith(t, config.Default(), nil)
}

// newTestServerWith builds a server whose pool runs wrap(engine), or the
// engine itself when wrap is nil.
func newTestServerWith(t *testing.T, cfg *config.Config, wrap func(*app.EngineService) ports.EnginePort) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := internal.NewLogger(internal.LogLevelError)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	engine := app.NewEngineService(cfg.Engine, logger)
	var poolEngine ports.EnginePort = engine
	if wrap != nil {
		poolEngine = wrap(engine)
	}
	pool := worker.NewPool(context.Background(), poolEngine, cfg.Worker, logger, m)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	return NewServer(engine, pool, m, reg, logger)
}

// gatedEngine holds every reduce until gate is closed.
type gatedEngine struct {
	*app.EngineService
	started chan struct{}
	gate    chan struct{}
}

func (g *gatedEngine) Reduce(req contracts.ReduceRequest) contracts.ReduceResponse {
	g.started <- struct{}{}
	<-g.gate
	return g.EngineService.Reduce(req)
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(consumerHeader, "test-chart")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func f(v float64) *float64 { return &v }

func TestHandleReduce(t *testing.T) {
	s := newTestServer(t)

	req := contracts.ReduceRequest{MaxPoints: 10, KeepEnds: true}
	for i := 0; i < 1000; i++ {
		req.X = append(req.X, int64(i)*60_000)
		req.Y = append(req.Y, f(float64(i%37)))
	}
	req.Y[500] = nil

	rec := postJSON(t, s, "/api/reduce?report=1", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "test-chart", rec.Header().Get(consumerHeader))

	var body struct {
		X      []int64   `json:"x"`
		Y      []float64 `json:"y"`
		Report *struct {
			InputPoints  int  `json:"input_points"`
			OutputPoints int  `json:"output_points"`
			EndsRetained bool `json:"ends_retained"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body.X, 10)
	require.Len(t, body.Y, 10)
	assert.Equal(t, int64(0), body.X[0])
	assert.Equal(t, int64(999)*60_000, body.X[9])
	require.NotNil(t, body.Report)
	assert.Equal(t, 999, body.Report.InputPoints)
	assert.Equal(t, 10, body.Report.OutputPoints)
	assert.True(t, body.Report.EndsRetained)
}

func TestHandleReduce_NullsInJSON(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/reduce", json.RawMessage(
		`{"x":[0,60000,120000,180000,240000],"y":[1.0,null,3.0,null,5.0],"max_points":2,"keep_ends":true}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp contracts.ReduceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// max_points is clamped up to the floor, so all three valid points survive
	assert.Equal(t, []int64{0, 120_000, 240_000}, resp.X)
	assert.Equal(t, []float64{1, 3, 5}, resp.Y)
	assert.NotContains(t, rec.Body.String(), "report")
}

func TestHandleReduce_BadJSON(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/reduce", json.RawMessage(`{"x":"nope"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestHandleReconstruct(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/reconstruct", contracts.ReconstructRequest{
		EventsT:     []int64{0, 600_000, 1_800_000},
		EventsV:     []float64{0, 1, 0},
		WindowStart: 0,
		WindowEnd:   3_600_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp contracts.ReconstructResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.DenseT, 61)
	assert.Equal(t, []series.ActiveSpan{{X1: 600_000, X2: 1_800_000}}, resp.Spans)
	assert.Contains(t, rec.Body.String(), `"spans":[{"x1":600000,"x2":1800000}]`)
}

func TestHandleReconstruct_EmptyEventsHasEmptySpans(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/reconstruct", contracts.ReconstructRequest{WindowStart: 0, WindowEnd: 120_000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dense_v":[0,0,0]`)
	assert.Contains(t, rec.Body.String(), `"spans":[]`)
}

func TestHandleRawEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/raw/reduce", contracts.RawReduceRequest{
		X:         []any{"1970-01-01T00:02:00Z", 60, "junk"},
		Y:         []any{"2.5", true, 1},
		MaxPoints: 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var reduced contracts.ReduceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reduced))
	assert.Equal(t, []int64{60_000, 120_000}, reduced.X)
	assert.Equal(t, []float64{1, 2.5}, reduced.Y)

	rec = postJSON(t, s, "/api/raw/reconstruct", contracts.RawReconstructRequest{
		EventsT:     []any{"1970-01-01T00:01:00Z", 180},
		EventsV:     []any{"on", "off"},
		WindowStart: 0,
		WindowEnd:   240_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var rebuilt contracts.ReconstructResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rebuilt))
	assert.Equal(t, []float64{0, 1, 1, 0, 0}, rebuilt.DenseV)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	postJSON(t, s, "/api/reconstruct", contracts.ReconstructRequest{WindowEnd: 60_000})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tsreduce_requests_total{kind="reconstruct"} 1`)
}

func TestStream_RepliesInOrder(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream?consumer=ws-test"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusInternalError, "test ended")

	for i := 1; i <= 3; i++ {
		env := contracts.Envelope{
			Kind: contracts.KindReconstruct,
			Reconstruct: &contracts.ReconstructRequest{
				EventsT: []int64{0}, EventsV: []float64{1},
				WindowStart: 0, WindowEnd: int64(i) * 60_000,
			},
		}
		require.NoError(t, wsjson.Write(ctx, conn, env))
	}

	for i := 1; i <= 3; i++ {
		var reply contracts.Reply
		require.NoError(t, wsjson.Read(ctx, conn, &reply))
		assert.Equal(t, uint64(i), reply.Generation)
		require.NotNil(t, reply.Reconstruct)
		assert.Len(t, reply.Reconstruct.DenseT, i+1)
	}

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestStream_BadEnvelopeGetsErrorReply(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/stream", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusInternalError, "test ended")

	require.NoError(t, wsjson.Write(ctx, conn, contracts.Envelope{Generation: 9, Kind: contracts.KindReduce}))

	var reply contracts.Reply
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	assert.Equal(t, uint64(9), reply.Generation)
	assert.NotEmpty(t, reply.Error)
}

func TestHandleReconstruct_WideWindowDoesNotCrash(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/reconstruct", json.RawMessage(
		`{"events_t":[0],"events_v":[1],"window_start":-5000000000000000000,"window_end":5000000000000000000}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp contracts.ReconstructResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.DenseT, int(config.Default().Engine.MaxWindowMinutes))

	// the pool is still serving
	rec = postJSON(t, s, "/api/reconstruct", contracts.ReconstructRequest{WindowStart: 0, WindowEnd: 60_000})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReduce_SaturatedPoolAnswersBusy(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.MaxInflight = 1
	cfg.Worker.AcquireTimeout = 50 * time.Millisecond

	gated := &gatedEngine{started: make(chan struct{}, 4), gate: make(chan struct{})}
	s := newTestServerWith(t, cfg, func(engine *app.EngineService) ports.EnginePort {
		gated.EngineService = engine
		return gated
	})

	body := json.RawMessage(`{"x":[0,60000],"y":[1,2],"max_points":10,"keep_ends":true}`)
	first := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/reduce", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		first <- rec.Code
	}()
	<-gated.started

	rec := postJSON(t, s, "/api/reduce", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "BUSY")

	close(gated.gate)
	assert.Equal(t, http.StatusOK, <-first)
}
