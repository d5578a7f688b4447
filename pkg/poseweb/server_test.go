package poseweb

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/odometer/pkg/chassis"
	"github.com/tigerbot-team/odometer/pkg/encoder"
	"github.com/tigerbot-team/odometer/pkg/odometer"
)

func newOdometer(t *testing.T) *odometer.Odometer {
	t.Helper()
	o, err := odometer.New(encoder.NewDummy(), odometer.Config{Geometry: chassis.DefaultGeometry()}, odometer.WithoutScheduler())
	require.NoError(t, err)
	return o
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, odometer.Pose) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var p odometer.Pose
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
	return rec, p
}

func TestGetPose(t *testing.T) {
	s := NewServer(newOdometer(t), DefaultConfig(), nil)
	rec, p := do(t, s, http.MethodGet, "/pose", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, odometer.InitialPose, p)
}

func TestPutPoseOnlyChangesGivenFields(t *testing.T) {
	o := newOdometer(t)
	s := NewServer(o, DefaultConfig(), nil)

	rec, p := do(t, s, http.MethodPut, "/pose", `{"x": 5, "theta": 367}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, odometer.Pose{X: 5, Y: 0, Theta: 7}, p)
	assert.Equal(t, p, o.Pose())

	rec, _ = do(t, s, http.MethodPut, "/pose", `{"x": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, p, o.Pose())
}

func TestCorrectHeading(t *testing.T) {
	o := newOdometer(t)
	s := NewServer(o, DefaultConfig(), nil)

	rec, p := do(t, s, http.MethodPost, "/pose/heading", `{"delta": -100}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 350.0, p.Theta)

	rec, _ = do(t, s, http.MethodPost, "/pose/heading", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, s, http.MethodPost, "/pose/heading", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 350.0, o.Heading())
}

func TestWrongMethods(t *testing.T) {
	s := NewServer(newOdometer(t), DefaultConfig(), nil)

	rec, _ := do(t, s, http.MethodDelete, "/pose", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, PUT", rec.Header().Get("Allow"))

	rec, _ = do(t, s, http.MethodGet, "/pose/heading", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebsocketStreamsPose(t *testing.T) {
	o := newOdometer(t)
	s := NewServer(o, Config{Period: 5 * time.Millisecond}, nil)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, l) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+l.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	readPose := func() odometer.Pose {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var p odometer.Pose
		require.NoError(t, json.Unmarshal(msg, &p))
		return p
	}
	assert.Equal(t, odometer.InitialPose, readPose())

	o.SetX(42)
	// Messages already queued still carry the old pose.
	for i := 0; ; i++ {
		require.Less(t, i, messageBufferSize+5, "never saw the new pose")
		if readPose().X == 42 {
			break
		}
	}

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not shut down")
	}
}

type flagScheduler struct {
	running bool
}

func (f *flagScheduler) Start()        { f.running = true }
func (f *flagScheduler) Stop()         { f.running = false }
func (f *flagScheduler) Running() bool { return f.running }

func TestSampling(t *testing.T) {
	sched := &flagScheduler{}
	o, err := odometer.New(encoder.NewDummy(), odometer.Config{Geometry: chassis.DefaultGeometry()}, odometer.WithScheduler(sched))
	require.NoError(t, err)
	s := NewServer(o, DefaultConfig(), nil)

	sampling := func(method, body string) (int, string) {
		req := httptest.NewRequest(method, "/sampling", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		return rec.Code, strings.TrimSpace(rec.Body.String())
	}

	code, body := sampling(http.MethodGet, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"running":false}`, body)

	code, body = sampling(http.MethodPut, `{"running": true}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"running":true}`, body)
	assert.True(t, sched.running)

	code, _ = sampling(http.MethodPut, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, sched.running)

	code, body = sampling(http.MethodPut, `{"running": false}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"running":false}`, body)

	code, _ = sampling(http.MethodPost, `{"running": true}`)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}
