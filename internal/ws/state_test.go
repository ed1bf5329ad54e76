package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ws2812spi/transport"
	"github.com/coreman2200/ws2812spi/ws2812"
)

func newState(t *testing.T, n int, mode string) (*State, *transport.Recorder) {
	rec := &transport.Recorder{}
	d, err := ws2812.New(ws2812.Conf{NumPixels: n, Sync: rec, Async: rec})
	require.NoError(t, err)
	return NewState(d, mode), rec
}

func TestApply(t *testing.T) {
	s, rec := newState(t, 4, ModeAsync)

	assert.True(t, s.Apply(Command{Op: "set", Index: 1, Color: "ff0000"}).OK)
	assert.True(t, s.Apply(Command{Op: "set", Index: 2, Color: "#00ff00"}).OK)
	r := s.Apply(Command{Op: "show"})
	require.True(t, r.OK, r.Error)
	assert.Equal(t, uint64(1), r.FrameID)

	want := []ws2812.Pixel{{}, ws2812.RGB(255, 0, 0), ws2812.RGB(0, 255, 0), {}}
	got, err := ws2812.Decode(rec.Call(0))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1+ws2812.ResetRepeat, rec.Calls())

	assert.True(t, s.Apply(Command{Op: "multi", Indices: []int{0, 3, 9}, Color: "0000ff"}).OK)
	assert.Equal(t, []ws2812.Pixel{ws2812.RGB(0, 0, 255), {}, {}, ws2812.RGB(0, 0, 255)}, s.drv.Pixels())

	assert.True(t, s.Apply(Command{Op: "clear"}).OK)
	assert.Equal(t, make([]ws2812.Pixel, 4), s.drv.Pixels())

	for _, c := range []Command{
		{Op: "set", Index: 4, Color: "ffffff"},
		{Op: "set", Index: 0, Color: "nope"},
		{Op: "pattern", Name: "plane_z"},
		{Op: "explode"},
	} {
		r := s.Apply(c)
		assert.False(t, r.OK, "%+v", c)
		assert.NotEmpty(t, r.Error)
	}
}

func TestApply_ShowFailure(t *testing.T) {
	s, rec := newState(t, 2, ModeSync)
	rec.FailAt = 2
	r := s.Apply(Command{Op: "show"})
	assert.False(t, r.OK)
	assert.Equal(t, uint64(0), r.FrameID)
	assert.Equal(t, 2, rec.Calls())
	assert.Equal(t, uint64(1), s.failures)
}

func TestClose_DarkFrameInMode(t *testing.T) {
	for _, mode := range []string{ModeSync, ModeAsync} {
		t.Run(mode, func(t *testing.T) {
			s, rec := newState(t, 3, mode)
			require.True(t, s.Apply(Command{Op: "multi", Indices: []int{0, 2}, Color: "ffffff"}).OK)
			require.True(t, s.Apply(Command{Op: "pattern", Name: "blink"}).OK)
			rec.Reset()

			require.NoError(t, s.Close())
			assert.Nil(t, s.runner)
			assert.Equal(t, ws2812.ResetRepeat, rec.Resets())
			dark := ws2812.EncodeFrame(nil, make([]ws2812.Pixel, 3))
			assert.Equal(t, dark, rec.Data())
			if mode == ModeSync {
				assert.Equal(t, 3*3+ws2812.ResetRepeat, rec.Calls())
			} else {
				assert.Equal(t, 1+ws2812.ResetRepeat, rec.Calls())
			}

			r := s.Apply(Command{Op: "show"})
			assert.False(t, r.OK)
			assert.Contains(t, r.Error, ws2812.ErrClosed.Error())
			assert.ErrorIs(t, s.Close(), ws2812.ErrClosed)
		})
	}
}

func TestTick_Pattern(t *testing.T) {
	s, rec := newState(t, 2, ModeSync)
	require.True(t, s.Apply(Command{Op: "pattern", Name: "index_sweep"}).OK)

	require.NoError(t, s.Tick(0))
	p, _ := s.drv.Pixel(0)
	assert.Equal(t, ws2812.RGB(255, 255, 255), p)
	require.NoError(t, s.Tick(0))
	p, _ = s.drv.Pixel(1)
	assert.Equal(t, ws2812.RGB(255, 255, 255), p)

	// Third tick finishes the sweep; the frame is still pushed.
	require.NoError(t, s.Tick(0))
	assert.Nil(t, s.runner)
	assert.Equal(t, uint64(3), s.frameID)
	assert.Equal(t, 3*(6+ws2812.ResetRepeat), rec.Calls())
}

func newServer(s *State) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return httptest.NewServer(mux)
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestControlWS(t *testing.T) {
	s, rec := newState(t, 3, ModeAsync)
	srv := newServer(s)
	defer srv.Close()

	c := dial(t, srv, "/control")
	var rep Reply
	require.NoError(t, c.WriteJSON(Command{Op: "set", Index: 2, Color: "123456"}))
	require.NoError(t, c.ReadJSON(&rep))
	assert.True(t, rep.OK, rep.Error)

	require.NoError(t, c.WriteJSON(Command{Op: "show"}))
	require.NoError(t, c.ReadJSON(&rep))
	assert.True(t, rep.OK, rep.Error)
	assert.Equal(t, uint64(1), rep.FrameID)
	assert.Len(t, rec.Call(0), ws2812.FrameLen(3))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{")))
	require.NoError(t, c.ReadJSON(&rep))
	assert.False(t, rep.OK)
}

func TestFramesAndDiagWS(t *testing.T) {
	s, _ := newState(t, 2, ModeAsync)
	srv := newServer(s)
	defer srv.Close()

	frames := dial(t, srv, "/ws")
	diags := dial(t, srv, "/diag")
	require.Eventually(t, func() bool {
		s.cmu.Lock()
		defer s.cmu.Unlock()
		return len(s.clients) == 1 && len(s.diagClients) == 1
	}, time.Second, 10*time.Millisecond)

	require.True(t, s.Apply(Command{Op: "set", Index: 0, Color: "010203"}).OK)
	require.NoError(t, s.Tick(0))

	var f struct {
		FrameID uint64 `json:"frame_id"`
		RGB     []byte `json:"rgb"`
	}
	frames.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, frames.ReadJSON(&f))
	assert.Equal(t, uint64(1), f.FrameID)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0}, f.RGB)

	require.True(t, s.Apply(Command{Op: "pattern", Name: "blink"}).OK)
	var d map[string]any
	diags.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, diags.ReadJSON(&d))
	assert.Equal(t, "TEST.RUNNING", d["code"])
}

func TestHealth(t *testing.T) {
	s, _ := newState(t, 5, ModeSync)
	s.Transport = "sim"
	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(5), resp["count"])
	assert.Equal(t, "sync", resp["mode"])
	assert.Equal(t, "sim", resp["transport"])
}
