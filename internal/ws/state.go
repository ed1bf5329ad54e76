package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/ws2812spi/internal/diagnostics"
	"github.com/coreman2200/ws2812spi/internal/pattern"
	"github.com/coreman2200/ws2812spi/ws2812"
)

const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Command is one control message.
type Command struct {
	Op      string `json:"op"` // set | multi | clear | show | pattern | stop
	Index   int    `json:"index,omitempty"`
	Indices []int  `json:"indices,omitempty"`
	Color   string `json:"color,omitempty"` // rrggbb
	Name    string `json:"name,omitempty"`  // pattern name
}

type Reply struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	FrameID uint64 `json:"frame_id"`
}

// State owns the driver and serializes every access to it; ws2812.Driver has
// no locking of its own.
type State struct {
	mu        sync.Mutex
	drv       *ws2812.Driver
	mode      string
	frameID   uint64
	failures  uint64
	startTime time.Time
	runner    *pattern.Runner

	Transport string

	cmu         sync.Mutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
}

func NewState(drv *ws2812.Driver, mode string) *State {
	if mode != ModeSync {
		mode = ModeAsync
	}
	return &State{
		drv:         drv,
		mode:        mode,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
	}
}

// Tick advances the running pattern, if any, and pushes the store. It is the
// refresh loop's frame func.
func (s *State) Tick(time.Duration) error {
	s.mu.Lock()
	if s.runner != nil {
		ok, err := s.runner.Step(s.drv)
		if err != nil || !ok {
			kind := s.runner.Kind()
			s.runner = nil
			if err != nil {
				s.pushDiag(diag.Diagnostic{Time: time.Now(), Severity: diag.Err, Code: "TEST.FAILED", Summary: "Pattern failed", Detail: err.Error()})
			} else {
				s.pushDiag(diag.Diagnostic{Time: time.Now(), Severity: diag.Info, Code: "TEST.DONE", Summary: "Test complete", Detail: string(kind)})
			}
		}
	}
	err := s.show()
	id := s.frameID
	rgb := s.rgb()
	s.mu.Unlock()

	s.broadcastFrame(id, rgb)
	return err
}

// Apply runs one control command.
func (s *State) Apply(c Command) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(c)
	r := Reply{OK: err == nil, FrameID: s.frameID}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func (s *State) apply(c Command) error {
	switch c.Op {
	case "set":
		p, err := ws2812.ParsePixel(c.Color)
		if err != nil {
			return err
		}
		r, g, b := p.RGB()
		return s.drv.SetPixel(c.Index, r, g, b)
	case "multi":
		p, err := ws2812.ParsePixel(c.Color)
		if err != nil {
			return err
		}
		r, g, b := p.RGB()
		return s.drv.SetMulti(c.Indices, r, g, b)
	case "clear":
		return s.drv.Clear()
	case "show":
		return s.show()
	case "pattern":
		k, err := pattern.Parse(c.Name)
		if err != nil {
			s.pushDiag(diag.Diagnostic{
				Time: time.Now(), Severity: diag.Warn, Code: "TEST.UNKNOWN", Summary: "Unknown test name",
				Evidence: map[string]any{"name": c.Name},
			})
			return err
		}
		s.runner = pattern.NewRunner(k)
		s.pushDiag(diag.Diagnostic{Time: time.Now(), Severity: diag.Info, Code: "TEST.RUNNING", Summary: "Running test", Detail: c.Name})
		return nil
	case "stop":
		s.runner = nil
		return nil
	}
	return fmt.Errorf("unknown op %q", c.Op)
}

// Close stops any pattern, pushes a dark frame in the configured mode and
// releases the driver. Commands after Close fail with ws2812.ErrClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runner = nil
	err := s.drv.Clear()
	if err == nil {
		err = s.show()
	}
	if cerr := s.drv.Close(); err == nil {
		err = cerr
	}
	return err
}

// show must be called with s.mu held.
func (s *State) show() error {
	var err error
	if s.mode == ModeSync {
		err = s.drv.ShowSync()
	} else {
		err = s.drv.ShowAsync()
	}
	if err != nil {
		s.failures++
		s.pushDiag(diag.ShowFailed(s.mode, err))
		return err
	}
	s.frameID++
	return nil
}

// rgb must be called with s.mu held.
func (s *State) rgb() []byte {
	px := s.drv.Pixels()
	out := make([]byte, 0, 3*len(px))
	for _, p := range px {
		r, g, b := p.RGB()
		out = append(out, r, g, b)
	}
	return out
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.cmu.Lock()
	s.clients[conn] = true
	s.cmu.Unlock()
	go s.drain(conn, s.clients)
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.cmu.Lock()
	s.diagClients[conn] = true
	s.cmu.Unlock()
	go s.drain(conn, s.diagClients)
}

// drain reads until the peer goes away, then forgets conn.
func (s *State) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		s.cmu.Lock()
		delete(set, conn)
		s.cmu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var c Command
		var rep Reply
		if err := json.Unmarshal(data, &c); err != nil {
			rep = Reply{Error: err.Error()}
		} else {
			rep = s.Apply(c)
		}
		log.Debug().Str("op", c.Op).Bool("ok", rep.OK).Str("error", rep.Error).Msg("control")
		if err := conn.WriteJSON(rep); err != nil {
			return
		}
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := map[string]any{
		"frame_id":  s.frameID,
		"failures":  s.failures,
		"uptime_s":  time.Since(s.startTime).Seconds(),
		"count":     s.drv.Len(),
		"mode":      s.mode,
		"transport": s.Transport,
	}
	if s.runner != nil {
		resp["pattern"] = s.runner.Kind()
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *State) broadcastFrame(id uint64, rgb []byte) {
	type frame struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		RGB     []byte `json:"rgb"`
	}
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: id, RGB: rgb})
	s.cmu.Lock()
	defer s.cmu.Unlock()
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) pushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.cmu.Lock()
	defer s.cmu.Unlock()
	for c := range s.diagClients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}
