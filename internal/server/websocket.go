package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/KaramelBytes/skyscope/internal/dashboard"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// wsReply is sent for every processed request. Seq echoes the order in which
// requests arrived; skipped sequence numbers were superseded.
type wsReply struct {
	Type      string               `json:"type"`
	Seq       int                  `json:"seq"`
	Dashboard *dashboard.Dashboard `json:"dashboard,omitempty"`
	Error     string               `json:"error,omitempty"`
	Status    int                  `json:"status,omitempty"`
}

type wsRequest struct {
	seq int
	raw []byte
}

// handleWS runs a live dashboard session: each incoming JSON request triggers
// one recomputation. Requests that arrive while one is computing replace any
// request still waiting, so only the newest is answered.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	session := uuid.NewString()
	log := s.log.With("session", session)
	log.Info("websocket session opened")

	pending := make(chan wsRequest, 1)
	done := make(chan struct{})
	go s.wsWriter(conn, pending, done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	seq := 0
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", "err", err)
			}
			break
		}
		seq++
		req := wsRequest{seq: seq, raw: msg}
		select {
		case pending <- req:
		default:
			select {
			case <-pending:
			default:
			}
			pending <- req
		}
	}
	close(pending)
	<-done
	log.Info("websocket session closed", "requests", seq)
}

func (s *Server) wsWriter(conn *websocket.Conn, pending <-chan wsRequest, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()
	for {
		select {
		case req, ok := <-pending:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(s.answer(req)); err != nil {
				abandon(conn, pending)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				abandon(conn, pending)
				return
			}
		}
	}
}

// abandon closes a broken connection, which unblocks the reader, and drains
// pending until the reader closes it.
func abandon(conn *websocket.Conn, pending <-chan wsRequest) {
	_ = conn.Close()
	for range pending {
	}
}

func (s *Server) answer(req wsRequest) wsReply {
	in := s.opt.Defaults
	in.Criteria.Cities = nil
	if err := json.Unmarshal(req.raw, &in); err != nil {
		return wsReply{Type: "error", Seq: req.seq, Error: "invalid request: " + err.Error(), Status: http.StatusBadRequest}
	}
	d, err := s.Dashboard(in)
	if err != nil {
		return wsReply{Type: "error", Seq: req.seq, Error: err.Error(), Status: statusFor(err)}
	}
	return wsReply{Type: "dashboard", Seq: req.seq, Dashboard: d}
}
