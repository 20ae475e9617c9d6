package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// statusEvent is one message on the status stream.
type statusEvent struct {
	Status  model.Status         `json:"status"`
	Message string               `json:"message"`
	Failure *session.FailureView `json:"failure,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") {
				return true
			}
			return slices.Contains(s.cfg.AllowedOrigins, origin)
		},
	}
}

// handleStatusWS streams status updates until the run reaches a terminal
// phase or the client disconnects.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("server: websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	updates, cancel := sess.Subscribe()
	defer cancel()

	// Reader loop detects client disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(st model.Status) bool {
		snap := sess.Snapshot()
		ev := statusEvent{Status: st, Message: session.Message(st, int(time.Now().Unix()/3))}
		if st.Phase == model.PhaseFailed {
			ev.Failure = snap.Failure
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			return false
		}
		return true
	}

	snap := sess.Snapshot()
	if !send(snap.Status) || (!snap.Running && snap.Status.Terminal()) {
		s.closeWS(conn)
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-s.runCtx.Done():
			s.closeWS(conn)
			return
		case st := <-updates:
			if !send(st) {
				return
			}
			if st.Terminal() {
				s.closeWS(conn)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) closeWS(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
