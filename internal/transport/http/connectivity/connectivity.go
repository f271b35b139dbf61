package connectivity

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/registration/internal/connectivity"
	"github.com/gorilla/websocket"
)

type observer interface {
	Online() bool
	Since() time.Time
	Subscribe(l connectivity.Listener) func()
}

// Queue is an offline queue as seen by the banner.
type Queue interface {
	Name() string
	Len() int
}

type statusResponse struct {
	Online bool           `json:"online"`
	Since  time.Time      `json:"since"`
	Queued map[string]int `json:"queued"`
}

// Status serves the banner state and the offline queue lengths.
func Status(w http.ResponseWriter, _ *http.Request, obs observer, queues []Queue) {
	resp := statusResponse{
		Online: obs.Online(),
		Since:  obs.Since(),
		Queued: make(map[string]int, len(queues)),
	}
	for _, q := range queues {
		resp.Queued[q.Name()] = q.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are already restricted by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stream pushes the current state and then every connectivity edge to the
// client until it disconnects.
func Stream(w http.ResponseWriter, r *http.Request, obs observer) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "error", err)

		return
	}
	defer conn.Close()

	events := make(chan connectivity.Event, 8)
	unsubscribe := obs.Subscribe(func(ev connectivity.Event) {
		select {
		case events <- ev:
		default:
			slog.Warn("Connectivity stream is slow, dropping event", "online", ev.Online)
		}
	})
	defer unsubscribe()

	if err := conn.WriteJSON(connectivity.Event{Online: obs.Online(), At: obs.Since()}); err != nil {
		return
	}

	// The reader only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
					websocket.CloseAbnormalClosure,
				) {
					slog.Debug("Connectivity stream read error", "error", err)
				}

				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("Connectivity stream write error", "error", err)

				return
			}
		}
	}
}
