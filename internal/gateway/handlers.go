package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"signalstreamv1/internal/model"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Core is the coordinator surface consumed by the REST handlers: the thin
// query/overwrite endpoints are stateless wrappers around these operations.
type Core interface {
	// LastSignal returns the most recent decision; ok is false before the
	// first closed candle has been processed.
	LastSignal() (sig model.Signal, ok bool)

	// Candles returns the last n retained closed candles (n <= 0 for all).
	Candles(n int) []model.Candle

	// OverwriteCandles replaces the candle history, truncated to the newest
	// entries within capacity.
	OverwriteCandles(candles []model.Candle)
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers the websocket endpoint and the REST query surface.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, core Core) {
	// Subscriber websocket
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.HandleConn(conn)
	})

	// REST: last computed signal
	mux.HandleFunc("/api/signal", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)

		case http.MethodGet:
			sig, ok := core.LastSignal()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"no signal yet"}`))
				return
			}
			json.NewEncoder(w).Encode(sig)

		default:
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		}
	})

	// REST: recent candle snapshot + bulk overwrite
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)

		case http.MethodGet:
			limit := 0
			if s := r.URL.Query().Get("limit"); s != "" {
				n, err := strconv.Atoi(s)
				if err != nil || n < 0 {
					http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
					return
				}
				limit = n
			}
			json.NewEncoder(w).Encode(core.Candles(limit))

		case http.MethodPost:
			// Require a top-level array before decoding: "null" and other
			// non-sequence values decode into a nil slice without error and
			// would silently wipe the history.
			var raw json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || len(raw) == 0 || raw[0] != '[' {
				// Invalid payload leaves existing history untouched.
				http.Error(w, `{"error":"expected an array of candles"}`, http.StatusBadRequest)
				return
			}
			var candles []model.Candle
			if err := json.Unmarshal(raw, &candles); err != nil {
				http.Error(w, `{"error":"expected an array of candles"}`, http.StatusBadRequest)
				return
			}
			core.OverwriteCandles(candles)
			log.Printf("[gateway] candle history overwritten (%d candles)", len(candles))
			json.NewEncoder(w).Encode(map[string]any{"status": "ok", "count": len(candles)})

		default:
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		}
	})
}
