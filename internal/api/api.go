// Provides StartServer and the HTTP API surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chatrelay/server/internal/config"
	"github.com/chatrelay/server/internal/hub"
	"github.com/chatrelay/server/internal/logger"
)

const (
	messageRetention    = 24 * time.Hour
	shutdownGrace       = 5 * time.Second
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// StartServer wires the hub to its HTTP and WebSocket endpoints and serves
// until SIGINT/SIGTERM. NATS is an optional collaborator: when unreachable,
// the relay runs without message archiving.
func StartServer(cfg config.Config, log *logger.Logger) {
	nc, js := connectNATS(cfg, log)
	if nc != nil {
		defer nc.Close()
	}

	var store hub.MessageStore
	if js != nil {
		store = hub.NewNATSStore(js, logger.NewLogger("store"))
	}
	h := hub.New(store, logger.NewLogger("hub"))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWs)
	mux.HandleFunc("/api/history", historyHandler(store, log))
	mux.HandleFunc("/api/presence", presenceHandler(h))
	mux.HandleFunc("/health", healthHandler(h, nc, js))

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("Server started at %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	if err := h.Shutdown(shutdownGrace); err != nil {
		log.Warnf("Hub shutdown: %v", err)
	}
}

// connectNATS dials NATS and ensures the message stream exists. Any failure
// is logged and the server continues without persistence.
func connectNATS(cfg config.Config, log *logger.Logger) (*nats.Conn, nats.JetStreamContext) {
	natsURL := cfg.NatsURL
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	log.Infof("Connecting to NATS at %s", natsURL)
	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Errorf("Error connecting to NATS: %v", err)
		log.Warn("Running without NATS. Message archiving is disabled.")
		return nil, nil
	}

	js, err := nc.JetStream()
	if err != nil {
		log.Errorf("Error getting JetStream context: %v", err)
		log.Warn("Running without JetStream. Message archiving is disabled.")
		return nc, nil
	}

	streamConfig := &nats.StreamConfig{
		Name:     hub.StreamName,
		Subjects: []string{"messages.*"},
		Storage:  nats.FileStorage,
		MaxAge:   messageRetention,
	}
	if _, err := js.StreamInfo(hub.StreamName); err != nil {
		if _, err := js.AddStream(streamConfig); err != nil {
			log.Errorf("Error creating stream %s: %v", hub.StreamName, err)
			return nc, nil
		}
		log.Infof("Created stream: %s", hub.StreamName)
	} else {
		if _, err := js.UpdateStream(streamConfig); err != nil {
			log.Errorf("Error updating stream %s: %v", hub.StreamName, err)
		}
	}
	return nc, js
}

func historyHandler(store hub.MessageStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "message archive not available", http.StatusServiceUnavailable)
			return
		}

		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}

		messages, err := store.RecentMessages(limit)
		if err != nil {
			log.Errorf("Error retrieving history: %v", err)
			http.Error(w, "error retrieving messages", http.StatusInternalServerError)
			return
		}

		type historyEntry struct {
			Sender    string `json:"sender"`
			Text      string `json:"text"`
			Timestamp int64  `json:"ts"`
		}
		entries := make([]historyEntry, 0, len(messages))
		for _, m := range messages {
			entries = append(entries, historyEntry{Sender: m.From, Text: m.Text, Timestamp: m.Timestamp})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": entries,
			"count":    len(entries),
		})
	}
}

func presenceHandler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roster := h.Presence()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"participants": roster,
			"count":        len(roster),
		})
	}
}

func healthHandler(h *hub.Hub, nc *nats.Conn, js nats.JetStreamContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		natsStatus := "disconnected"
		if nc != nil && nc.Status() == nats.CONNECTED {
			natsStatus = "connected"
		}
		health := map[string]interface{}{
			"status":      "ok",
			"nats":        natsStatus,
			"connections": h.Count(),
			"version":     "1.0.0",
		}
		if js != nil {
			if info, err := js.StreamInfo(hub.StreamName); err == nil {
				health["stream"] = map[string]interface{}{
					"name":      hub.StreamName,
					"messages":  info.State.Msgs,
					"bytes":     info.State.Bytes,
					"retention": info.Config.MaxAge.String(),
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	}
}
