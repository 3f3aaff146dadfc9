package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/room4-2/switchboard/activity"
	"github.com/room4-2/switchboard/catalog"
	"github.com/room4-2/switchboard/config"
	"github.com/room4-2/switchboard/dialog"
	"github.com/room4-2/switchboard/session"
	"github.com/room4-2/switchboard/twiml"

	"github.com/bytedance/sonic"
)

// Server exposes the voice webhook surface to the telephony gateway and the
// activity socket to operator dashboards.
type Server struct {
	httpServer *http.Server
	dispatcher *dialog.Dispatcher
	store      *session.Store
	cat        *catalog.Catalog
	renderer   *twiml.Renderer
	hub        *activity.Hub
	upgrader   websocket.Upgrader
	config     *config.Config
}

// New creates the server and registers all routes.
func New(cfg *config.Config, dispatcher *dialog.Dispatcher, store *session.Store, cat *catalog.Catalog, renderer *twiml.Renderer, hub *activity.Hub, registry *prometheus.Registry) *Server {
	s := &Server{
		dispatcher: dispatcher,
		store:      store,
		cat:        cat,
		renderer:   renderer,
		hub:        hub,
		config:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Check allowed origins for dashboard connections
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/voice/answer", s.handleAnswer)
	mux.HandleFunc("/voice/gatherresult", s.handleGatherResult)
	mux.HandleFunc("/voice/gatherresultpartial", s.handleGatherResultPartial)
	mux.HandleFunc("/voice/intent", s.handleIntent)
	mux.HandleFunc("/voice/preload", s.handlePreload)
	mux.HandleFunc("/activity", s.handleActivity)
	mux.HandleFunc("/health", s.handleHealth)
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
		// No WriteTimeout — it would kill long-lived activity sockets.
		// The WebSocket layer sets its own deadlines.
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start begins listening for connections
func (s *Server) Start() error {
	log.Printf("🚀 Voice server starting on port %d", s.config.Port)
	log.Printf("📡 Answer webhook: http://localhost:%d/voice/answer", s.config.Port)
	log.Printf("📡 Activity socket: ws://localhost:%d/activity", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}

// handleAnswer handles the gateway's call-start event.
// Form fields: CallSid, From.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	callID := r.PostFormValue("CallSid")
	caller := r.PostFormValue("From")
	if callID == "" {
		http.Error(w, "CallSid is required", http.StatusBadRequest)
		return
	}

	decision, err := s.dispatcher.OnCallStart(r.Context(), callID, caller)
	if err != nil {
		if errors.Is(err, session.ErrSessionLimit) {
			log.Printf("⚠️ Refusing call %s: %v", callID, err)
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		log.Printf("❌ Failed to answer call %s: %v", callID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.writeDecision(w, decision)
}

// handleGatherResult handles one final speech transcript.
// Form fields: CallSid, SpeechResult.
func (s *Server) handleGatherResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	callID := r.PostFormValue("CallSid")
	transcript := r.PostFormValue("SpeechResult")
	if callID == "" {
		http.Error(w, "CallSid is required", http.StatusBadRequest)
		return
	}

	log.Printf("🎤 [%s] Transcript: %q", callID, transcript)

	decision, err := s.dispatcher.OnTranscript(r.Context(), callID, transcript)
	if err != nil {
		var cfgErr *catalog.ConfigError
		switch {
		case errors.Is(err, dialog.ErrInvalidSession):
			log.Printf("⚠️ Rejecting transcript for unanswered call %s", callID)
			http.Error(w, "Bad Request", http.StatusBadRequest)
		case errors.As(err, &cfgErr):
			log.Printf("❌ [%s] %v", callID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		default:
			log.Printf("❌ [%s] Dialog evaluation failed: %v", callID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	s.writeDecision(w, decision)
}

// handleGatherResultPartial accepts low-confidence partial transcripts.
// They never drive the state machine; the gateway just needs an ack.
// Form fields: CallSid, UnstableSpeechResult.
func (s *Server) handleGatherResultPartial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	callID := r.PostFormValue("CallSid")
	partial := r.PostFormValue("UnstableSpeechResult")
	log.Printf("🎤 [%s] Partial: %q", callID, partial)

	s.writeTwiML(w, s.renderer.Empty())
}

// handleIntent is a diagnostic endpoint: classify arbitrary text without
// touching session state. GET /voice/intent?input=...
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if input == "" {
		http.Error(w, "input is required", http.StatusBadRequest)
		return
	}

	result, err := s.dispatcher.OnIntentQuery(r.Context(), input)
	if err != nil {
		log.Printf("❌ Intent query failed: %v", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	body, err := sonic.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// handlePreload plays every catalog prompt once so the gateway caches them.
func (s *Server) handlePreload(w http.ResponseWriter, r *http.Request) {
	s.writeTwiML(w, s.renderer.Preload(s.cat.AllPrompts()))
}

// handleActivity upgrades dashboard connections onto the hub.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Activity WebSocket upgrade failed: %v", err)
		return
	}
	s.hub.Subscribe(conn)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","sessions":%d,"subscribers":%d}`, s.store.Count(), s.hub.SubscriberCount())
}

func (s *Server) writeDecision(w http.ResponseWriter, decision dialog.Decision) {
	doc, err := s.renderer.Render(decision)
	if err != nil {
		log.Printf("❌ Failed to render decision: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.writeTwiML(w, doc)
}

func (s *Server) writeTwiML(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", "text/xml")
	w.Write(doc)
}
