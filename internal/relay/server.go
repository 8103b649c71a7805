// internal/relay/server.go
//
// HTTP + websocket relay that lets a hosting player accept connections
// from joining players who cannot reach it directly.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/rooms".
//   - Room claim (POST /rooms/{id}) issuing a signed host ticket.
//   - Websocket endpoints: /rooms/{id}/host (ticket required) and
//     /rooms/{id}/join (passphrase checked when the room has one).
//
// Notes:
//   - Websocket routes are mounted outside the Timeout middleware; the
//     sockets outlive any single request deadline.
//   - The host sees every peer through one socket as Frames; peers see
//     only raw messages.

package relay

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultTicketTTL = 10 * time.Minute

// Options configures a relay Server.
type Options struct {
	Secret       string        // HS256 key for room tickets
	TicketTTL    time.Duration // ticket lifetime; also how long an unattached claim is held
	ClientOrigin string        // allowed browser origin; "*" allows any
	Logger       *zerolog.Logger
}

// Server bundles the router and the room hub.
type Server struct {
	r        *chi.Mux
	secret   []byte
	ttl      time.Duration
	origin   string
	hub      *hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	lg := log.Logger.With().Str("component", "relay").Logger()
	if opts.Logger != nil {
		lg = *opts.Logger
	}
	ttl := opts.TicketTTL
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	origin := opts.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
	if opts.Secret == "" {
		lg.Warn().Msg("JWT_SECRET not set, using an insecure development key")
		opts.Secret = "dev-insecure-relay-secret"
	}

	s := &Server{
		r:      chi.NewRouter(),
		secret: []byte(opts.Secret),
		ttl:    ttl,
		origin: origin,
		hub:    newHub(ttl, lg),
		log:    lg,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"ripoff-robots-relay","endpoints":["/health","/rooms","POST /rooms/{id}","/rooms/{id}/host","/rooms/{id}/join"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/rooms", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(s.hub.list())
		})
		r.Post("/rooms/{id}", s.handleClaim)
	})

	s.r.Get("/rooms/{id}/host", s.handleHost)
	s.r.Get("/rooms/{id}/join", s.handleJoin)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Rooms lists the rooms currently claimed.
func (s *Server) Rooms() []RoomInfo { return s.hub.list() }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin admits non-browser clients (no Origin) and the configured origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	o := r.Header.Get("Origin")
	return o == "" || s.origin == "*" || strings.EqualFold(o, s.origin)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ------------------------------- ROOMS -------------------------------------

type claimReq struct {
	Passphrase string `json:"passphrase"`
}
type claimRes struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleClaim reserves a room id and returns the host ticket for it.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_room")
		return
	}
	var req claimReq
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json")
			return
		}
	}
	hash, err := hashPassphrase(req.Passphrase)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_passphrase")
		return
	}
	if err := s.hub.claim(id, hash, time.Now()); err != nil {
		writeError(w, http.StatusConflict, "room_taken")
		return
	}
	token, exp, err := s.signTicket(id)
	if err != nil {
		s.log.Error().Err(err).Str("room", id).Msg("sign ticket")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.log.Info().Str("room", id).Bool("locked", hash != nil).Msg("room claimed")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(claimRes{Token: token, ExpiresAt: exp.UTC()})
}

// handleHost upgrades the hosting player's socket and pumps Frames.
func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.checkTicket(bearerOrQuery(r), id); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_ticket")
		return
	}
	// Attach before upgrading so peers can join as soon as the host's
	// dial returns.
	sock := newSocket(nil)
	if err := s.hub.attachHost(id, sock); err != nil {
		writeError(w, http.StatusConflict, "host_attached")
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("room", id).Msg("host upgrade")
		s.hub.closeRoom(id, sock)
		return
	}
	sock.ws = ws
	s.log.Info().Str("room", id).Msg("host attached")
	go sock.writePump()

	sock.prepareRead()
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.log.Warn().Err(err).Str("room", id).Msg("bad host frame")
			continue
		}
		s.hub.fromHost(id, f)
	}
	s.hub.closeRoom(id, sock)
	s.log.Info().Str("room", id).Msg("room closed")
}

// handleJoin upgrades a joining player's socket and forwards its messages
// to the host.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hash, err := s.hub.hosted(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "no_such_room")
		return
	}
	q := r.URL.Query()
	if err := checkPassphrase(hash, q.Get("passphrase")); err != nil {
		writeError(w, http.StatusForbidden, "wrong_passphrase")
		return
	}
	var meta json.RawMessage
	if m := q.Get("metadata"); m != "" && json.Valid([]byte(m)) {
		meta = json.RawMessage(m)
	}

	peer := uuid.NewString()
	sock := newSocket(nil)
	if err := s.hub.addPeer(id, peer, meta, sock); err != nil {
		writeError(w, http.StatusNotFound, "no_such_room")
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("room", id).Msg("join upgrade")
		s.hub.removePeer(id, peer)
		return
	}
	sock.ws = ws
	s.log.Info().Str("room", id).Str("peer", peer).Msg("peer joined")
	go sock.writePump()

	sock.prepareRead()
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		s.hub.fromPeer(id, peer, raw)
	}
	s.hub.removePeer(id, peer)
	s.log.Info().Str("room", id).Str("peer", peer).Msg("peer left")
}
