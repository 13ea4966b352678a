package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/internal/logging"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/samples"
	"github.com/aretw0/distsim/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultHorizon bounds POST /sessions/{id}/settle when the body names none.
const DefaultHorizon = 1000 * domain.Unit

// Server exposes a session.Manager over REST.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithMetrics serves the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Handler()
}

// NewServer creates a Server with its own stream registry.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// Handler routes the REST API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/samples", s.ListSamples)
	r.Get("/topologies", s.ListTopologies)
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Route("/{session}", func(r chi.Router) {
			r.Put("/", s.StartSession)
			r.Delete("/", s.DeleteSession)

			r.Get("/topology", s.GetTopology)
			r.Put("/topology", s.PutTopology)
			r.Post("/vertices", s.AddVertex)
			r.Put("/vertices/{vertex}", s.UpdateVertex)
			r.Delete("/vertices/{vertex}", s.RemoveVertex)
			r.Post("/channels", s.AddChannel)
			r.Delete("/channels/{from}/{to}", s.RemoveChannel)

			r.Post("/run", s.Run)
			r.Post("/reset", s.Reset)
			r.Post("/advance", s.Advance)
			r.Post("/settle", s.Settle)
			r.Get("/report", s.GetReport)

			r.Post("/save", s.SaveTopology)
			r.Post("/load", s.LoadTopology)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "distsim-http",
		"version": strings.TrimSpace(distsim.Version),
	})
}

// ListSamples handles the GET /samples request.
func (s *Server) ListSamples(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, samples.List())
}

// ListTopologies handles the GET /topologies request.
func (s *Server) ListTopologies(w http.ResponseWriter, r *http.Request) {
	names, err := s.Sessions.Topologies(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Sessions.List())
}

// StartSession handles PUT /sessions/{session}.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.LoadOrStart(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Sim.Export())
}

// DeleteSession handles DELETE /sessions/{session}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "session")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTopology handles GET /sessions/{session}/topology.
func (s *Server) GetTopology(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Sim.Export())
}

// PutTopology replaces the topology with the posted graph export.
func (s *Server) PutTopology(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var g domain.GraphExport
	if !s.decode(w, r, &g) {
		return
	}
	if err := sess.Sim.ImportExport(g); err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(sess)
	s.writeJSON(w, http.StatusOK, sess.Sim.Export())
}

type vertexRequest struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Initiator *bool    `json:"initiator"`
}

// AddVertex handles POST /sessions/{session}/vertices.
func (s *Server) AddVertex(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body vertexRequest
	if !s.decode(w, r, &body) {
		return
	}
	id := sess.Sim.AddVertex(deref(body.X), deref(body.Y))
	if body.Initiator != nil && *body.Initiator {
		if err := sess.Sim.SetInitiator(id, true); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.publish(sess)
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": id, "label": id.Label()})
}

// UpdateVertex moves a vertex and/or toggles its initiator flag.
func (s *Server) UpdateVertex(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, ok := s.vertexParam(w, r, "vertex")
	if !ok {
		return
	}
	var body vertexRequest
	if !s.decode(w, r, &body) {
		return
	}
	if (body.X == nil) != (body.Y == nil) {
		http.Error(w, "x and y must be given together", http.StatusBadRequest)
		return
	}
	if body.X != nil {
		if err := sess.Sim.MoveVertex(id, *body.X, *body.Y); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if body.Initiator != nil {
		if err := sess.Sim.SetInitiator(id, *body.Initiator); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.publish(sess)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveVertex handles DELETE /sessions/{session}/vertices/{vertex}.
// Higher ids shift down by one.
func (s *Server) RemoveVertex(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, ok := s.vertexParam(w, r, "vertex")
	if !ok {
		return
	}
	if !sess.Sim.RemoveVertex(id) {
		s.writeError(w, fmt.Errorf("%s: %w", id.Label(), domain.ErrVertexNotFound))
		return
	}
	s.publish(sess)
	w.WriteHeader(http.StatusNoContent)
}

type channelRequest struct {
	From     domain.VertexID `json:"from"`
	To       domain.VertexID `json:"to"`
	Directed bool            `json:"directed"`
}

// AddChannel handles POST /sessions/{session}/channels.
func (s *Server) AddChannel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body channelRequest
	if !s.decode(w, r, &body) {
		return
	}
	label, err := sess.Sim.AddChannel(body.From, body.To, body.Directed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(sess)
	s.writeJSON(w, http.StatusCreated, map[string]string{"label": label})
}

// RemoveChannel handles DELETE /sessions/{session}/channels/{from}/{to}.
func (s *Server) RemoveChannel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	from, ok := s.vertexParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := s.vertexParam(w, r, "to")
	if !ok {
		return
	}
	removed, err := sess.Sim.RemoveChannel(from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !removed {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}
	s.publish(sess)
	w.WriteHeader(http.StatusNoContent)
}

type runRequest struct {
	Sample string `json:"sample"`
	Source string `json:"source"`
}

// Run handles POST /sessions/{session}/run with either a sample name or a script.
func (s *Server) Run(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body runRequest
	if !s.decode(w, r, &body) {
		return
	}
	var err error
	switch {
	case body.Sample != "" && body.Source != "":
		http.Error(w, "sample and source are mutually exclusive", http.StatusBadRequest)
		return
	case body.Sample != "":
		err = sess.Sim.RunSample(r.Context(), body.Sample)
	default:
		err = sess.Sim.Run(r.Context(), body.Source)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("run started", "session_id", sess.ID, "run_id", sess.Sim.RunID())
	s.respondReport(w, sess)
}

// Reset handles POST /sessions/{session}/reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Sim.Reset()
	s.respondReport(w, sess)
}

type advanceRequest struct {
	Units float64 `json:"units"`
	Ticks int     `json:"ticks"`
}

// Advance moves simulated time by units, or by ticks when units is zero.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body advanceRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Units < 0 || body.Ticks < 0 {
		http.Error(w, "units and ticks must not be negative", http.StatusBadRequest)
		return
	}
	if body.Units > 0 {
		sess.Sim.Advance(r.Context(), units(body.Units))
	} else {
		for range max(body.Ticks, 1) {
			sess.Sim.Tick(r.Context())
		}
	}
	s.respondReport(w, sess)
}

type settleRequest struct {
	Horizon float64 `json:"horizon"`
}

// Settle handles POST /sessions/{session}/settle.
func (s *Server) Settle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body settleRequest
	if !s.decode(w, r, &body) {
		return
	}
	horizon := DefaultHorizon
	if body.Horizon > 0 {
		horizon = units(body.Horizon)
	}
	if _, err := sess.Sim.Settle(r.Context(), horizon); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondReport(w, sess)
}

// GetReport handles GET /sessions/{session}/report.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Sim.Report())
}

type storeRequest struct {
	Name string `json:"name"`
}

// SaveTopology handles POST /sessions/{session}/save.
func (s *Server) SaveTopology(w http.ResponseWriter, r *http.Request) {
	var body storeRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.Sessions.SaveTopology(r.Context(), chi.URLParam(r, "session"), body.Name); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadTopology handles POST /sessions/{session}/load.
func (s *Server) LoadTopology(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body storeRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.Sessions.LoadTopology(r.Context(), sess.ID, body.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(sess)
	s.writeJSON(w, http.StatusOK, sess.Sim.Export())
}

// -- Helpers --

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "session"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) vertexParam(w http.ResponseWriter, r *http.Request, name string) (domain.VertexID, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(strings.TrimPrefix(raw, "p"))
	if err != nil || id < 0 {
		http.Error(w, fmt.Sprintf("invalid vertex %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return domain.VertexID(id), true
}

// decode reads a JSON body; an empty body leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) respondReport(w http.ResponseWriter, sess *session.Session) {
	rep := sess.Sim.Report()
	s.broadcast(sess.ID, rep)
	s.writeJSON(w, http.StatusOK, rep)
}

// publish sends the current report to subscribers after a topology edit.
func (s *Server) publish(sess *session.Session) {
	s.broadcast(sess.ID, sess.Sim.Report())
}

func (s *Server) broadcast(id string, rep domain.Report) {
	if bytes, err := json.Marshal(rep); err == nil {
		s.Streams.Broadcast(id, string(bytes))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	http.Error(w, err.Error(), code)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrTopologyNotFound),
		errors.Is(err, domain.ErrVertexNotFound),
		errors.Is(err, domain.ErrSampleNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateChannel):
		return http.StatusConflict
	case errors.Is(err, domain.ErrImportParse),
		errors.Is(err, domain.ErrSandboxLoad):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func units(u float64) time.Duration {
	return time.Duration(u * float64(domain.Unit))
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
