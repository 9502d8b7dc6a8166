package api

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"net/url"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/heysubinoy/kvweb/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes caps the size of a store request body.
const maxBodyBytes = 1 << 20

//go:embed static/index.html
var indexHTML []byte

// Server exposes a Service over HTTP: a JSON API under /api and the HTML
// page at /.
type Server struct {
	Service *Service
	Logger  log.FieldLogger

	// Metrics, when set, is served as JSON at /api/metrics.
	Metrics *store.InstrumentedStore
	// Gatherer, when set, is served in prometheus format at /metrics.
	Gatherer prometheus.Gatherer
	// RequestLogging logs every request at info level.
	RequestLogging bool
}

// NewServer creates a new HTTP server for the given service.
func NewServer(svc *Service, logger log.FieldLogger) *Server {
	return &Server{
		Service: svc,
		Logger:  logger,
	}
}

type (
	messageResponse struct {
		Message string `json:"message"`
	}
	keysResponse struct {
		Keys []string `json:"keys"`
	}
	errorResponse struct {
		Error string `json:"error"`
	}
)

// Handler returns the complete handler: routes plus middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	// Match on the raw path so that an escaped slash stays inside {key}.
	r.UseEncodedPath()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
	})
	s.RegisterRoutes(r)

	var h http.Handler = r
	if s.RequestLogging {
		h = logRequests(s.Logger, h)
	}
	h = gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(s.Logger),
		gorillaHandlers.PrintRecoveryStack(true),
	)(h)
	return withRequestID(h)
}

// RegisterRoutes registers all HTTP handlers on the given router.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/store", s.handleStore).Methods(http.MethodPost)
	api.HandleFunc("/get/{key}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/keys", s.handleKeys).Methods(http.MethodGet)
	api.HandleFunc("/delete/{key}", s.handleDelete).Methods(http.MethodDelete)
	if s.Metrics != nil {
		api.Handle("/metrics", MetricsHandler(s.Metrics)).Methods(http.MethodGet)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStore handles POST /api/store requests with JSON body.
// Expects: {"key": "foo", "value": "bar"}
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		s.writeError(w, r, &ValidationError{Msg: "Request body must be a JSON object"})
		return
	}

	key, value := stringField(body["key"]), stringField(body["value"])
	msg, err := s.Service.Store(r.Context(), key, value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger(r).WithField("key", key).Debug("Stored")
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// handleGet handles GET /api/get/{key} requests.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyVar(w, r)
	if !ok {
		return
	}
	rec, err := s.Service.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.Service.Keys(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keysResponse{Keys: keys})
}

// handleDelete handles DELETE /api/delete/{key} requests.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyVar(w, r)
	if !ok {
		return
	}
	msg, err := s.Service.Delete(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger(r).WithField("key", key).Debug("Deleted")
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// keyVar returns the unescaped {key} path variable.
func (s *Server) keyVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := url.PathUnescape(mux.Vars(r)["key"])
	if err != nil {
		s.writeError(w, r, &ValidationError{Msg: "Invalid key encoding"})
		return "", false
	}
	return key, true
}

func (s *Server) logger(r *http.Request) log.FieldLogger {
	return s.Logger.WithField("request_id", RequestID(r.Context()))
}

// writeError is the single place where Service errors become responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	logger := s.logger(r).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"err":    err,
	})
	if status >= http.StatusInternalServerError {
		logger.Error("Store operation failed")
	} else {
		logger.Debug("Request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// stringField returns raw as a string if it holds a JSON string, otherwise "".
func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
