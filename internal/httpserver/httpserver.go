package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kvpd/kvpd/internal/facade"
	"github.com/kvpd/kvpd/internal/kvstore"
)

// errBadRequest marks client-side failures like an unparseable body.
var errBadRequest = errors.New("bad request")

type Server struct {
	store  *facade.Facade
	srv    *http.Server
	mux    *mux.Router
	logger *zap.Logger
}

// New creates a new http server.
func New(store *facade.Facade, logger *zap.Logger) (*Server, error) {
	s := &Server{store: store, mux: mux.NewRouter(), logger: logger}

	h := func(f func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
		return s.handleErr(f)
	}

	s.mux.HandleFunc("/kv/{key}", h(s.handleKvRead)).Methods("GET")
	s.mux.HandleFunc("/kv", h(s.handleKvCreate)).Methods("POST")
	s.mux.HandleFunc("/kv/{key}", h(s.handleKvUpdate)).Methods("PUT")
	s.mux.HandleFunc("/kv/{key}", h(s.handleKvDelete)).Methods("DELETE")
	s.mux.HandleFunc("/kv", h(s.handleKvKeys)).Methods("GET")

	s.mux.HandleFunc("/config", h(s.handleConfig)).Methods("GET")

	return s, nil
}

// Handler returns the route handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the http server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:    address,
		Handler: s.mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("failed to start http server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	s.logger.Warn("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown failed", zap.Error(err))
	}
	return nil
}

func (s *Server) handleErr(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}

		s.logger.Debug("http request failed", zap.Error(err))

		type httpError struct {
			Error string `json:"error"`
		}

		w.Header().Set("Content-Type", "application/json")

		// GET -> 404/200, POST -> 409/201, PUT -> 404/200, DELETE -> 200
		var status int
		var errStr string
		switch {
		case errors.Is(err, errBadRequest):
			status = http.StatusBadRequest
			errStr = err.Error()
		case errors.Is(err, kvstore.ErrNotFound):
			status = http.StatusNotFound
			errStr = err.Error()
		case errors.Is(err, kvstore.ErrAlreadyExists):
			status = http.StatusConflict
			errStr = err.Error()
		case errors.Is(err, kvstore.ErrNotConnected), errors.Is(err, kvstore.ErrUnavailable):
			status = http.StatusServiceUnavailable
			errStr = err.Error()
		default:
			s.logger.Warn("unhandled error", zap.Error(err))
			status = http.StatusInternalServerError
			errStr = "something went wrong"
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(httpError{Error: errStr})
	}
}

type kvPair struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

func (s *Server) handleKvRead(w http.ResponseWriter, r *http.Request) error {
	key := mux.Vars(r)["key"]

	value, err := s.store.Read(r.Context(), key)
	if err != nil {
		return err
	}

	return json.NewEncoder(w).Encode(kvPair{Key: key, Value: string(value)})
}

func (s *Server) handleKvCreate(w http.ResponseWriter, r *http.Request) error {
	var kv kvPair
	if err := json.NewDecoder(r.Body).Decode(&kv); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	if err := s.store.Create(r.Context(), kv.Key, []byte(kv.Value)); err != nil {
		return err
	}

	w.WriteHeader(http.StatusCreated)
	return nil
}

func (s *Server) handleKvUpdate(w http.ResponseWriter, r *http.Request) error {
	key := mux.Vars(r)["key"]

	var kv kvPair
	if err := json.NewDecoder(r.Body).Decode(&kv); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	if err := s.store.Update(r.Context(), key, []byte(kv.Value)); err != nil {
		return err
	}

	return json.NewEncoder(w).Encode(kvPair{Key: key, Value: kv.Value})
}

func (s *Server) handleKvDelete(w http.ResponseWriter, r *http.Request) error {
	key := mux.Vars(r)["key"]

	// delete is idempotent, a missing key is still a 200
	if err := s.store.Delete(r.Context(), key); err != nil {
		return err
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

func (s *Server) handleKvKeys(w http.ResponseWriter, r *http.Request) error {
	keys, err := s.store.Keys(r.Context())
	if err != nil {
		return err
	}
	if keys == nil {
		keys = []string{}
	}

	type keyList struct {
		Keys []string `json:"keys"`
	}
	return json.NewEncoder(w).Encode(keyList{Keys: keys})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) error {
	type configInfo struct {
		Backend string `json:"backend"`
	}
	return json.NewEncoder(w).Encode(configInfo{Backend: s.store.Backend()})
}
