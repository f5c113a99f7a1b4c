package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sfi-network/sfi-bridge-bot/types"
)

// Records is the source of withdrawal records served by the API.
type Records interface {
	Records() []types.WithdrawalRecord
}

// API server
type Server struct {
	r       chi.Router
	log     *slog.Logger
	records Records
	opts    ServerOpts
}

type ServerOpts struct {
	Logger  *slog.Logger
	Port    string
	Records Records
	Version string
}

// Create API server
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Records == nil {
		return nil, fmt.Errorf("api server requires a records source")
	}

	s := &Server{
		log:     opts.Logger,
		records: opts.Records,
		opts:    opts,
	}
	s.routes()

	return s, nil
}

// Starts HTTP server. It blocks until the listener fails.
func (s *Server) StartServer() error {
	s.log.Info("📡 Server Started. API Server is now listening on http://localhost:" + s.opts.Port)
	if err := http.ListenAndServe(":"+s.opts.Port, s.r); err != nil {
		s.log.Error("server error", "error", err)
		return err
	}
	return nil
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Wrap and format responses
type Response struct {
	StatusCode int         `json:"status_code"`
	Err        bool        `json:"error"`
	Response   interface{} `json:"response"`
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns an error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	w.WriteHeader(statusCode)
	err = json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}
