package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/negroni"

	"github.com/canonical/mlops-libs/host"
	"github.com/canonical/mlops-libs/internal/k8s"
	"github.com/canonical/mlops-libs/relation"
	"github.com/canonical/mlops-libs/svcinfo"
	"github.com/canonical/mlops-libs/types"
	"github.com/canonical/mlops-libs/version"

	log "github.com/sirupsen/logrus"
)

// Host - application served by the server
type Host interface {
	Name() string
	Role() types.Role
	RelationName() string
	Status() types.Status
	ServiceInfo(ctx context.Context) (*types.ServiceInfo, error)
	ProvidedServiceInfo() (types.ServiceInfo, error)
	Publish(ctx context.Context, info types.ServiceInfo) error
}

// RelationLister - source of relations known to the application
type RelationLister interface {
	Values() []*k8s.CachedRelation
}

// Opts - http server options
type Opts struct {
	Port int

	Host      Host
	Relations RelationLister
}

// Server - status, service info & healthcheck server
type Server struct {
	host      Host
	relations RelationLister

	port   int
	server *http.Server
	router *mux.Router
}

// NewServer - create new HTTP server
func NewServer(opts *Opts) *Server {
	return &Server{
		port:      opts.Port,
		host:      opts.Host,
		relations: opts.Relations,
		router:    mux.NewRouter(),
	}
}

// Handler returns the server's handler chain.
func (s *Server) Handler() http.Handler {
	s.registerRoutes(s.router)

	n := negroni.New(negroni.NewRecovery())
	n.Use(negroni.HandlerFunc(corsHeadersMiddleware))
	n.UseHandler(s.router)
	return n
}

// Start - start server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	log.WithFields(log.Fields{
		"port": s.port,
	}).Info("http server starting...")

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop - stop server
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *mux.Router) {
	// health endpoint for k8s to be happy
	mux.HandleFunc("/healthz", s.healthHandler).Methods("GET", "OPTIONS")
	// version handler
	mux.HandleFunc("/version", s.versionHandler).Methods("GET", "OPTIONS")

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/status", s.statusHandler).Methods("GET", "OPTIONS")
	mux.HandleFunc("/v1/relations", s.relationsHandler).Methods("GET", "OPTIONS")

	mux.HandleFunc("/v1/service-info", s.serviceInfoHandler).Methods("GET", "OPTIONS")
	mux.HandleFunc("/v1/service-info", s.publishHandler).Methods("PUT", "OPTIONS")
}

func (s *Server) healthHandler(resp http.ResponseWriter, req *http.Request) {
	resp.WriteHeader(http.StatusOK)
}

func (s *Server) versionHandler(resp http.ResponseWriter, req *http.Request) {
	response(version.GetVersion(), http.StatusOK, nil, resp, req)
}

// errorCode maps relation errors to response codes
func errorCode(err error) int {
	var (
		relMissing  *svcinfo.RelationMissingError
		dataMissing *svcinfo.RelationDataMissingError
		tooMany     *relation.TooManyRelatedAppsError
	)
	switch {
	case errors.As(err, &relMissing):
		return http.StatusNotFound
	case errors.As(err, &dataMissing):
		return http.StatusFailedDependency
	case errors.As(err, &tooMany):
		return http.StatusConflict
	case errors.Is(err, host.ErrNotProvider), errors.Is(err, host.ErrNotRequirer), errors.Is(err, host.ErrIncompleteServiceInfo):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func response(obj interface{}, statusCode int, err error, resp http.ResponseWriter, req *http.Request) {
	if err != nil {
		code := errorCode(err)
		if code == http.StatusInternalServerError {
			log.WithFields(log.Fields{
				"error": err,
				"path":  req.URL.Path,
			}).Error("http: request failed")
		}
		resp.WriteHeader(code)
		resp.Write([]byte(err.Error()))
		return
	}

	if obj == nil {
		resp.WriteHeader(statusCode)
		return
	}

	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(statusCode)

	// Set up the pipe to write data directly into the Reader.
	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(json.NewEncoder(pw).Encode(obj))
	}()

	io.Copy(resp, pr)
}

// corsHeadersMiddleware - cors middleware
func corsHeadersMiddleware(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	rw.Header().Set("Access-Control-Allow-Origin", "*")
	rw.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS, PUT")
	rw.Header().Set("Access-Control-Allow-Headers",
		"Accept, Content-Type, Content-Length, Accept-Encoding")

	if r.Method == "OPTIONS" {
		rw.WriteHeader(200)
		return
	}

	next(rw, r)
}
