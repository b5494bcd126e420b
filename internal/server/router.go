package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/ngxvisor/internal/metrics"
	"github.com/loykin/ngxvisor/internal/supervisor"
)

// Service is the supervisor surface exposed over HTTP. *supervisor.Supervisor
// satisfies it.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	TestConfig(ctx context.Context) error
	TestConfigFile(ctx context.Context, path string) error
	Version(ctx context.Context) (string, error)
	Status(ctx context.Context) (supervisor.Status, error)
	ServiceInfo(ctx context.Context) (supervisor.ServiceInfo, error)
	Current() (supervisor.ServiceInfo, bool)
	Logs(ctx context.Context, kind string, maxLines int, search, level string) (string, error)
	ClearLog(ctx context.Context, kind string) error
	LogExists(kind string) (bool, error)
	OpenLogFolder(ctx context.Context) error
	FollowLog(ctx context.Context, kind string) (<-chan string, error)
	Subscribe() (<-chan supervisor.Event, func())
}

// DefaultLogLines is returned by /logs when lines is not given.
const DefaultLogLines = 100

// Router provides embeddable HTTP handlers for the supervised server.
// Endpoints, all under basePath:
//
//	GET  /info            query: cached=1 (monitor snapshot when available)
//	POST /start, /stop, /restart
//	POST /test            query: path=<absolute config file> (optional)
//	GET  /version, /status
//	GET  /logs            query: kind, lines, search, level
//	POST /logs/clear      query: kind
//	GET  /logs/exists     query: kind
//	POST /logs/open
//	GET  /logs/follow     query: kind (server-sent events)
//	GET  /events          status changes (server-sent events)
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	svc      Service
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(svc Service, basePath string) *Router {
	return &Router{svc: svc, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), requestLogger())
	group := g.Group(r.basePath)
	group.GET("/info", r.handleInfo)
	group.POST("/start", r.lifecycle(r.svc.Start))
	group.POST("/stop", r.lifecycle(r.svc.Stop))
	group.POST("/restart", r.lifecycle(r.svc.Restart))
	group.POST("/test", r.handleTest)
	group.GET("/version", r.handleVersion)
	group.GET("/status", r.handleStatus)
	group.GET("/logs", r.handleLogs)
	group.POST("/logs/clear", r.handleClearLog)
	group.GET("/logs/exists", r.handleLogExists)
	group.POST("/logs/open", r.handleOpenLogs)
	group.GET("/logs/follow", r.handleFollow)
	group.GET("/events", r.handleEvents)
	return g
}

// NewServer returns an http.Server for addr using this router. The caller
// runs ListenAndServe. No write timeout is set so event streams stay open.
func NewServer(addr, basePath string, svc Service) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(svc, basePath).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// NewMetricsServer serves the prometheus registry at /metrics on addr.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type versionResp struct {
	Version string `json:"version"`
}

type statusResp struct {
	Status supervisor.Status `json:"status"`
}

type logsResp struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type existsResp struct {
	Kind   string `json:"kind"`
	Exists bool   `json:"exists"`
}

func (r *Router) handleInfo(c *gin.Context) {
	if truthy(c.Query("cached")) {
		if info, ok := r.svc.Current(); ok {
			writeJSON(c, http.StatusOK, info)
			return
		}
	}
	info, err := r.svc.ServiceInfo(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, info)
}

func (r *Router) lifecycle(op func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := op(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, okResp{OK: true})
	}
}

func (r *Router) handleTest(c *gin.Context) {
	path := c.Query("path")
	var err error
	switch {
	case path == "":
		err = r.svc.TestConfig(c.Request.Context())
	case !isSafeAbsPath(path):
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid path: must be absolute path without traversal"})
		return
	default:
		// ok: safe path checked
		err = r.svc.TestConfigFile(c.Request.Context(), path)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleVersion(c *gin.Context) {
	v, err := r.svc.Version(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, versionResp{Version: v})
}

func (r *Router) handleStatus(c *gin.Context) {
	st, err := r.svc.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, statusResp{Status: st})
}

func (r *Router) handleLogs(c *gin.Context) {
	kind := c.Query("kind")
	lines := DefaultLogLines
	if s := c.Query("lines"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "lines must be a non-negative integer"})
			return
		}
		lines = n
	}
	out, err := r.svc.Logs(c.Request.Context(), kind, lines, c.Query("search"), c.Query("level"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, logsResp{Kind: kind, Content: out})
}

func (r *Router) handleClearLog(c *gin.Context) {
	if err := r.svc.ClearLog(c.Request.Context(), c.Query("kind")); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleLogExists(c *gin.Context) {
	kind := c.Query("kind")
	ok, err := r.svc.LogExists(kind)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, existsResp{Kind: kind, Exists: ok})
}

func (r *Router) handleOpenLogs(c *gin.Context) {
	if err := r.svc.OpenLogFolder(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

// statusFor maps an operation error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrInvalidLogKind):
		return http.StatusBadRequest
	case errors.Is(err, supervisor.ErrBinaryMissing):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	writeJSON(c, statusFor(err), errorResp{Error: err.Error()})
}

func truthy(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
