// Package adminhttp is an optional, read-only HTTP introspection server for
// a running rustxi session: current history, the call graph, and recent
// diagnostic log lines. It is gated entirely behind RUSTXI_ADMIN_ADDR and
// never influences the REPL itself - every handler only reads Visor state.
package adminhttp

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rustxi-go/rustxi/internal/visor"
)

// sessionSource is the subset of *visor.Visor the admin server reads.
// *visor.Visor satisfies this directly; kept as an interface so handler
// tests can stub it.
type sessionSource interface {
	HistorySnapshot() []visor.Entry
	CommittedSnapshot() []string
	Fns() []string
	FnsAffectedBy(fn string) []string
	DiagLog(n int) []string
}

// Server is the admin HTTP introspection server.
type Server struct {
	log    *zap.Logger
	engine *gin.Engine
	sg     singleflight.Group
	src    sessionSource
}

// New builds a Server bound to src. Call Run to start serving.
func New(log *zap.Logger, src sessionSource) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{log: log.Named("admin"), src: src}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(zapMiddleware(s.log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost"},
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	store := memstore.NewStore([]byte("rustxi-admin-session"))
	r.Use(sessions.Sessions("rustxi_admin", store))

	r.GET("/healthz", s.handleHealthz)
	r.GET("/history", s.handleHistory)
	r.GET("/callgraph", s.handleCallgraph)
	r.GET("/logs", s.handleLogs)

	s.engine = r
	return s
}

// Run blocks serving on addr. Intended to be started via `go srv.Run(addr)`.
func (s *Server) Run(addr string) {
	s.log.Info("admin http server starting", zap.String("addr", addr))
	if err := s.engine.Run(addr); err != nil && err != http.ErrServerClosed {
		s.log.Error("admin http server exited", zap.Error(err))
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleHistory(c *gin.Context) {
	type entryView struct {
		Code      string `json:"code"`
		Committed bool   `json:"committed"`
	}
	all := s.src.HistorySnapshot()
	out := make([]entryView, len(all))
	for i, e := range all {
		out[i] = entryView{Code: e.Code, Committed: e.Verdict == visor.Committed}
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

// handleCallgraph coalesces concurrent callers into a single snapshot read.
// Grounded in the teacher's singleflight-backed summary pattern: the call
// graph is small and cheap to read here, but the coalescing keeps a burst
// of browser tabs polling this endpoint from each taking their own lock
// round trip through the graph.
func (s *Server) handleCallgraph(c *gin.Context) {
	v, err, _ := s.sg.Do("callgraph", func() (any, error) {
		fns := s.src.Fns()
		type fnView struct {
			Name     string   `json:"name"`
			Affected []string `json:"affected_by_change"`
		}
		out := make([]fnView, len(fns))
		for i, fn := range fns {
			out[i] = fnView{Name: fn, Affected: s.src.FnsAffectedBy(fn)}
		}
		return out, nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"functions": v})
}

func (s *Server) handleLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"logs": s.src.DiagLog(100)})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func zapMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("admin request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Any("request_id", c.MustGet("request_id")),
		)
	}
}
