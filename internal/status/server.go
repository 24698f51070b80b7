// Package status serves the local HTTP surface: a liveness probe, a
// session status snapshot, and the Prometheus scrape endpoint.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hostyorkshire/MCWB/internal/channel"
	"github.com/hostyorkshire/MCWB/internal/observability"
	"github.com/hostyorkshire/MCWB/internal/protocol"
	"github.com/hostyorkshire/MCWB/internal/protocol/session"
)

// Source exposes the radio link state the endpoints report on.
type Source interface {
	SessionState() session.State
	NodeName() string
	DeviceInfo() protocol.DeviceInfo
	Channels() *channel.Map
}

type Config struct {
	Addr         string
	AllowOrigins []string
}

type Server struct {
	http      *http.Server
	startedAt time.Time
}

func New(cfg Config, src Source) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{startedAt: time.Now()}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetrics())
	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.startedAt).String(),
			"service": "mcwb",
		})
	})

	r.GET("/status", func(c *gin.Context) {
		info := src.DeviceInfo()
		c.JSON(http.StatusOK, gin.H{
			"session":  src.SessionState().String(),
			"node":     src.NodeName(),
			"channels": src.Channels().Snapshot(),
			"device": gin.H{
				"firmware":     info.FirmwareVersion,
				"manufacturer": info.Manufacturer,
				"build_date":   info.BuildDate,
				"max_contacts": info.MaxContacts,
			},
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.http = &http.Server{Addr: cfg.Addr, Handler: r}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start listens in the background. Listener failures are fatal at
// startup only; a later server error is logged and the process keeps
// bridging traffic.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("status server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status server stopped")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
