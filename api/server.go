package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"evcp/internal"
	"evcp/internal/config"

	"github.com/julienschmidt/httprouter"
)

// Server exposes the host control API on the loopback interface. It is
// the operator's side door: simulation inputs, variable inspection and
// a few maintenance commands.
type Server struct {
	conf       *config.Config
	logger     internal.LogHandler
	handler    *Handler
	httpServer *http.Server
}

func NewServer(conf *config.Config, handler *Handler, logger internal.LogHandler) *Server {
	server := &Server{
		conf:    conf,
		logger:  logger,
		handler: handler,
	}
	router := httprouter.New()
	router.GET("/api/v1/status", handler.Status)
	router.GET("/api/v1/log", handler.ReadLog)
	router.GET("/api/v1/variables", handler.DumpVariables)
	router.POST("/api/v1/variables", handler.SetVariables)
	router.POST("/api/v1/availability", handler.ChangeAvailability)
	router.POST("/api/v1/security-event", handler.SecurityEvent)
	router.POST("/api/v1/data-transfer", handler.DataTransfer)
	router.POST("/api/v1/plug-in", handler.PlugIn)
	router.POST("/api/v1/plug-out", handler.PlugOut)
	router.POST("/api/v1/authorize", handler.Authorize)
	router.POST("/api/v1/power", handler.SetPower)
	router.POST("/api/v1/stop", handler.Stop)
	router.POST("/api/v1/restart", handler.Restart)
	server.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", conf.Api.BindIP, conf.Api.Port),
		Handler: router,
	}
	return server
}

func (s *Server) Start() {
	go func() {
		s.logger.Debug(fmt.Sprintf("api listening on %s", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server", err)
		}
	}()
}

func (s *Server) Stop() {
	_ = s.httpServer.Close()
}

func writeJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJson(w, status, map[string]string{"error": message})
}
