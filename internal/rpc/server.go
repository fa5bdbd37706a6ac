package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
	"github.com/seatlock/ticketing-go/internal/metrics"
)

// HandlerFunc handles one command. The returned value is placed in the
// response envelope's result; a returned error becomes the envelope's
// kind-tagged error body.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Server is the command side of the rpc package: one POST route per
// registered command, plus /healthz and /metrics for operators.
type Server struct {
	echo     *echo.Echo
	handlers map[string]HandlerFunc
	log      *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		handlers: make(map[string]HandlerFunc),
		log:      log,
	}

	e.POST("/rpc/:command", s.dispatch)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return s
}

func (s *Server) Handle(command string, h HandlerFunc) {
	s.handlers[command] = h
}

func (s *Server) Start(addr string) error {
	s.log.Info("rpc server listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) dispatch(c echo.Context) error {
	command := c.Param("command")
	handler, ok := s.handlers[command]
	if !ok {
		metrics.RPCRequests.WithLabelValues(command, "unknown_command").Inc()
		return c.JSON(http.StatusNotFound, responseEnvelope{
			OK:    false,
			Error: &errorBody{Kind: string(domain.KindNotFound), Message: "unknown command " + command},
		})
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		metrics.RPCRequests.WithLabelValues(command, string(domain.KindValidation)).Inc()
		return c.JSON(http.StatusBadRequest, responseEnvelope{
			OK:    false,
			Error: &errorBody{Kind: string(domain.KindValidation), Message: "unreadable request body"},
		})
	}

	result, err := handler(c.Request().Context(), payload)
	if err != nil {
		kind := domain.KindOf(err)
		metrics.RPCRequests.WithLabelValues(command, string(kind)).Inc()
		if kind == domain.KindFatal {
			s.log.Error("command failed",
				zap.String("command", command), zap.Error(err))
		}
		return c.JSON(statusFor(kind), responseEnvelope{
			OK:    false,
			Error: &errorBody{Kind: string(kind), Message: err.Error()},
		})
	}

	metrics.RPCRequests.WithLabelValues(command, "ok").Inc()

	var raw json.RawMessage
	if result != nil {
		raw, err = json.Marshal(result)
		if err != nil {
			s.log.Error("command result marshal failed",
				zap.String("command", command), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, responseEnvelope{
				OK:    false,
				Error: &errorBody{Kind: string(domain.KindFatal), Message: "result marshalling failed"},
			})
		}
	}
	return c.JSON(http.StatusOK, responseEnvelope{OK: true, Result: raw})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
