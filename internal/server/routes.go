package server

import (
	"net/http"

	"solarspy/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type stateResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/state", s.StateHandler)
	e.PUT("/start", s.StartHandler)
	e.PUT("/stop", s.StopHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	c.Response().Header().Set("X-Solarspy-Version", versioninfo.Short())
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, requestTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StateHandler(c echo.Context) error {
	return s.command(c, domain.GetStateRequest{})
}

func (s *Server) StartHandler(c echo.Context) error {
	return s.command(c, domain.StartCommand{})
}

func (s *Server) StopHandler(c echo.Context) error {
	return s.command(c, domain.StopCommand{})
}

// command hands msg to the master actor and reports the resulting state.
func (s *Server) command(c echo.Context, msg any) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, msg, requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, stateResponse{Error: err.Error()})
	}
	response, ok := res.(domain.CommandResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, stateResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusConflict, stateResponse{
			State: string(response.State),
			Error: response.GetResponseError().Error(),
		})
	}
	return c.JSON(http.StatusOK, stateResponse{State: string(response.State)})
}
