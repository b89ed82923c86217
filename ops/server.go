// Package ops serves a localhost-only diagnostics endpoint: what the
// dispatcher is running and what today's card looks like in the database.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/amwatch/db"
	"github.com/padraicbc/amwatch/dispatch"
)

type Server struct {
	echo       *echo.Echo
	db         *bun.DB
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

func New(database *bun.DB, dispatcher *dispatch.Dispatcher, logger *zap.Logger) *Server {
	s := &Server{
		db:         database,
		dispatcher: dispatcher,
		logger:     logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())

	e.GET("/healthz", s.Healthz)
	e.GET("/status", s.Status)
	e.GET("/meets", s.Meets)

	s.echo = e
	return s
}

// Start serves on addr until the context ends. addr should be loopback; the
// endpoint has no auth.
func (s *Server) Start(ctx context.Context, addr string) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutdownCtx)
	}()
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		s.logger.Error("ops server stopped", zap.Error(err))
	}
}

func (s *Server) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports the dispatcher's live task set.
func (s *Server) Status(c echo.Context) error {
	tasks := s.dispatcher.RunningTasks()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"runningTasks": tasks,
		"taskCount":    len(tasks),
	})
}

// Meets lists today's meets with race counts.
func (s *Server) Meets(c echo.Context) error {
	ctx := c.Request().Context()
	meets, err := db.TodaysMeets(ctx, s.db, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	type meetView struct {
		MeetID    int    `json:"meetID"`
		Track     string `json:"track"`
		LocalDate string `json:"localDate"`
		Races     int    `json:"races"`
	}
	out := make([]meetView, 0, len(meets))
	for _, meet := range meets {
		view := meetView{
			MeetID:    meet.MeetID,
			LocalDate: meet.LocalDate,
			Races:     len(meet.Races),
		}
		if meet.Track != nil {
			view.Track = meet.Track.Name
		}
		out = append(out, view)
	}
	return c.JSON(http.StatusOK, out)
}
