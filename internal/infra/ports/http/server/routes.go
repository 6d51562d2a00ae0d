package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/ArenaChat/internal/application/config"
	"github.com/qrave1/ArenaChat/internal/infra/ports/http/handlers"
	"github.com/qrave1/ArenaChat/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	roomHandler *handlers.RoomHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	{
		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		{
			v1.GET("/ws", wsHandler.Handle)

			// polling fallback transport
			v1.GET("/rooms/:roomId", roomHandler.GetRoom)
			v1.GET("/rooms/:roomId/messages", roomHandler.GetMessages)
			v1.POST("/rooms/:roomId/messages", roomHandler.PostMessage)
		}
	}

	return e
}
