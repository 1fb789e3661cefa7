package server

import (
	"github.com/labstack/echo/v4"

	"github.com/qrave1/MeetPoint/internal/application/config"
	"github.com/qrave1/MeetPoint/internal/infra/ports/http/handlers"
	"github.com/qrave1/MeetPoint/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	meetingHandler *handlers.MeetingHandler,
	iceHandler *handlers.IceHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	api := e.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		{
			v1.GET("/me", authHandler.GetMe)

			v1.GET("/ice", iceHandler.IceServers)

			v1.GET("/ws", wsHandler.Handle)

			v1.GET("/meetings", meetingHandler.ListMeetingsHandler)
			v1.POST("/meetings", meetingHandler.CreateMeetingHandler)
			v1.GET("/meetings/:roomId", meetingHandler.GetMeetingHandler)
			v1.PUT("/meetings/:roomId", meetingHandler.UpdateMeetingHandler)
			v1.DELETE("/meetings/:roomId", meetingHandler.DeleteMeetingHandler)
			v1.POST("/meetings/:roomId/start", meetingHandler.StartMeetingHandler)
			v1.POST("/meetings/:roomId/end", meetingHandler.EndMeetingHandler)
		}
	}

	e.Static("/", "web")

	return e
}
