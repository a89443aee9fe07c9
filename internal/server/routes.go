package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRoutes builds the router binding each WebSocket route to its
// consumer and mounting the REST API.
func SetupRoutes(ws *Handlers, api *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", Health)
	r.Get("/stats", api.Stats)

	// WebSocket consumer routes.
	r.Get("/chat/{room_name}/", ws.Chat)
	r.Get("/notifications/", ws.Notifications)
	r.Get("/counter/", ws.Counter)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms/", api.ListRooms)
		r.Post("/rooms/create/", api.CreateRoom)
		r.Get("/history/{room_name}/", api.History)
		r.Delete("/history/{room_name}/", api.DeleteHistory)
		r.Post("/notifications/send/", api.SendNotification)
		r.Get("/ws-info/{room_name}/", api.WebSocketInfo)
	})

	return r
}
