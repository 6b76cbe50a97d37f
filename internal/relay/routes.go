package relay

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the relay endpoints on the given router.
func RegisterRoutes(r chi.Router, ingress *Ingress, interactions *Interactions, events *EventsHandler) {
	r.Post("/receive-messages", ingress.HandleReceive)
	r.Post("/slack-interaction", interactions.HandleInteraction)
	r.Post("/slack/events", events.HandleEvent)
}
