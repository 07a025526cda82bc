package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/feedkv/feedkv/feed"
	"github.com/feedkv/feedkv/kv/storage"
)

// NewHandler returns the HTTP surface of a feed store. Feed handles are
// cheap and carry no state, so one is opened per request.
func NewHandler(s storage.Storage, hub *feed.Hub, retry feed.RetryPolicy) http.Handler {
	h := &handler{
		storage: s,
		hub:     hub,
		retry:   retry,
		rd:      render.New(render.Options{IndentJSON: true}),
	}

	router := mux.NewRouter()
	router.HandleFunc("/feeds/{feed}/items", h.publish).Methods("POST")
	router.HandleFunc("/feeds/{feed}/items", h.getItems).Methods("GET")
	router.HandleFunc("/feeds/{feed}/items/{id}", h.getItem).Methods("GET")
	router.HandleFunc("/feeds/{feed}/items/{id}", h.edit).Methods("PUT")
	router.HandleFunc("/feeds/{feed}/items/{id}", h.retract).Methods("DELETE")
	router.HandleFunc("/feeds/{feed}/ids", h.getIDs).Methods("GET")
	router.HandleFunc("/feeds/{feed}/events", h.events).Methods("GET")
	return router
}
