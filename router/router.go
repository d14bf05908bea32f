package router

import (
	"database/sql"
	"net/http"

	"docsearch/config/database"
	docHandler "docsearch/internal/document"
	"docsearch/internal/document/service"
	"docsearch/internal/session"
	"docsearch/middleware"
	"docsearch/socket"

	"github.com/gorilla/mux"
)

type Options struct {
	Dialect database.Dialect
	// Hub, when set, receives committed document changes and serves the
	// /ws/documents change feed. Its Run loop must be started by the caller.
	Hub               *socket.Hub
	CORSAllowedOrigin string
}

func Setup(db *sql.DB, opts Options) http.Handler {
	r := mux.NewRouter().StrictSlash(true)

	var events service.Publisher
	if opts.Hub != nil {
		events = opts.Hub
	}
	docService := service.NewDocumentService(opts.Dialect, events)
	docHandler := docHandler.NewDocumentHandler(docService)
	sessions := session.NewManager(db)

	r.HandleFunc("/", docHandler.Home).Methods(http.MethodGet)

	if opts.Hub != nil {
		hub := opts.Hub
		r.HandleFunc("/ws/documents", func(w http.ResponseWriter, r *http.Request) {
			socket.ServeWs(hub, w, r)
		}).Methods(http.MethodGet)
	}

	// Every route below runs inside a request-scoped database session.
	api := r.NewRoute().Subrouter()
	api.Use(sessions.Middleware)

	api.HandleFunc("/documents/", docHandler.GetDocuments).Methods(http.MethodGet)
	api.HandleFunc("/search/", docHandler.SearchDocuments).Methods(http.MethodGet)
	api.HandleFunc("/upload/", docHandler.UploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}", docHandler.GetDocument).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", docHandler.UpdateDocument).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}", docHandler.DeleteDocument).Methods(http.MethodDelete)

	origin := opts.CORSAllowedOrigin
	if origin == "" {
		origin = "*"
	}
	var h http.Handler = r
	h = middleware.CORSMiddleware(origin)(h)
	h = middleware.Logging(h)
	h = middleware.RequestID(h)
	return middleware.Recover(h)
}
