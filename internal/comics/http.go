// Copyright (c) 2026 Tebeo. All rights reserved.

package comics

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tebeoapp/tebeo/internal/platform/middleware"
	requestutil "github.com/tebeoapp/tebeo/internal/platform/request"
	"github.com/tebeoapp/tebeo/internal/platform/respond"
	"github.com/tebeoapp/tebeo/pkg/convert"
	"github.com/tebeoapp/tebeo/pkg/pagination"
)

// Handler implements the collection HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] for the /comics resource.
//
// # Endpoints
//   - GET    /public      : Public most-popular view (no auth).
//   - POST   /            : Add an item by ISBN.
//   - GET    /            : List the caller's collection.
//   - PUT    /{id}/status : Transition pending/read.
//   - PUT    /{id}        : Partial update of descriptive fields.
//   - DELETE /{id}        : Remove an item.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoint
	router.Get("/public", handler.publicTop)

	// Owner-scoped endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/", handler.createComic)
		r.Get("/", handler.listComics)
		r.Get("/{id}", handler.getComic)
		r.Put("/{id}/status", handler.updateStatus)
		r.Put("/{id}", handler.updateComic)
		r.Delete("/{id}", handler.deleteComic)
	})

	return router
}

// # Request & Response Payloads

type createComicRequest struct {
	ISBN string `json:"isbn"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateComicRequest struct {
	Title      *string   `json:"title"`
	Authors    *[]string `json:"authors"`
	Publishers *[]string `json:"publishers"`
	Year       *int      `json:"year"`
	ISBN       *string   `json:"isbn"`
}

// listComicsResponse flattens the pagination metadata next to the items.
type listComicsResponse struct {
	pagination.Meta
	Comics []*Comic `json:"comics"`
}

/*
createComic adds a new item to the caller's collection.

POST /comics

Request:
  - Body: createComicRequest (ISBN, hyphens allowed)

Response:
  - 201: Comic: Stored item with assigned id, status=pending, popularity=0
  - 400: Missing or malformed ISBN
  - 404: ISBN has no usable catalog record
*/
func (handler *Handler) createComic(writer http.ResponseWriter, request *http.Request) {
	ownerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createComicRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	comic, err := handler.service.Create(request.Context(), ownerID, input.ISBN)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, comic)
}

/*
listComics returns a filtered, paginated page of the caller's collection.

GET /comics?title=&page=&limit=

Response:
  - 200: listComicsResponse: {page, limit, total, totalPages, comics}
*/
func (handler *Handler) listComics(writer http.ResponseWriter, request *http.Request) {
	ownerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	paginationParams := pagination.FromRequest(request)
	filter := Filter{
		TitleSubstring: request.URL.Query().Get("title"),
	}

	items, total, err := handler.service.List(request.Context(), ownerID, filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if items == nil {
		items = []*Comic{}
	}

	respond.OK(writer, listComicsResponse{
		Meta:   pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total),
		Comics: items,
	})
}

/*
getComic returns a single owned item.

GET /comics/{id}

Response:
  - 200: Comic
  - 404: Not found or not owned
*/
func (handler *Handler) getComic(writer http.ResponseWriter, request *http.Request) {
	ownerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	comic, err := handler.service.Get(request.Context(), ownerID, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, comic)
}

/*
updateStatus transitions an item between pending and read.

PUT /comics/{id}/status

Request:
  - Body: updateStatusRequest (Status: "read" or "pending")

Response:
  - 200: Confirmation message
  - 400: Invalid status value
  - 404: Not found or not owned
*/
func (handler *Handler) updateStatus(writer http.ResponseWriter, request *http.Request) {
	ownerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateStatusRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	status, err := handler.service.UpdateStatus(request.Context(), ownerID, requestutil.ID(request, "id"), input.Status)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, fmt.Sprintf("Status updated to '%s'", status))
}

/*
updateComic overwrites only the supplied descriptive fields of an item.

PUT /comics/{id}

Request:
  - Body: updateComicRequest (any subset of title, authors, publishers, year, isbn)

Response:
  - 200: Confirmation message
  - 400: Empty payload or invalid field value
  - 404: Not found or not owned
*/
func (handler *Handler) updateComic(writer http.ResponseWriter, request *http.Request) {
	ownerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateComicRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	changes := FieldChanges{
		Title:      input.Title,
		Authors:    input.Authors,
		Publishers: input.Publishers,
		Year:       input.Year,
		ISBN:       input.ISBN,
	}

	if err := handler.service.UpdateFields(request.Context(), ownerID, requestutil.ID(request, "id"), changes); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Comic updated")
}

/*
deleteComic removes an item from the caller's collection.

DELETE /comics/{id}

Response:
  - 200: Confirmation message
  - 404: Not found or not owned
*/
func (handler *Handler) deleteComic(writer http.ResponseWriter, request *http.Request) {
	ownerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), ownerID, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Comic deleted")
}

/*
publicTop returns the most-read items across all users.

GET /comics/public?limit=

Description: Unauthenticated. Items are projected to {id, title, authors,
popularity} — owner identity and reading state are never exposed.

Response:
  - 200: []PublicComic
*/
func (handler *Handler) publicTop(writer http.ResponseWriter, request *http.Request) {
	limit := convert.ToIntD(request.URL.Query().Get("limit"), DefaultPublicTopLimit)
	if limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}

	items, err := handler.service.PublicTop(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if items == nil {
		items = []*PublicComic{}
	}

	respond.OK(writer, items)
}
