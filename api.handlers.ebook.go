package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Index greets the caller with a plain text message.
//
//	@Summary	Welcome message
//	@Produce	plain
//	@Success	200	{string}	string	"Welcome!"
//	@Router		/ [get]
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("Welcome!")); err != nil {
		api.logger.Error("failed to send index response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(
		StatusResponse{
			RequestID: requestID,
			Status:    "up & running since " + uptime(api.clock, api.stats.started),
			Message:   "Hello. Ebooks api is available. Enjoy :)",
		},
	); err != nil {
		api.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// NotFound answers unknown routes with an empty 404 response.
func (api *APIHandler) NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
}

// GetAllEbooks lists every stored ebook.
//
//	@Summary	List ebooks
//	@Produce	json
//	@Success	200	{object}	EbooksListResponse
//	@Failure	500
//	@Router		/ebooks [get]
func (api *APIHandler) GetAllEbooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	ebooks, err := api.ebookService.GetAll(r.Context())
	if err != nil {
		api.logger.Error("failed to get all ebooks", zap.String("request.id", requestID), zap.Error(err))
		api.writeError(w, r, http.StatusInternalServerError)
		return
	}
	api.logger.Info("success to get all ebooks", zap.String("request.id", requestID), zap.Int("ebooks.total", len(ebooks)))
	if err = WriteResponse(r.Context(), w, http.StatusOK, EbooksListResponse{Data: ebooks}); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetOneEbook fetches a single ebook. The identifier is not sent back.
//
//	@Summary	Fetch an ebook
//	@Produce	json
//	@Param		id	path		string	true	"Ebook ID"
//	@Success	200	{object}	Ebook
//	@Failure	404
//	@Router		/ebooks/{id} [get]
func (api *APIHandler) GetOneEbook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id := ps.ByName("id")
	if !api.idsHandler.IsValid(id, EbookIDPrefix) {
		api.logger.Error("ebook id provided is not valid", zap.String("ebook.id", id), zap.String("request.id", requestID))
		api.writeError(w, r, http.StatusNotFound)
		return
	}

	ebook, err := api.ebookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrEbookNotFound) {
		api.logger.Error("ebook does not exist", zap.String("ebook.id", id), zap.String("request.id", requestID))
		api.writeError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		api.logger.Error("failed to get ebook", zap.String("ebook.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.writeError(w, r, http.StatusInternalServerError)
		return
	}
	api.logger.Info("success to get ebook", zap.String("ebook.id", id), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, ebook.WithoutID()); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// CreateEbook stores a new ebook under a generated identifier.
//
//	@Summary	Create an ebook
//	@Accept		json
//	@Produce	json
//	@Param		ebook	body		Ebook	true	"author, title and format"
//	@Success	201		{object}	Ebook
//	@Failure	400
//	@Router		/ebooks [post]
func (api *APIHandler) CreateEbook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var ebook Ebook
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if err := api.readEbook(r, &ebook); err != nil {
		api.logger.Error("failed to create ebook", zap.String("request.id", requestID), zap.Error(err))
		api.writeError(w, r, http.StatusBadRequest)
		return
	}

	ebook, err := api.ebookService.Add(r.Context(), ebook)
	if err != nil {
		api.logger.Error("failed to create ebook", zap.String("request.id", requestID), zap.Error(err))
		api.writeError(w, r, http.StatusInternalServerError)
		return
	}
	api.metrics.CountOperation("create")
	api.logger.Info("success to create ebook", zap.String("ebook.id", ebook.ID), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusCreated, ebook); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// UpdateEbook replaces every field of an existing ebook. The payload is
// checked before any lookup so an invalid body always gets a 400.
//
//	@Summary	Replace an ebook
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string	true	"Ebook ID"
//	@Param		ebook	body		Ebook	true	"author, title and format"
//	@Success	200		{object}	Ebook
//	@Failure	400
//	@Failure	404
//	@Router		/ebooks/{id} [put]
func (api *APIHandler) UpdateEbook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var ebook Ebook
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id := ps.ByName("id")
	if err := api.readEbook(r, &ebook); err != nil {
		api.logger.Error("failed to update ebook", zap.String("ebook.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.writeError(w, r, http.StatusBadRequest)
		return
	}

	if !api.idsHandler.IsValid(id, EbookIDPrefix) {
		api.logger.Error("ebook id provided is not valid", zap.String("ebook.id", id), zap.String("request.id", requestID))
		api.writeError(w, r, http.StatusNotFound)
		return
	}

	ebook, err := api.ebookService.Update(r.Context(), id, ebook)
	if errors.Is(err, ErrEbookNotFound) {
		api.logger.Error("ebook does not exist", zap.String("ebook.id", id), zap.String("request.id", requestID))
		api.writeError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		api.logger.Error("failed to update ebook", zap.String("ebook.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.writeError(w, r, http.StatusInternalServerError)
		return
	}
	api.metrics.CountOperation("update")
	api.logger.Info("success to update ebook", zap.String("ebook.id", id), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, ebook.WithoutID()); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// DeleteOneEbook removes an ebook and answers with an empty body.
//
//	@Summary	Delete an ebook
//	@Param		id	path	string	true	"Ebook ID"
//	@Success	200
//	@Failure	404
//	@Router		/ebooks/{id} [delete]
func (api *APIHandler) DeleteOneEbook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id := ps.ByName("id")
	if !api.idsHandler.IsValid(id, EbookIDPrefix) {
		api.logger.Error("ebook id provided is not valid", zap.String("ebook.id", id), zap.String("request.id", requestID))
		api.writeError(w, r, http.StatusNotFound)
		return
	}

	_, err := api.ebookService.Delete(r.Context(), id)
	if errors.Is(err, ErrEbookNotFound) {
		api.logger.Error("ebook does not exist", zap.String("ebook.id", id), zap.String("request.id", requestID))
		api.writeError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		api.logger.Error("failed to delete ebook", zap.String("ebook.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.writeError(w, r, http.StatusInternalServerError)
		return
	}
	api.metrics.CountOperation("delete")
	api.logger.Info("success to delete ebook", zap.String("ebook.id", id), zap.String("request.id", requestID))
	w.WriteHeader(http.StatusOK)
}

// readEbook decodes and validates the ebook carried by the request body.
func (api *APIHandler) readEbook(r *http.Request, ebook *Ebook) error {
	if err := DecodeEbookRequestBody(r, ebook); err != nil {
		return err
	}
	return ValidateEbookRequestBody(ebook)
}

func (api *APIHandler) writeError(w http.ResponseWriter, r *http.Request, status int) {
	if err := WriteErrorResponse(r.Context(), w, status); err != nil {
		api.logger.Error("failed to send error response",
			zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)),
			zap.Error(err),
		)
	}
}
