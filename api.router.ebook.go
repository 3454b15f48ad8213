package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupEbookRoutes injects ebook related the api endpoints.
func (api *APIHandler) SetupEbookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	router.GET("/ebooks", m.public(api.GetAllEbooks))
	router.POST("/ebooks", m.public(api.CreateEbook))
	router.GET("/ebooks/:id", m.public(api.GetOneEbook))
	router.PUT("/ebooks/:id", m.public(api.UpdateEbook))
	router.DELETE("/ebooks/:id", m.public(api.DeleteOneEbook))
	return router
}
