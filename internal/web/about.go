package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/inklet/inklet/internal/db"
)

// AboutHandler serves the static-ish developer pages
type AboutHandler struct {
	about  *db.AboutRepository
	render Renderer
	errs   *errorPages
}

// NewAboutHandler creates a new about handler
func NewAboutHandler(repo *db.Repository, render Renderer, errs *errorPages) *AboutHandler {
	return &AboutHandler{
		about:  db.NewAboutRepository(repo),
		render: render,
		errs:   errs,
	}
}

// Author handles GET /about/author/:id/
func (h *AboutHandler) Author(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.errs.notFound(c)
		return
	}

	about, err := h.about.GetByID(c.Request.Context(), id)
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	if about == nil {
		h.errs.notFound(c)
		return
	}
	h.render.HTML(c, http.StatusOK, "about/author.html", gin.H{
		"about":    about,
		"contacts": about.Contacts,
	})
}

// Tech handles GET /about/tech/
func (h *AboutHandler) Tech(c *gin.Context) {
	tech, err := h.about.ListTech(c.Request.Context())
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	h.render.HTML(c, http.StatusOK, "about/tech.html", gin.H{
		"tech": tech,
	})
}
