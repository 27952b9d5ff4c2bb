package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inklet/inklet/pkg/logging"
)

// Renderer turns view data into a response. Templating itself is an
// external concern; handlers only name a template and hand over data.
type Renderer interface {
	HTML(c *gin.Context, status int, name string, data gin.H)
}

// HTMLRenderer renders through gin's loaded template set
type HTMLRenderer struct{}

// HTML renders the named template
func (HTMLRenderer) HTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["user"] = CurrentUser(c)
	c.HTML(status, name, data)
}

// errorPages renders the dedicated error templates of the site
type errorPages struct {
	render Renderer
	logger *zap.Logger
}

func newErrorPages(render Renderer) *errorPages {
	return &errorPages{
		render: render,
		logger: logging.WithComponent("web"),
	}
}

func (e *errorPages) notFound(c *gin.Context) {
	e.render.HTML(c, http.StatusNotFound, "core/404.html", gin.H{"path": c.Request.URL.Path})
	c.Abort()
}

func (e *errorPages) serverError(c *gin.Context, err error) {
	e.logger.Error("Request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	e.render.HTML(c, http.StatusInternalServerError, "core/500.html", nil)
	c.Abort()
}
