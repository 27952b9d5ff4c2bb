package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/inklet/inklet/internal/db"
	"github.com/inklet/inklet/internal/models"
)

// Authorizable is a resource with a single owning author
type Authorizable interface {
	OwnerID() int64
}

// CanMutate reports whether the actor may edit or delete the resource.
// Only the owning author may.
func CanMutate(actor *models.User, res Authorizable) bool {
	return actor != nil && actor.ID == res.OwnerID()
}

// denyMutation applies the two-branch denial policy for edit/delete routes:
// an anonymous actor is sent to sign-in with the deep link preserved, an
// authenticated non-owner is silently redirected to the index rather than
// shown a 403.
func denyMutation(c *gin.Context, actor *models.User) {
	if actor == nil {
		redirectToLogin(c)
		return
	}
	c.Redirect(http.StatusFound, "/")
	c.Abort()
}

// redirectToLogin sends the client to the sign-in page, preserving the
// requested path in the next parameter.
func redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

// errorsIsConstraint reports whether a store error should surface as a
// form-level validation failure.
func errorsIsConstraint(err error) bool {
	return errors.Is(err, db.ErrConstraint)
}
