package preview

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/pageloom/server/internal/errors"
	"codeberg.org/pageloom/server/internal/preview"
	"codeberg.org/pageloom/server/internal/session"
)

// @Summary Serve a session preview page
// @Description Renders the session's current document through the configured renderer
// @Tags preview
// @Produce html
// @Param id path string true "session id"
// @Success 200 {string} string
// @Failure 404 {object} errors.ErrorResponse
// @Router /preview/{id} [get]
func PageHandler(mgr *session.Manager, renderer preview.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		s, exists := mgr.GetSession(id)
		if !exists {
			errors.SessionNotFound(c)
			return
		}

		html, _, err := renderer.Render(s.DocumentText(), preview.PageConfig{
			Title: "pageloom preview",
			Theme: c.Query("theme"),
		})
		if err != nil {
			errors.InternalError(c, "failed to render preview", err)
			return
		}

		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	}
}

// @Summary Serve a session preview stylesheet
// @Tags preview
// @Produce plain
// @Param id path string true "session id"
// @Success 200 {string} string
// @Router /preview/{id}/style.css [get]
func StyleHandler(mgr *session.Manager, renderer preview.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		s, exists := mgr.GetSession(id)
		if !exists {
			errors.SessionNotFound(c)
			return
		}

		_, css, err := renderer.Render(s.DocumentText(), preview.PageConfig{
			Theme: c.Query("theme"),
		})
		if err != nil {
			errors.InternalError(c, "failed to render stylesheet", err)
			return
		}

		c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(css))
	}
}
