package rest

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/dururack/api"
	"github.com/dfryer1193/dururack/archive/application"
	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Api serves archives, posts and images over HTTP.
type Api struct {
	archives *application.ArchiveService
}

func NewApi(router *gin.Engine, archives *application.ArchiveService) *Api {
	a := &Api{archives: archives}

	router.GET("/healthz", a.Health)

	archivesV1 := router.Group("archives")
	{
		archivesV1.GET("", a.ListArchives)
		archivesV1.POST("", a.CreateArchive)
		archivesV1.POST("/import", a.ImportArchives)
		archivesV1.POST("/import-url", a.ImportArchiveURL)
		archivesV1.GET("/:id", a.GetArchive)
		archivesV1.PATCH("/:id", a.UpdateArchive)
		archivesV1.DELETE("/:id", a.DeleteArchive)
		archivesV1.GET("/:id/export", a.ExportArchive)
		archivesV1.GET("/:id/view", a.GetView)
		archivesV1.GET("/:id/tags", a.GetTags)
		archivesV1.GET("/:id/featured", a.GetFeatured)
	}

	postsV1 := archivesV1.Group("/:id/posts")
	{
		postsV1.GET("", a.GetPosts)
		postsV1.POST("", a.CreatePost)
		postsV1.GET("/:postId", a.GetPost)
		postsV1.PUT("/:postId", a.UpdatePost)
		postsV1.DELETE("/:postId", a.DeletePost)
		postsV1.POST("/:postId/restore", a.RestorePost)
	}

	imagesV1 := archivesV1.Group("/:id/images")
	{
		imagesV1.POST("", a.UploadImage)
		imagesV1.GET("/:name", a.GetImage)
		imagesV1.DELETE("/:name", a.DeleteImage)
	}

	return a
}

func (a *Api) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case application.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrReadOnlyArchive):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidArchive):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, api.Error{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: err.Error()})
}
