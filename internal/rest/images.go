package rest

import (
	"net/http"
	"path/filepath"

	"github.com/dfryer1193/dururack/api"
	"github.com/gin-gonic/gin"
)

// UploadImage stores the multipart "file" field under its file name, or under
// the "name" form value when given.
func (a *Api) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}

	content, err := readFormFile(fh)
	if err != nil {
		badRequest(c, err)
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = filepath.Base(fh.Filename)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}

	img, err := a.archives.SaveImage(c.Request.Context(), c.Param("id"), name, contentType, content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api.NewImage(img))
}

func (a *Api) GetImage(c *gin.Context) {
	img, err := a.archives.GetImage(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Content)
	}

	c.Header("ETag", `"`+img.Hash+`"`)
	c.Data(http.StatusOK, contentType, img.Content)
}

func (a *Api) DeleteImage(c *gin.Context) {
	if err := a.archives.DeleteImage(c.Request.Context(), c.Param("id"), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
