package rest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dfryer1193/dururack/api"
	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/gin-gonic/gin"
)

const maxUploadSize = 32 << 20

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadSize {
		return nil, fmt.Errorf("%s is larger than %d bytes", fh.Filename, maxUploadSize)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, maxUploadSize))
}

func summarize(archives []*domain.Archive) []api.ArchiveSummary {
	out := make([]api.ArchiveSummary, 0, len(archives))
	for _, a := range archives {
		out = append(out, api.NewArchiveSummary(*a))
	}
	return out
}

// ImportArchives imports the multipart "files" fields. Files before the first
// invalid one stay imported.
func (a *Api) ImportArchives(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err)
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, errors.New("no files uploaded"))
		return
	}

	files := make([][]byte, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			badRequest(c, err)
			return
		}
		files = append(files, data)
	}

	imported, err := a.archives.Import(c.Request.Context(), files...)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summarize(imported))
}

func (a *Api) ImportArchiveURL(c *gin.Context) {
	req := &api.ImportURLRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err)
		return
	}

	archive, err := a.archives.ImportURL(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api.NewArchiveSummary(*archive))
}

func (a *Api) ExportArchive(c *gin.Context) {
	id := c.Param("id")
	data, err := a.archives.Export(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	c.Data(http.StatusOK, "application/json", data)
}
