package rest

import (
	"net/http"

	"github.com/dfryer1193/dururack/api"
	"github.com/dfryer1193/dururack/archive/application"
	"github.com/dfryer1193/dururack/archive/view"
	"github.com/gin-gonic/gin"
)

func (a *Api) ListArchives(c *gin.Context) {
	archives, err := a.archives.ListArchives(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewArchiveSummaries(archives))
}

func (a *Api) CreateArchive(c *gin.Context) {
	proto := &api.ArchiveProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		badRequest(c, err)
		return
	}

	var name, description string
	if proto.Name != nil {
		name = *proto.Name
	}
	if proto.Description != nil {
		description = *proto.Description
	}

	archive, err := a.archives.CreateArchive(c.Request.Context(), name, description)
	if err != nil {
		respondError(c, err)
		return
	}

	if proto.DisplayOptions != nil {
		archive, err = a.archives.UpdateArchive(c.Request.Context(), archive.ID, application.ArchiveUpdate{
			DisplayOptions: proto.DisplayOptions,
		})
		if err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, api.NewArchive(archive))
}

func (a *Api) GetArchive(c *gin.Context) {
	archive, err := a.archives.GetArchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewArchive(archive))
}

func (a *Api) UpdateArchive(c *gin.Context) {
	proto := &api.ArchiveProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		badRequest(c, err)
		return
	}

	archive, err := a.archives.UpdateArchive(c.Request.Context(), c.Param("id"), application.ArchiveUpdate{
		Name:           proto.Name,
		Description:    proto.Description,
		DisplayOptions: proto.DisplayOptions,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewArchive(archive))
}

func (a *Api) DeleteArchive(c *gin.Context) {
	if err := a.archives.DeleteArchive(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func queryFrom(c *gin.Context) view.Query {
	return view.Query{
		Text: c.Query("q"),
		Tag:  c.Query("tag"),
	}
}

func (a *Api) GetView(c *gin.Context) {
	page, err := a.archives.View(c.Request.Context(), c.Param("id"), queryFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := api.NewPage(page)
	resp.Cards = newCards(page)
	c.JSON(http.StatusOK, resp)
}

// newCards shows the image when a post has one and an excerpt of the body otherwise.
func newCards(page view.Page) []api.Card {
	cards := make([]api.Card, 0, len(page.Posts))
	for _, p := range page.Posts {
		card := api.Card{
			ID:              p.ID,
			Title:           p.Title,
			Date:            application.FormatDate(api.FormatTime(p.CreatedAt), application.DisplayDateLayout),
			PreviewImageURL: p.PreviewImageURL,
			Tags:            application.CardTags(page.Options.CardStyle, p.Tags),
		}
		if card.Tags == nil {
			card.Tags = []string{}
		}
		if card.PreviewImageURL == "" {
			card.Excerpt = application.Excerpt(p.Content)
		}
		cards = append(cards, card)
	}
	return cards
}

func (a *Api) GetTags(c *gin.Context) {
	tags, err := a.archives.Tags(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tags)
}

func (a *Api) GetFeatured(c *gin.Context) {
	posts, err := a.archives.Featured(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewPosts(posts))
}
