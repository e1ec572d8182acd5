package rest

import (
	"net/http"

	"github.com/dfryer1193/dururack/api"
	"github.com/dfryer1193/dururack/archive/application"
	"github.com/gin-gonic/gin"
)

func postInput(proto *api.PostProto) application.PostInput {
	return application.PostInput{
		Title:           proto.Title,
		Content:         proto.Content,
		Description:     proto.Description,
		PreviewImageURL: proto.PreviewImageURL,
		Tags:            proto.Tags,
	}
}

func (a *Api) GetPosts(c *gin.Context) {
	posts, err := a.archives.ListPosts(c.Request.Context(), c.Param("id"), queryFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewPosts(posts))
}

// GetPost returns a post; with ?render=html the body is rendered as well.
func (a *Api) GetPost(c *gin.Context) {
	archiveID, postID := c.Param("id"), c.Param("postId")

	if c.Query("render") == "html" {
		post, html, err := a.archives.RenderPost(c.Request.Context(), archiveID, postID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, api.RenderedPost{Post: api.NewPost(*post), HTML: string(html)})
		return
	}

	post, err := a.archives.GetPost(c.Request.Context(), archiveID, postID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewPost(*post))
}

func (a *Api) CreatePost(c *gin.Context) {
	proto := &api.PostProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		badRequest(c, err)
		return
	}

	post, err := a.archives.CreatePost(c.Request.Context(), c.Param("id"), postInput(proto))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api.NewPost(*post))
}

func (a *Api) UpdatePost(c *gin.Context) {
	proto := &api.PostProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		badRequest(c, err)
		return
	}

	post, err := a.archives.UpdatePost(c.Request.Context(), c.Param("id"), c.Param("postId"), postInput(proto))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewPost(*post))
}

func (a *Api) DeletePost(c *gin.Context) {
	if err := a.archives.DeletePost(c.Request.Context(), c.Param("id"), c.Param("postId")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *Api) RestorePost(c *gin.Context) {
	post, err := a.archives.RestorePost(c.Request.Context(), c.Param("id"), c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewPost(*post))
}
