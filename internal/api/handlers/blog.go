package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokemon-collector/backend/internal/api/middleware"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/services"
)

type BlogHandler struct {
	blog   *services.BlogService
	images *services.ImageService
}

func NewBlogHandler(blog *services.BlogService, images *services.ImageService) *BlogHandler {
	return &BlogHandler{blog: blog, images: images}
}

func (h *BlogHandler) list(c *gin.Context, publishedOnly bool) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	posts, err := h.blog.ListPosts(c.Request.Context(), services.ListPostsOptions{
		PublishedOnly: publishedOnly,
		FeaturedOnly:  c.Query("featured") == "true",
		Limit:         limit,
		Ascending:     c.Query("order") == "asc",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if posts == nil {
		posts = []models.BlogPost{}
	}
	c.JSON(http.StatusOK, posts)
}

// ListPublished lists published posts only.
func (h *BlogHandler) ListPublished(c *gin.Context) {
	h.list(c, true)
}

// ListAll lists drafts too.
func (h *BlogHandler) ListAll(c *gin.Context) {
	h.list(c, c.Query("published") == "true")
}

// GetPublished hides drafts behind a 404.
func (h *BlogHandler) GetPublished(c *gin.Context) {
	post, err := h.blog.GetPost(c.Request.Context(), c.Param("idOrSlug"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !post.Published {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *BlogHandler) Get(c *gin.Context) {
	post, err := h.blog.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// RecordView counts a view of a published post.
func (h *BlogHandler) RecordView(c *gin.Context) {
	post, err := h.blog.GetPost(c.Request.Context(), c.Param("idOrSlug"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !post.Published {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if err := h.blog.IncrementViews(c.Request.Context(), post.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BlogHandler) Create(c *gin.Context) {
	var post models.BlogPost
	if err := c.ShouldBindJSON(&post); err != nil {
		badRequest(c, err.Error())
		return
	}
	var author models.BlogAuthor
	if id := middleware.CurrentIdentity(c); id != nil {
		author = models.BlogAuthor{UID: id.UserID, DisplayName: id.Name, Email: id.Email}
	}
	created, err := h.blog.CreatePost(c.Request.Context(), post, author)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *BlogHandler) Update(c *gin.Context) {
	var update models.BlogPostUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err.Error())
		return
	}
	post, err := h.blog.UpdatePost(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *BlogHandler) Delete(c *gin.Context) {
	if err := h.blog.DeletePost(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// UploadImage stores a hero image from the multipart "file" field.
func (h *BlogHandler) UploadImage(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file provided")
		return
	}
	f, err := header.Open()
	if err != nil {
		badRequest(c, "Failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		log.Printf("Blog: failed to read upload %s: %v", header.Filename, err)
		badRequest(c, "Failed to read file")
		return
	}

	folder := c.PostForm("folder")
	if folder == "" {
		folder = services.BlogHeroImageFolder
	}
	url, err := h.images.Upload(c.Request.Context(), folder, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
