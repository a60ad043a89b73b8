// infrastructure/gin_handlers.go
package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
	"github.com/vitovidale/video-manager-service/usecase"
)

const (
	ajaxHeader   = "X-Requested-With"
	ajaxValue    = "XMLHttpRequest"
	uploadField  = "files[]"
	noAjaxReason = "Cannot POST to this view without AJAX"
)

type VideoHandlers struct {
	UploadVideoUC *usecase.UploadVideoUseCase
	EditVideoUC   *usecase.EditVideoUseCase
	DeleteVideoUC *usecase.DeleteVideoUseCase
	ListVideosUC  *usecase.ListVideosUseCase
}

func NewVideoHandlers(uploadUC *usecase.UploadVideoUseCase, editUC *usecase.EditVideoUseCase, deleteUC *usecase.DeleteVideoUseCase, listUC *usecase.ListVideosUseCase) *VideoHandlers {
	return &VideoHandlers{
		UploadVideoUC: uploadUC,
		EditVideoUC:   editUC,
		DeleteVideoUC: deleteUC,
		ListVideosUC:  listUC,
	}
}

// RegisterRoutes mounts the video endpoints on an authenticated group.
func (h *VideoHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/videos/", h.ListVideosHandler)
	rg.GET("/videos/multiple/add/", h.AddPageHandler)
	rg.POST("/videos/multiple/add/", h.AddVideoHandler)
	rg.POST("/videos/multiple/:video_id/", h.EditVideoHandler)
	rg.POST("/videos/multiple/:video_id/delete/", h.DeleteVideoHandler)
}

func isAjax(c *gin.Context) bool {
	return c.GetHeader(ajaxHeader) == ajaxValue
}

// respondError maps domain and usecase errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrVideoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
	case errors.Is(err, domain.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
	case errors.Is(err, usecase.ErrNoUpload):
		c.String(http.StatusBadRequest, "Must upload a file")
	default:
		logging.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *VideoHandlers) AddPageHandler(c *gin.Context) {
	c.Header("Vary", ajaxHeader)
	page, err := h.UploadVideoUC.PageContext(c.Request.Context(), CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *VideoHandlers) AddVideoHandler(c *gin.Context) {
	c.Header("Vary", ajaxHeader)
	if !isAjax(c) {
		c.String(http.StatusBadRequest, noAjaxReason)
		return
	}

	input := usecase.UploadVideoInput{User: CurrentUser(c)}

	fileHeader, err := c.FormFile(uploadField)
	switch {
	case err == nil:
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
			return
		}
		defer file.Close()
		input.File = &usecase.UploadedFile{
			Filename: fileHeader.Filename,
			Size:     fileHeader.Size,
			Content:  file,
		}
		input.CollectionID = parseCollectionID(c.PostForm("collection"))
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		input.Location = c.PostForm("location")
	default:
		c.String(http.StatusBadRequest, "Invalid upload: %v", err)
		return
	}

	output, err := h.UploadVideoUC.Execute(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	if !output.Success() {
		c.JSON(http.StatusOK, gin.H{"success": false, "error_message": output.ErrorMessage})
		return
	}

	video := output.Video
	form, err := RenderEditForm(video, usecase.NewEditForm(video), output.Collections, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "video_id": video.ID, "form": form})
}

func (h *VideoHandlers) EditVideoHandler(c *gin.Context) {
	video, ok := h.loadVideo(c, h.EditVideoUC.Load)
	if !ok {
		return
	}
	if !isAjax(c) {
		c.String(http.StatusBadRequest, noAjaxReason)
		return
	}

	prefix := usecase.EditFormPrefix(video.ID)
	form := usecase.EditForm{
		Title:        c.PostForm(prefix + "-title"),
		CollectionID: parseCollectionID(c.PostForm(prefix + "-collection")),
		Tags:         usecase.ParseTags(c.PostForm(prefix + "-tags")),
	}

	output, err := h.EditVideoUC.Execute(c.Request.Context(), CurrentUser(c), video, form)
	if err != nil {
		respondError(c, err)
		return
	}
	if output.Success() {
		c.JSON(http.StatusOK, gin.H{"success": true, "video_id": video.ID})
		return
	}

	html, err := RenderEditForm(video, output.Form, output.Collections, output.Errors)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": false, "video_id": video.ID, "form": html})
}

func (h *VideoHandlers) DeleteVideoHandler(c *gin.Context) {
	video, ok := h.loadVideo(c, h.DeleteVideoUC.Load)
	if !ok {
		return
	}
	if !isAjax(c) {
		c.String(http.StatusBadRequest, noAjaxReason)
		return
	}

	if err := h.DeleteVideoUC.Execute(c.Request.Context(), CurrentUser(c), video); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "video_id": video.ID})
}

func (h *VideoHandlers) ListVideosHandler(c *gin.Context) {
	input := usecase.ListVideosInput{
		Query:        c.Query("q"),
		CollectionID: atoiOrZero(c.Query("collection_id")),
		Limit:        atoiOrZero(c.Query("limit")),
		Offset:       atoiOrZero(c.Query("offset")),
	}
	videos, err := h.ListVideosUC.Execute(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos, "count": len(videos)})
}

// loadVideo resolves the :video_id path parameter, writing a 404 when it does not exist.
func (h *VideoHandlers) loadVideo(c *gin.Context, load func(ctx context.Context, id int) (*domain.Video, error)) (*domain.Video, bool) {
	id, err := strconv.Atoi(c.Param("video_id"))
	if err != nil || id <= 0 {
		respondError(c, domain.ErrVideoNotFound)
		return nil, false
	}
	video, err := load(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return video, true
}

// parseCollectionID returns 0 for an empty value and -1 for garbage, which form
// validation then reports as an invalid choice.
func parseCollectionID(raw string) int {
	if raw == "" {
		return 0
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return -1
	}
	return id
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
