package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/service"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
	"github.com/tribehub/tribehub/backend/content-service/pkg/middleware"
)

// ContentHandler exposes the content lifecycle over HTTP.
type ContentHandler struct {
	Service *service.Service
	// Protect runs before every mutating route (auth, operator check, rate limit).
	Protect []gin.HandlerFunc
	// MaxUploadBytes caps a single asset upload; 0 means 20 MiB.
	MaxUploadBytes int64
}

func NewContentHandler(svc *service.Service, protect ...gin.HandlerFunc) *ContentHandler {
	return &ContentHandler{Service: svc, Protect: protect}
}

// Register mounts the routes under rg (normally /api/v1).
func (h *ContentHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/content/:kind", h.list)
	rg.GET("/content/:kind/:id", h.get)

	w := rg.Group("", h.Protect...)
	w.POST("/content/:kind", h.create)
	w.PUT("/content/:kind/:id", h.update)
	w.DELETE("/content/:kind/:id", h.delete)
	w.PUT("/content/:kind/:id/featured", h.setFeatured)
	w.POST("/assets/:kind", h.upload)
}

func kindParam(c *gin.Context) (content.Kind, bool) {
	k, err := content.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown content kind", "kind": c.Param("kind")})
		return "", false
	}
	return k, true
}

func (h *ContentHandler) list(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	f := content.Filter{
		Category: c.Query("category"),
		Bucket:   content.TimeBucket(c.Query("bucket")),
	}
	if v := c.Query("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "featured must be true or false"})
			return
		}
		f.Featured = &b
	}
	items, err := h.Service.List(c.Request.Context(), kind, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *ContentHandler) get(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	it, err := h.Service.Get(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *ContentHandler) create(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var in service.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	it, err := h.Service.Create(c.Request.Context(), kind, in, middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

func (h *ContentHandler) update(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var in service.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	it, err := h.Service.Update(c.Request.Context(), kind, c.Param("id"), in, middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *ContentHandler) delete(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), kind, c.Param("id"), middleware.Actor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ContentHandler) setFeatured(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var req struct {
		Featured *bool `json:"featured"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Featured == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"featured\": true|false}"})
		return
	}
	it, err := h.Service.SetFeatured(c.Request.Context(), kind, c.Param("id"), *req.Featured, middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *ContentHandler) upload(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if fh.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large", "limit": limit})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	ref, err := h.Service.Upload(c.Request.Context(), kind, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		writeError(c, err)
		return
	}
	logger.Infof("asset uploaded by %s: %s", middleware.Actor(c), ref.ID())
	c.JSON(http.StatusCreated, ref)
}

// writeError maps domain errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var (
		nf *content.NotFoundError
		ve *content.ValidationError
		qe *content.QuotaExceededError
		ae *content.AssetOperationError
		pe *content.PersistenceError
	)
	switch {
	case errors.Is(err, content.ErrUnknownKind):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error(), "id": nf.ID})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &qe):
		c.JSON(http.StatusConflict, gin.H{
			"error":  qe.Error(),
			"kind":   qe.Kind,
			"bucket": qe.Bucket,
			"count":  qe.Count,
			"limit":  qe.Limit,
		})
	case errors.As(err, &ae):
		logger.Errorf("asset store: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "object store unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	case errors.As(err, &pe):
		logger.Errorf("persistence: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save content"})
	default:
		logger.Errorf("unhandled: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
