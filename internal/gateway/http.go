package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abduss/pinstore/internal/auth"
	"github.com/abduss/pinstore/internal/errkind"
	"github.com/abduss/pinstore/internal/logger"
)

// maxBodyBytes bounds request bodies, including raw uploads.
const maxBodyBytes = 64 << 20

// Linker publishes object content behind temporary download URLs and
// withdraws it once the object is deleted.
type Linker interface {
	Link(ctx context.Context, id string, data []byte) (string, time.Time, error)
	Remove(ctx context.Context, id string) error
}

// RegisterRoutes mounts the message endpoints and their REST shortcuts.
// requireAuth guards every state-changing route; links may be nil.
func RegisterRoutes(group *gin.RouterGroup, gw *Gateway, requireAuth gin.HandlerFunc, links Linker) {
	h := &httpHandler{gw: gw, links: links}

	group.POST("/query", h.query)
	group.GET("/bucket", h.getBucket)
	group.GET("/objects", h.listObjects)
	group.GET("/objects/:id", h.getObject)
	group.GET("/objects/:id/data", h.getObjectData)
	group.GET("/objects/:id/pins", h.listObjectPins)

	protected := group.Group("")
	protected.Use(requireAuth)
	protected.POST("/execute", h.execute)
	protected.POST("/objects", h.storeObject)
	protected.PUT("/objects/:id/pin", h.pinObject)
	protected.DELETE("/objects/:id/pin", h.unpinObject)
	protected.DELETE("/objects/:id", h.forgetObject)
	if links != nil {
		protected.GET("/objects/:id/link", h.objectLink)
	}
}

type httpHandler struct {
	gw    *Gateway
	links Linker
}

// writeError maps an error kind onto an HTTP status.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, errkind.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, errkind.ErrLimitExceeded):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, errkind.ErrUnauthorized):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, errkind.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, errkind.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	default:
		logger.With(c).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func decodeJSON(c *gin.Context, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", errkind.ErrInvalidInput, err)
	}
	return nil
}

func queryUint32(c *gin.Context, key string) (*uint32, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an unsigned integer", errkind.ErrInvalidInput, key)
	}
	n := uint32(v)
	return &n, nil
}

func queryString(c *gin.Context, key string) *string {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil
	}
	return &raw
}

func (h *httpHandler) sender(c *gin.Context) (string, bool) {
	sender, ok := auth.RequireSender(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return sender, ok
}

func (h *httpHandler) runExecute(c *gin.Context, msg ExecuteMsg, status int) {
	sender, ok := h.sender(c)
	if !ok {
		return
	}
	resp, err := h.gw.Execute(c.Request.Context(), sender, msg)
	if err != nil {
		writeError(c, err)
		return
	}
	h.unpublish(c, resp)
	c.JSON(status, resp)
}

// unpublish drops the mirrored copy of an object a forget just deleted. The
// state change is already committed, so a failure is only logged.
func (h *httpHandler) unpublish(c *gin.Context, resp ExecuteResponse) {
	if h.links == nil {
		return
	}
	if action, _ := resp.Get("action"); action != ActionForgetObject {
		return
	}
	if deleted, _ := resp.Get("deleted"); deleted != "true" {
		return
	}
	id, _ := resp.Get("id")
	if err := h.links.Remove(c.Request.Context(), id); err != nil {
		logger.With(c).Warn("mirror removal failed", zap.String("object_id", id), zap.Error(err))
	}
}

func (h *httpHandler) runQuery(c *gin.Context, msg QueryMsg) {
	out, err := h.gw.Query(c.Request.Context(), msg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *httpHandler) execute(c *gin.Context) {
	var msg ExecuteMsg
	if err := decodeJSON(c, &msg); err != nil {
		writeError(c, err)
		return
	}
	h.runExecute(c, msg, http.StatusOK)
}

func (h *httpHandler) query(c *gin.Context) {
	var msg QueryMsg
	if err := decodeJSON(c, &msg); err != nil {
		writeError(c, err)
		return
	}
	h.runQuery(c, msg)
}

func (h *httpHandler) getBucket(c *gin.Context) {
	h.runQuery(c, QueryMsg{Bucket: &struct{}{}})
}

func (h *httpHandler) listObjects(c *gin.Context) {
	first, err := queryUint32(c, "first")
	if err != nil {
		writeError(c, err)
		return
	}
	h.runQuery(c, QueryMsg{Objects: &ObjectsQuery{
		Address: queryString(c, "address"),
		First:   first,
		After:   queryString(c, "after"),
	}})
}

func (h *httpHandler) getObject(c *gin.Context) {
	h.runQuery(c, QueryMsg{Object: &ObjectIDMsg{ID: c.Param("id")}})
}

func (h *httpHandler) getObjectData(c *gin.Context) {
	data, err := h.gw.ObjectData(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (h *httpHandler) listObjectPins(c *gin.Context) {
	first, err := queryUint32(c, "first")
	if err != nil {
		writeError(c, err)
		return
	}
	h.runQuery(c, QueryMsg{ObjectPins: &ObjectPinsQuery{
		ID:    c.Param("id"),
		First: first,
		After: queryString(c, "after"),
	}})
}

func (h *httpHandler) storeObject(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)); err != nil {
		writeError(c, fmt.Errorf("%w: read body: %v", errkind.ErrInvalidInput, err))
		return
	}

	pin := false
	if raw := c.Query("pin"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(c, fmt.Errorf("%w: pin must be a boolean", errkind.ErrInvalidInput))
			return
		}
		pin = v
	}

	h.runExecute(c, ExecuteMsg{StoreObject: &StoreObjectMsg{
		Owner:                queryString(c, "owner"),
		Data:                 buf.Bytes(),
		CompressionAlgorithm: queryString(c, "compression"),
		Pin:                  pin,
	}}, http.StatusCreated)
}

func (h *httpHandler) pinObject(c *gin.Context) {
	h.runExecute(c, ExecuteMsg{PinObject: &ObjectIDMsg{ID: c.Param("id")}}, http.StatusOK)
}

func (h *httpHandler) unpinObject(c *gin.Context) {
	h.runExecute(c, ExecuteMsg{UnpinObject: &ObjectIDMsg{ID: c.Param("id")}}, http.StatusOK)
}

func (h *httpHandler) forgetObject(c *gin.Context) {
	h.runExecute(c, ExecuteMsg{ForgetObject: &ObjectIDMsg{ID: c.Param("id")}}, http.StatusOK)
}

func (h *httpHandler) objectLink(c *gin.Context) {
	if _, ok := h.sender(c); !ok {
		return
	}
	id := c.Param("id")
	data, err := h.gw.ObjectData(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	url, expires, err := h.links.Link(c.Request.Context(), id, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"url":     url,
		"expires": expires,
	})
}
