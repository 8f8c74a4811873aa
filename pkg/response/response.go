package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the standard JSON body for all responses.
type envelope struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Meta  *pageMeta   `json:"meta,omitempty"`
}

type pageMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Data: data})
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Data: data})
}

// NoContent writes a 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes a 200 with page metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, envelope{Data: data, Meta: &pageMeta{Total: total, Page: page, Limit: limit}})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, envelope{Error: msg})
}

// NotFound writes a 404 with the given message.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, envelope{Error: msg})
}

// Conflict writes a 409 with the given message.
func Conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, envelope{Error: msg})
}

// UnprocessableEntity writes a 422 with the given message.
func UnprocessableEntity(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, envelope{Error: msg})
}

// InternalError writes a 500 without leaking internals to the caller.
func InternalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, envelope{Error: "internal server error"})
}
