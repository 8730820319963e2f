// Package response writes the service's JSON envelope.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundwalk/service-tour/internal/domain/tour"
)

// Body is the envelope of every JSON response.
type Body struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination details.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Paginated writes 200 with one page of items.
func Paginated(c *gin.Context, items any, total int64, page, limit int) {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Body{
		Success: true,
		Data:    items,
		Meta:    &Meta{Total: total, Page: page, Limit: limit, TotalPages: pages},
	})
}

// BadRequest writes 400.
func BadRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, "BAD_REQUEST", msg)
}

// NotFound writes 404.
func NotFound(c *gin.Context, msg string) {
	abort(c, http.StatusNotFound, "NOT_FOUND", msg)
}

// Error maps domain errors onto HTTP statuses. Anything unrecognised is a 500
// whose detail is not echoed to the client.
func Error(c *gin.Context, err error) {
	var (
		validation *tour.ValidationError
		notFound   *tour.NotFoundError
		conflict   *tour.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", validation.Error())
	case errors.As(err, &notFound):
		abort(c, http.StatusNotFound, "NOT_FOUND", notFound.Error())
	case errors.As(err, &conflict):
		abort(c, http.StatusConflict, "CONFLICT", conflict.Error())
	default:
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Body{Error: &ErrorBody{Code: code, Message: msg}})
}
