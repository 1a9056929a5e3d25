package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"github.com/jiffoo/mall/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "request_id"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.HeaderRequestID)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Page sends one page of a listing
func Page[T any](h *BaseHandler, c *gin.Context, p shared.Paginated[T]) {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	h.SuccessWithMeta(c, items, p.Total, p.Page, p.PageSize)
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response, deriving the status from the code. The
// top-level message follows the request's language.
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	h.errorWithStatus(c, dto.GetHTTPStatus(code), code, message)
}

func (h *BaseHandler) errorWithStatus(c *gin.Context, status int, code, message string) {
	resp := dto.NewErrorResponse(code, message)
	resp.Message = middleware.Localize(c, code, message)
	c.AbortWithStatusJSON(status, resp)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeUnauthorized, message)
}

// HandleError converts service errors to HTTP responses. Domain errors keep
// their code; anything else is logged and reported as INTERNAL_ERROR.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetDomainHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			h.logError(c, err)
		}
		h.errorWithStatus(c, status, domainErr.Code, domainErr.Message)
		return
	}

	h.logError(c, err)
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

func (h *BaseHandler) logError(c *gin.Context, err error) {
	logger.GetGinLogger(c).Error("Request failed",
		zap.Error(err),
		zap.String("request_id", getRequestID(c)),
		zap.String("path", c.FullPath()),
	)
}

// BindJSON binds the body into req, answering 400 VALIDATION_ERROR on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters into req
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// UserID returns the authenticated caller. A request that reached a user
// route without one is answered 401.
func (h *BaseHandler) UserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.GetJWTUserID(c))
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// TenantID returns the store resolved for the request
func (h *BaseHandler) TenantID(c *gin.Context) (uuid.UUID, bool) {
	id := middleware.GetTenantUUID(c)
	if id == uuid.Nil {
		h.Error(c, dto.ErrCodeTenantRequired, "Tenant identification required")
		return uuid.Nil, false
	}
	return id, true
}

// ParamUUID parses a UUID path parameter
func (h *BaseHandler) ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, dto.ErrCodeInvalidInput, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// listFilter maps the common list query onto a repository filter
func listFilter(req dto.ListRequest) shared.Filter {
	return shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.SortBy,
		OrderDir: req.SortOrder,
		Search:   req.Search,
	}.Normalize()
}
