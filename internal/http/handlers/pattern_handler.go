// Pattern HTTP handlers.
//
// This file exposes the admin CRUD surface for canned-response patterns:
//   - POST   /patterns        (create)
//   - GET    /patterns        (list, paginated, ETag support)
//   - GET    /patterns/{id}   (fetch one)
//   - PUT    /patterns/{id}   (update)
//   - DELETE /patterns/{id}   (delete, cascades triggers)
//
// Handlers are transport-thin: they validate input, call the pattern service,
// and translate results into HTTP responses.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/repo"
	"github.com/tbourn/go-support-backend/internal/services"
)

//
// DTOs
//

// PatternRequest is the JSON payload for creating or updating a pattern.
type PatternRequest struct {
	// Response is the canned reply text.
	Response string `json:"response" binding:"required,min=1" example:"Our refund policy is 30 days, no questions asked."`
	// Priority breaks ties between equally scored patterns; higher wins.
	Priority int `json:"priority" example:"5"`
	// Active controls whether the matcher considers this pattern.
	Active bool `json:"active" example:"true"`
	// Triggers are the plain-text phrases that invoke this pattern. Required
	// on create; on update, omitting the field keeps the existing set.
	Triggers []string `json:"triggers" example:"refund policy,money back"`
}

// ListPatternsResponse wraps a page of patterns and pagination information.
type ListPatternsResponse struct {
	Patterns   []domain.Pattern `json:"patterns"`
	Pagination Pagination       `json:"pagination"`
}

//
// Handlers
//

// CreatePattern godoc
// @ID          createPattern
// @Summary     Create a response pattern
// @Description Creates a canned response with its trigger phrases.
// @Tags        Patterns
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.PatternRequest  true  "Pattern payload"
//
// @Success     201  {object} domain.Pattern
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /patterns [post]
func (h *Handlers) CreatePattern(c *gin.Context) {
	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "response and triggers required")
		return
	}

	p, err := h.patternSvc.Create(c.Request.Context(), req.Response, req.Priority, req.Active, req.Triggers)
	if err != nil {
		switch err {
		case services.ErrInvalidPattern:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListPatterns godoc
// @ID          listPatterns
// @Summary     List response patterns (paginated)
// @Description Returns a page of patterns ordered by priority. Supports weak
// @Description ETag via If-None-Match and may return 304.
// @Tags        Patterns
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPatternsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /patterns [get]
func (h *Handlers) ListPatterns(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.patternSvc.(*services.PatternService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.PatternsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"patterns:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.patternSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListPatternsResponse{
		Patterns: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetPattern godoc
// @ID          getPattern
// @Summary     Fetch one response pattern
// @Tags        Patterns
// @Produce     json
//
// @Param       id  path  string  true  "Pattern ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Pattern
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Pattern not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /patterns/{id} [get]
func (h *Handlers) GetPattern(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pattern id must be a UUID")
		return
	}

	p, err := h.patternSvc.Get(c.Request.Context(), id)
	if err != nil {
		switch err {
		case services.ErrPatternNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "pattern not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdatePattern godoc
// @ID          updatePattern
// @Summary     Update a response pattern
// @Description Updates the response, priority, and active flag. Including the
// @Description triggers field replaces the trigger set; omitting it keeps the
// @Description existing phrases.
// @Tags        Patterns
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                   true  "Pattern ID (UUID)"  format(uuid)
// @Param       body  body  handlers.PatternRequest  true  "Pattern payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Pattern not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /patterns/{id} [put]
func (h *Handlers) UpdatePattern(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pattern id must be a UUID")
		return
	}

	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "response required")
		return
	}

	if err := h.patternSvc.Update(c.Request.Context(), id, req.Response, req.Priority, req.Active, req.Triggers); err != nil {
		switch err {
		case services.ErrPatternNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "pattern not found")
		case services.ErrInvalidPattern:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// DeletePattern godoc
// @ID          deletePattern
// @Summary     Delete a response pattern
// @Description Removes the pattern together with all of its trigger phrases.
// @Tags        Patterns
// @Produce     json
//
// @Param       id  path  string  true  "Pattern ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Pattern not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /patterns/{id} [delete]
func (h *Handlers) DeletePattern(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pattern id must be a UUID")
		return
	}

	if err := h.patternSvc.Delete(c.Request.Context(), id); err != nil {
		switch err {
		case services.ErrPatternNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "pattern not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
