// Conversation HTTP handlers.
//
// This file exposes REST endpoints for conversation resources:
//   - GET /conversations                 (admin inbox, paginated, ETag support)
//   - GET /conversations/{id}/messages   (list paginated messages)
//   - PUT /conversations/{id}/read       (mark admin replies as read)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including conditional
// responses).
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/charanaquarium/chat-backend/internal/domain"
	"github.com/charanaquarium/chat-backend/internal/repo"
	"github.com/charanaquarium/chat-backend/internal/services"
)

//
// DTOs
//

// ListConversationsResponse wraps a page of conversation summaries and
// pagination information.
type ListConversationsResponse struct {
	Conversations []repo.ConversationSummary `json:"conversations"`
	Pagination    Pagination                 `json:"pagination"`
}

// ListConversationMessagesResponse contains a page of messages and
// pagination metadata.
type ListConversationMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// MarkReadResponse reports how many messages were flagged as read.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// convDB exposes the underlying GORM handle for best-effort conditional
// responses when the concrete service is in use.
func convDB(svc ConversationService) *gorm.DB {
	if s, okSvc := svc.(*services.ConversationService); okSvc {
		return s.DB
	}
	return nil
}

//
// Handlers
//

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations (admin inbox)
// @Description Returns a page of conversations, most recently active first, with a last-message preview.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "Admin ID"                     example(admin1)
// @Param       X-User-Role    header  string  true  "Must be admin"                example(admin)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"   example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConversationsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     403  {object} handlers.ErrorResponse "Admin role required"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if db := convDB(h.convSvc); db != nil {
		count, maxTS, err := repo.ConversationsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"conversations:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.convSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListConversationMessages godoc
// @ID          listConversationMessages
// @Summary     List messages in a conversation
// @Description Returns a paginated list of messages for the given conversation, oldest first.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-User-ID    header  string  true  "Admin ID"        example(admin1)
// @Param       X-User-Role  header  string  true  "Must be admin"   example(admin)
// @Param       id           path    string  true  "Conversation ID (UUID)" format(uuid)
// @Param       page         query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size    query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConversationMessagesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Admin role required"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/messages [get]
func (h *Handlers) ListConversationMessages(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	ctx := c.Request.Context()
	conversationID := c.Param("id")

	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	// ETag pre-check (best effort).
	if db := convDB(h.convSvc); db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, conversationID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, conversationID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.convSvc.MessagesPage(ctx, conversationID, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrConversationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListConversationMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// MarkConversationRead godoc
// @ID          markConversationRead
// @Summary     Mark admin replies as read
// @Description Flags every admin-authored message in the conversation as read and reports the count.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-User-ID  header  string  true "Caller ID"               example(user123)
// @Param       id         path    string  true "Conversation ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.MarkReadResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/read [put]
func (h *Handlers) MarkConversationRead(c *gin.Context) {
	conversationID := c.Param("id")
	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	n, err := h.convSvc.MarkRead(c.Request.Context(), conversationID)
	if err != nil {
		switch err {
		case services.ErrConversationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Updated: n})
}
