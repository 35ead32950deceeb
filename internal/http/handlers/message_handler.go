// Message HTTP handlers.
//
// This file exposes REST endpoints for the storefront chat:
//   - POST /messages   (send a message; may produce an automated reply)
//   - GET  /messages   (customer's own conversation thread)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (MessageService, ConversationService)
//   - implement idempotency semantics for safe retries
//
// Identity:
// The sender is identified by the X-User-ID, X-User-Role, and X-User-Name
// headers, set by the storefront's session gateway. Role defaults to
// customer.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, key), the handler returns the recorded message and
// sets `Idempotency-Replayed: true` without re-running routing or synthesis.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/charanaquarium/chat-backend/internal/domain"
	"github.com/charanaquarium/chat-backend/internal/http/middleware"
	"github.com/charanaquarium/chat-backend/internal/repo"
	"github.com/charanaquarium/chat-backend/internal/services"
	"github.com/charanaquarium/chat-backend/internal/utils"
)

// Identity headers set by the storefront session gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderUserName = "X-User-Name"
)

//
// Service contracts (context-aware)
//

// MessageSender defines the send pipeline consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessageSender interface {
	// Send stores an incoming message and, when routing allows, an automated
	// reply.
	Send(ctx context.Context, in services.SendInput) (*services.SendResult, error)
}

// ConversationService defines the conversation views consumed by HTTP
// handlers.
type ConversationService interface {
	// ListPage returns a page of conversation summaries and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]repo.ConversationSummary, int64, error)
	// MessagesForCustomer returns the customer's own thread, oldest first.
	MessagesForCustomer(ctx context.Context, customerID string, limit int) ([]domain.Message, error)
	// MessagesPage returns a page of messages within a conversation.
	MessagesPage(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
	// MarkRead flags admin-side messages as read for the customer.
	MarkRead(ctx context.Context, conversationID string) (int64, error)
}

// FeedbackService defines operations to capture customer feedback on
// automated replies.
type FeedbackService interface {
	// Leave submits a feedback value (-1 or 1) for messageID by userID.
	Leave(ctx context.Context, userID, messageID string, value int) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for messages, conversations, and feedback.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	msgSvc  MessageSender
	convSvc ConversationService
	fbSvc   FeedbackService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(msgSvc MessageSender, convSvc ConversationService, fbSvc FeedbackService) *Handlers {
	return &Handlers{msgSvc: msgSvc, convSvc: convSvc, fbSvc: fbSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the X-User-ID header, and finally
// to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader(HeaderUserID)); h != "" {
			return h
		}
	}
	return "demo-user"
}

// userRole returns the sender role from the X-User-Role header, defaulting to
// customer. Role validation proper happens in the service layer.
func userRole(c *gin.Context) string {
	if r := strings.TrimSpace(strings.ToLower(c.GetHeader(HeaderUserRole))); r != "" {
		return r
	}
	return domain.RoleCustomer
}

// userName returns the display name from the X-User-Name header, if any.
func userName(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderUserName))
}

// requireAdmin aborts with 403 unless the caller presents the admin role.
func requireAdmin(c *gin.Context) bool {
	if userRole(c) != domain.RoleAdmin {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "admin role required")
		return false
	}
	return true
}

//
// DTOs
//

// SendMessageRequest is the JSON payload for sending a chat message.
//
// Content is normalized by the handler (line endings and excessive blank
// lines) before being passed to the service layer. The service also enforces
// a maximum rune count, configured in MessageService.
type SendMessageRequest struct {
	// Content is the message body. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Cá betta nuôi chung với cá neon được không?"`
	// ConversationID targets an existing conversation. Required when the
	// sender is an admin; ignored for customers.
	ConversationID string `json:"conversation_id,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// SendMessageResponse is the JSON envelope for a stored message and its
// optional automated reply.
type SendMessageResponse struct {
	// ConversationID identifies the conversation the message landed in.
	ConversationID string `json:"conversation_id"`
	// Message is the stored incoming message.
	Message *domain.Message `json:"message"`
	// Reply is the automated reply, when one was produced.
	Reply *domain.Message `json:"reply,omitempty"`
	// Duplicate is true when the message was absorbed as a rapid re-submit.
	Duplicate bool `json:"duplicate,omitempty"`
}

// ThreadResponse is the JSON envelope for a customer's own message thread.
type ThreadResponse struct {
	Messages []domain.Message `json:"messages"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxBodyRunes inspects the concrete MessageService for a configured
// body-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxBodyRunes(msgSvc MessageSender) int {
	const fallback = 4000
	if ms, ok := msgSvc.(*services.MessageService); ok {
		if ms.MaxBodyRunes > 0 {
			return ms.MaxBodyRunes
		}
	}
	return fallback
}

//
// Handlers
//

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a chat message
// @Description Stores the message and, when routing allows, an automated reply.
// @Description Customers are routed to their own conversation; admins must target one via conversation_id.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Sender ID"                    example(user123)
// @Param       X-User-Role      header  string  false "Sender role (customer|admin)" example(customer)
// @Param       X-User-Name      header  string  false "Sender display name"          example(Lan)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)" example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     200  {object}  handlers.SendMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	content := sanitizeContent(req.Content)
	maxRunes := discoverMaxBodyRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(content) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	}
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey == "" {
		idemKey = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	}
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, "", idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, SendMessageResponse{
						ConversationID: prev.ConversationID,
						Message:        prev,
						Duplicate:      true,
					})
					return
				}
			}
		}
	}

	res, err := h.msgSvc.Send(ctx, services.SendInput{
		UserID:         currentUser,
		Role:           userRole(c),
		Name:           userName(c),
		ConversationID: strings.TrimSpace(req.ConversationID),
		Body:           content,
	})
	if err != nil {
		switch err {
		case services.ErrConversationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		case services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case services.ErrInvalidRole:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be customer or admin")
		case services.ErrMissingUser:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender identity required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && !res.Duplicate {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, "", idemKey, res.Message.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, SendMessageResponse{
		ConversationID: res.Conversation.ID,
		Message:        res.Message,
		Reply:          res.Reply,
		Duplicate:      res.Duplicate,
	})
}

// GetMyMessages godoc
// @ID          getMyMessages
// @Summary     Get the caller's own conversation thread
// @Description Returns the most recent messages of the customer's conversation, oldest first.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Customer ID"      example(user123)
// @Param       limit      query   int     false "Maximum messages" minimum(1) maximum(200) default(50)
//
// @Success     200  {object} handlers.ThreadResponse
// @Header      200  {string} ETag "Weak ETag for current thread"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages [get]
func (h *Handlers) GetMyMessages(c *gin.Context) {
	const (
		defaultLimit = 50
		maxLimit     = 200
	)
	limit := utils.AtoiDefault(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	currentUser := userID(c)

	// ETag pre-check (best effort; only possible once a conversation exists).
	if db := convDB(h.convSvc); db != nil {
		if conv, err := repo.GetConversationByCustomer(c.Request.Context(), db, currentUser); err == nil && conv != nil {
			count, maxTS, err := repo.MessagesStats(c.Request.Context(), db, conv.ID)
			if err == nil {
				var ts int64
				if maxTS != nil {
					ts = maxTS.Unix()
				}
				etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, conv.ID, count, ts)
				c.Header("ETag", etag)
				if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
					c.Status(http.StatusNotModified)
					return
				}
			}
		}
	}

	items, err := h.convSvc.MessagesForCustomer(c.Request.Context(), currentUser, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ThreadResponse{Messages: items})
}
