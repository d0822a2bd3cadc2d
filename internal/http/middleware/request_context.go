package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/platform/ctxutil"
)

const (
	headerChildID   = "X-Child-ID"
	headerRequestID = "X-Request-Id"
)

// AttachRequestContext resolves the acting child and a request id into the
// request context. The caregiver app authenticates upstream; this service
// trusts the forwarded child identity.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}

		rd := &ctxutil.RequestData{RequestID: reqID}
		if raw := strings.TrimSpace(c.GetHeader(headerChildID)); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				rd.ChildID = id
			}
		}

		ctx := ctxutil.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}
