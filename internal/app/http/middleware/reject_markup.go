package middleware

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"replyify-site/internal/infra/logging"
)

const msgInvalidBody = "Invalid request body"

var strictPolicy = bluemonday.StrictPolicy()

// RejectMarkup answers 400 when a JSON object body carries HTML markup in
// any string value. The body reaches the handler byte-for-byte or not at all.
func RejectMarkup() gin.HandlerFunc {
	return func(c *gin.Context) {
		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
			return
		}

		var body map[string]interface{}
		if err := json.Unmarshal(buf, &body); err != nil || body == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
			return
		}

		if field, ok := findMarkup(body); ok {
			logging.FromContext(c).Warn("rejected markup in request body",
				zap.String("field", field), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(buf))
		c.Next()
	}
}

// findMarkup walks objects and arrays and reports the first key whose
// string value the strict policy would change.
func findMarkup(v interface{}) (string, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, inner := range t {
			if s, ok := inner.(string); ok {
				if hasMarkup(s) {
					return k, true
				}
				continue
			}
			if field, ok := findMarkup(inner); ok {
				return field, true
			}
		}
	case []interface{}:
		for _, inner := range t {
			if s, ok := inner.(string); ok && hasMarkup(s) {
				return "[]", true
			}
			if field, ok := findMarkup(inner); ok {
				return field, true
			}
		}
	}
	return "", false
}

// hasMarkup ignores the policy's entity escaping: "o'brien" and "a&b" are
// plain text, "<b>pro</b>" is not.
func hasMarkup(s string) bool {
	return html.UnescapeString(strictPolicy.Sanitize(s)) != s
}
