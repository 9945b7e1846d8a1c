package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"cataid-backend/utilities"
)

// maxDumpBody caps how much of a body is logged; export requests may carry
// base64 chart images.
const maxDumpBody = 4096

func RequestDumpMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		body := bodyBytes
		if len(body) > maxDumpBody {
			body = body[:maxDumpBody]
		}
		headers := c.Request.Header.Clone()
		if headers.Get("Authorization") != "" {
			headers.Set("Authorization", "[redacted]")
		}

		utilities.Debug(
			"[Request]\n"+
				"\tMethod: %s\n"+
				"\tURL: %s\n"+
				"\tHeaders: %v\n"+
				"\tParams: %v\n"+
				"\tBody: %s",
			c.Request.Method,
			c.Request.URL.String(),
			headers,
			c.Params,
			string(body),
		)

		c.Next()
	}
}
