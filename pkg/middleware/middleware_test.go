package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"cataid-backend/pkg/middleware"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Given a limiter with a burst of two", t, func() {
		r := gin.New()
		r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(0.001, 2), nil))
		r.GET("/export", func(c *gin.Context) { c.Status(http.StatusOK) })

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export", nil))
			codes = append(codes, w.Code)
		}

		Convey("Then the third request is throttled", func() {
			So(codes, ShouldResemble, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests})
		})
	})

	Convey("Given separate keys", t, func() {
		rl := middleware.NewRateLimiter(0.001, 1)
		So(rl.Allow("a"), ShouldBeTrue)
		So(rl.Allow("b"), ShouldBeTrue)
		So(rl.Allow("a"), ShouldBeFalse)
	})
}

func TestRequestDumpMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Given the request dump middleware", t, func() {
		r := gin.New()
		r.Use(middleware.RequestDumpMiddleware(), middleware.MetricsMiddleware())
		var seen string
		r.POST("/echo", func(c *gin.Context) {
			b, _ := c.GetRawData()
			seen = string(b)
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":1}`)))

		Convey("Then the body is still readable by the handler", func() {
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(seen, ShouldEqual, `{"a":1}`)
		})
	})
}
