package utilities_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"cataid-backend/internal/workflow"
	"cataid-backend/utilities"
)

func TestTokens(t *testing.T) {
	Convey("Given a lead actor", t, func() {
		utilities.ConfigureSecrets("test-access", "test-refresh")
		lead := workflow.Actor{ID: 3, Name: "Lena", Role: workflow.RoleLead}

		access, refresh, err := utilities.GenerateTokens(lead)
		So(err, ShouldBeNil)

		Convey("Then the access token carries the role", func() {
			claims, err := utilities.ValidateToken(access, false)
			So(err, ShouldBeNil)
			So(claims.Actor(), ShouldResemble, lead)
		})

		Convey("Then tokens are not interchangeable", func() {
			_, err := utilities.ValidateToken(access, true)
			So(err, ShouldEqual, utilities.ErrInvalidToken)
		})

		Convey("Then a refresh token yields new tokens", func() {
			newAccess, _, err := utilities.RefreshTokens(refresh)
			So(err, ShouldBeNil)
			claims, err := utilities.ValidateToken(newAccess, false)
			So(err, ShouldBeNil)
			So(claims.StaffID, ShouldEqual, 3)
		})

		Convey("Then garbage is rejected", func() {
			_, err := utilities.ValidateToken("not.a.token", false)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	utilities.ConfigureSecrets("test-access", "test-refresh")

	r := gin.New()
	r.Use(utilities.AuthMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		actor, ok := utilities.ActorFromContext(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": actor.Role})
	})

	Convey("Given the auth middleware", t, func() {
		Convey("Then requests without a token are rejected", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Then a valid bearer token sets the actor", func() {
			access, _, err := utilities.GenerateTokens(workflow.Actor{ID: 9, Name: "Asha", Role: workflow.RoleAssessor})
			So(err, ShouldBeNil)

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer "+access)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"assessor"`)
		})
	})
}

func TestEventBus(t *testing.T) {
	Convey("Given subscribers on a bus", t, func() {
		bus := utilities.NewEventBus()
		var calls int32
		bus.Subscribe(utilities.EventAssessmentSubmitted, func(interface{}) { atomic.AddInt32(&calls, 1) })
		bus.Subscribe(utilities.EventAssessmentSubmitted, func(interface{}) { atomic.AddInt32(&calls, 1) })

		bus.Publish(utilities.EventAssessmentSubmitted, 1)
		bus.Publish(utilities.EventAssessmentReviewed, 1)
		bus.Wait()

		So(atomic.LoadInt32(&calls), ShouldEqual, 2)
	})

	Convey("Given a handler that publishes a follow-up event", t, func() {
		bus := utilities.NewEventBus()
		var reviewed int32
		bus.Subscribe(utilities.EventAssessmentSubmitted, func(data interface{}) {
			bus.Publish(utilities.EventAssessmentReviewed, data)
		})
		bus.Subscribe(utilities.EventAssessmentReviewed, func(interface{}) { atomic.AddInt32(&reviewed, 1) })

		Convey("Then Wait also covers events published while waiting", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					bus.Publish(utilities.EventAssessmentSubmitted, 1)
				}()
			}
			wg.Wait()
			bus.Wait()
			So(atomic.LoadInt32(&reviewed), ShouldEqual, 20)
		})
	})
}
