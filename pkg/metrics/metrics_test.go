package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithNamespace("test"), WithRegistry(reg))

		Convey("Then its metrics are registered there", func() {
			m.exports.WithLabelValues("pdf", "ok").Inc()
			So(testutil.ToFloat64(m.exports.WithLabelValues("pdf", "ok")), ShouldEqual, 1)
			n, err := testutil.GatherAndCount(reg, "test_export_documents_total")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		So(func() {
			RecordScoring(0.4)
			RecordRecommendationTier("high")
			RecordTransition("submit", "Submitted")
			RecordTransitionDenied("approve", "unauthorized")
			RecordExport("pdf", 20000, 12, nil)
			RecordExport("xlsx", 0, 0, errors.New("boom"))
			RecordHTTPRequest("/assessments/:id", "GET", "200", 0.01)
		}, ShouldNotPanic)

		So(testutil.ToFloat64(globalManager.exports.WithLabelValues("xlsx", "error")), ShouldBeGreaterThanOrEqualTo, 1)

		Convey("Then the handler serves them", func() {
			w := httptest.NewRecorder()
			Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "cataid_scoring_runs_total")
		})
	})
}
