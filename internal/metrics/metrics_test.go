package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/JonMunkholm/feerecon/internal/core"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		m := NewManager()

		Convey("When an import finishes", func() {
			m.ImportFinished(core.ImportResult{
				Status:         core.ResultPartial,
				SuccessCount:   3,
				DuplicateCount: 2,
				ErrorCount:     2,
				NotFoundCount:  1,
				Summary:        core.ImportSummary{TotalAmountProcessed: decimal.NewFromInt(1500)},
			}, 250*time.Millisecond)

			Convey("Then rows are counted by outcome", func() {
				So(testutil.ToFloat64(m.rows.WithLabelValues("success")), ShouldEqual, 3)
				So(testutil.ToFloat64(m.rows.WithLabelValues("duplicate")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.rows.WithLabelValues("error")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.rows.WithLabelValues("not_found")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.imports.WithLabelValues("partial", "false")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.amount), ShouldEqual, 1500)
			})
		})

		Convey("When a dry run finishes", func() {
			m.ImportFinished(core.ImportResult{
				Status:       core.ResultSuccess,
				ValidateOnly: true,
				Summary:      core.ImportSummary{TotalAmountProcessed: decimal.NewFromInt(900)},
			}, time.Millisecond)

			Convey("Then no amount is counted as committed", func() {
				So(testutil.ToFloat64(m.amount), ShouldEqual, 0)
			})
		})

		Convey("When jobs start and finish", func() {
			m.JobStarted()
			m.JobStarted()
			m.JobFinished(core.JobCompleted)

			Convey("Then the gauge tracks running jobs", func() {
				So(testutil.ToFloat64(m.activeJobs), ShouldEqual, 1)
				So(testutil.ToFloat64(m.jobs.WithLabelValues("completed")), ShouldEqual, 1)
			})
		})

		Convey("When the handler is scraped", func() {
			m.ObserveHTTP("/api/imports", http.MethodPost, http.StatusAccepted, 10*time.Millisecond)
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the exposition contains the namespaced metrics", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := rec.Body.String()
				So(strings.Contains(body, "feerecon_http_requests_total"), ShouldBeTrue)
				So(strings.Contains(body, "feerecon_jobs_active"), ShouldBeTrue)
			})
		})
	})
}

func TestManagerOptions(t *testing.T) {
	Convey("Given a custom namespace", t, func() {
		m := NewManager(WithNamespace("school"), WithHistogramBuckets([]float64{1, 2}))
		m.JobStarted()

		Convey("Then metric names use it", func() {
			n, err := testutil.GatherAndCount(m.Registry(), "school_jobs_active")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}
