package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Counter != nil:
		return out.GetCounter().GetValue()
	case out.Gauge != nil:
		return out.GetGauge().GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestMetricsMiddlewareIncrementsCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitMetrics()

	r := gin.New()
	r.Use(Middleware())
	r.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := value(t, httpRequests.WithLabelValues(http.MethodGet, "/test", "200"))

	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	after := value(t, httpRequests.WithLabelValues(http.MethodGet, "/test", "200"))
	if after != before+1 {
		t.Fatalf("expected request counter to grow by one, got %v -> %v", before, after)
	}
}

func TestObserveCall(t *testing.T) {
	InitMetrics()

	ok := calls.WithLabelValues("execute", "pin_object", "ok")
	failed := calls.WithLabelValues("execute", "pin_object", "error")
	okBefore, failedBefore := value(t, ok), value(t, failed)

	ObserveCall("execute", "pin_object", nil)
	ObserveCall("execute", "pin_object", errors.New("boom"))

	if got := value(t, ok); got != okBefore+1 {
		t.Fatalf("expected ok counter %v, got %v", okBefore+1, got)
	}
	if got := value(t, failed); got != failedBefore+1 {
		t.Fatalf("expected error counter %v, got %v", failedBefore+1, got)
	}
}

func TestSetBucketUsage(t *testing.T) {
	InitMetrics()

	SetBucketUsage(3, 300, 120)

	if got := value(t, bucketObjects); got != 3 {
		t.Fatalf("expected 3 objects, got %v", got)
	}
	if got := value(t, bucketBytes.WithLabelValues("compressed")); got != 120 {
		t.Fatalf("expected 120 compressed bytes, got %v", got)
	}
}

func TestRegisterExposesMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitMetrics()
	ObserveCompression("zstd", 2.5)

	r := gin.New()
	Register(r, "/metrics")

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "pinstore_compression_ratio") {
		t.Fatalf("expected pinstore collectors in /metrics output")
	}
}
