package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorObserveCycle(t *testing.T) {
	c := NewCollector()
	finished := time.Unix(1_700_000_000, 0)

	c.ObserveCycle(ResultSuccess, 2*time.Second, finished)
	c.ObserveCycle(ResultFailure, time.Second, finished.Add(time.Minute))
	c.ObserveCycle(ResultSkipped, 0, finished.Add(2*time.Minute))

	body := scrape(t, c)
	assert.Contains(t, body, `lotus_dashboard_cycles_total{result="success"} 1`)
	assert.Contains(t, body, `lotus_dashboard_cycles_total{result="failure"} 1`)
	assert.Contains(t, body, `lotus_dashboard_cycles_total{result="skipped"} 1`)
	assert.Contains(t, body, "lotus_dashboard_cycle_duration_seconds_count 2")
	assert.Contains(t, body, "lotus_dashboard_last_success_timestamp_seconds 1.7e+09")
}

func TestCollectorRowCounts(t *testing.T) {
	c := NewCollector()
	c.SetRowsExtracted(map[string]int{"lead": 3, "deal": 2})
	c.SetRowsLoaded(map[string]int{"lead_insight": 4})

	body := scrape(t, c)
	assert.Contains(t, body, `lotus_dashboard_rows_extracted{table="lead"} 3`)
	assert.Contains(t, body, `lotus_dashboard_rows_loaded{table="lead_insight"} 4`)
}

func TestCollectorExposesRuntimeMetrics(t *testing.T) {
	body := scrape(t, NewCollector())
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveCycle(ResultSuccess, time.Second, time.Now())
	c.SetRowsExtracted(map[string]int{"lead": 1})
	c.SetRowsLoaded(nil)
}
