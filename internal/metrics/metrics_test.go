package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveReport(t *testing.T) {
	before := testutil.ToFloat64(Reports.WithLabelValues("pdf", "sync"))
	ObserveReport("pdf", "sync", time.Now().Add(-time.Second))
	assert.Equal(t, before+1, testutil.ToFloat64(Reports.WithLabelValues("pdf", "sync")))
	assert.Equal(t, 1, testutil.CollectAndCount(ReportDuration))
}
