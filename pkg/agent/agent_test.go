package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarm64/fpgamon/pkg/chart"
	"github.com/swarm64/fpgamon/pkg/collector"
	"github.com/swarm64/fpgamon/pkg/config"
	"github.com/swarm64/fpgamon/pkg/serializer"
)

type stubDB struct {
	deviceCount int
	rows        []collector.StatsRow
}

func (s *stubDB) EnsureExtension(ctx context.Context) error { return nil }
func (s *stubDB) DeviceCount(ctx context.Context) (int, error) {
	return s.deviceCount, nil
}
func (s *stubDB) Stats(ctx context.Context) ([]collector.StatsRow, error) {
	return s.rows, nil
}
func (s *stubDB) Close(ctx context.Context) error { return nil }

func newTestAgent(t *testing.T, cfg *config.Config, db collector.StatsDB, out serializer.Serializer, opts ...Option) *Agent {
	t.Helper()
	col, err := collector.New(t.Context(), collector.Config{
		CheckTempPower: cfg.CheckTempPower,
		PUDDRStats:     cfg.PUDDRStatsEnable,
		UpdateEvery:    cfg.UpdateEvery,
	}, collector.WithConnect(func(ctx context.Context) (collector.StatsDB, error) {
		return db, nil
	}))
	require.NoError(t, err)
	return New(cfg, col, out, opts...)
}

func TestCollectReport_ChartOrderAndValues(t *testing.T) {
	db := &stubDB{deviceCount: 1, rows: []collector.StatsRow{
		{FPGAID: "0", Values: map[string]float64{
			"compression_job_count":    100,
			"host_to_fpga_byte_count":  4096,
			"max_outstanding_filter_jobs": 3,
		}},
	}}

	cfg := config.Default()
	cfg.UpdateEvery = time.Second

	var buf bytes.Buffer
	a := newTestAgent(t, cfg, db, serializer.NewWriter(serializer.FormatJSON, &buf))

	rep, err := a.CollectReport(t.Context())
	require.NoError(t, err)

	require.Len(t, rep.Charts, 3)
	assert.Equal(t, "fpga-0-bytes", rep.Charts[0].Name)
	assert.Equal(t, "fpga-0-jobs", rep.Charts[1].Name)
	assert.Equal(t, "fpga-0-max", rep.Charts[2].Name)

	assert.Equal(t, "fpga-0", rep.Charts[0].Family)
	assert.Equal(t, "MB/sec", rep.Charts[0].Units)

	bytesChart := rep.Charts[0]
	require.Len(t, bytesChart.Values, 2)
	assert.Equal(t, "fpga-0-host_to_fpga_byte_count", bytesChart.Values[0].Key)
	assert.Equal(t, chart.Incremental, bytesChart.Values[0].Algorithm)
	assert.Equal(t, float64(4096), bytesChart.Values[0].Value)

	jobsChart := rep.Charts[1]
	assert.Equal(t, float64(100), jobsChart.Values[0].Value)

	assert.NotEmpty(t, rep.RunID)
	assert.False(t, rep.Timestamp.IsZero())
}

func TestCollectReport_InvokesHook(t *testing.T) {
	db := &stubDB{deviceCount: 1}

	cfg := config.Default()
	cfg.UpdateEvery = time.Second

	var mu sync.Mutex
	var got *Report
	a := newTestAgent(t, cfg, db, serializer.NewWriter(serializer.FormatJSON, &bytes.Buffer{}),
		WithReportHook(func(r *Report) {
			mu.Lock()
			got = r
			mu.Unlock()
		}))

	rep, err := a.CollectReport(t.Context())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Same(t, rep, got)
}

func TestRun_TicksAndStops(t *testing.T) {
	db := &stubDB{deviceCount: 1, rows: []collector.StatsRow{
		{FPGAID: "0", Values: map[string]float64{"filter_job_count": 1}},
	}}

	cfg := config.Default()
	cfg.UpdateEvery = 10 * time.Millisecond

	var mu sync.Mutex
	var buf bytes.Buffer
	out := serializer.NewWriter(serializer.FormatJSON, syncWriter{&mu, &buf})

	a := newTestAgent(t, cfg, db, out)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return buf.Len() > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	var rep Report
	require.NoError(t, dec.Decode(&rep))
	require.NotEmpty(t, rep.Charts)
	assert.Equal(t, "fpga-0-bytes", rep.Charts[0].Name)
}

type syncWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
