package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/swarm64/fpgamon/pkg/chart"
	"github.com/swarm64/fpgamon/pkg/probe"
	"github.com/swarm64/fpgamon/pkg/sampler"
)

// Config holds the collector's construction-time settings.
type Config struct {
	// DSN is the PostgreSQL connection string for the stats view.
	DSN string

	// IntelCmd and XilinxCmd are the vendor tool paths; the first one that
	// exists and is executable selects the vendor protocol.
	IntelCmd  string
	XilinxCmd string

	// CheckTempPower enables temperature/power sampling and charts.
	CheckTempPower bool

	// PUDDRStats enables the extended utilisation/DDR statistic charts.
	PUDDRStats bool

	// UpdateEvery is the base reporting interval. Sensor sampling runs at
	// this period clamped to the sampler floor.
	UpdateEvery time.Duration
}

// connectFunc establishes a StatsDB handle. Replaced in tests.
type connectFunc func(ctx context.Context) (StatsDB, error)

// Option customizes collector construction.
type Option func(*Collector)

// WithConnect overrides how the database connection is established.
// Intended for tests and alternative drivers.
func WithConnect(fn func(ctx context.Context) (StatsDB, error)) Option {
	return func(c *Collector) {
		c.connect = fn
	}
}

// Collector polls the database stats view and the vendor sensor samplers,
// producing one complete snapshot per reporting tick.
type Collector struct {
	cfg      Config
	registry *chart.Registry
	ids      *identityMap
	prober   *probe.Prober

	temp  *sampler.Sampler
	power *sampler.Sampler

	deviceCount int

	connect connectFunc
	db      StatsDB
}

// New builds a collector: it connects to the database, discovers the device
// count, registers all charts, and prepares the sensor samplers. The caller
// starts the sampling loops (see Samplers) and drives Collect on its
// reporting tick.
func New(ctx context.Context, cfg Config, opts ...Option) (*Collector, error) {
	c := &Collector{
		cfg:      cfg,
		registry: chart.NewRegistry(),
		ids:      newIdentityMap(),
		prober:   probe.New(cfg.IntelCmd, cfg.XilinxCmd),
		connect: func(ctx context.Context) (StatsDB, error) {
			return OpenPG(ctx, cfg.DSN)
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.setup(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collector) setup(ctx context.Context) error {
	db, err := c.ensureDB(ctx)
	if err != nil {
		return err
	}

	if err := db.EnsureExtension(ctx); err != nil {
		c.dropDB()
		return err
	}

	count, err := db.DeviceCount(ctx)
	if err != nil {
		c.dropDB()
		return err
	}
	c.deviceCount = count

	slog.Info("collector setup",
		slog.Int("devices", c.deviceCount),
		slog.String("vendor", c.prober.Vendor().String()),
		slog.Bool("temp_power", c.cfg.CheckTempPower),
		slog.Bool("pu_ddr_stats", c.cfg.PUDDRStats))

	if c.deviceCount > 1 {
		for _, kind := range chart.BaseKinds() {
			if err := c.registry.Register(kind, chart.TotalDevice); err != nil {
				return err
			}
		}
	}

	kinds := chart.BaseKinds()
	if c.cfg.PUDDRStats {
		kinds = append(kinds, chart.UtilisationKinds()...)
	}
	if c.cfg.CheckTempPower {
		kinds = append(kinds, chart.SensorKinds()...)
	}

	for i := 0; i < c.deviceCount; i++ {
		for _, kind := range kinds {
			if err := c.registry.Register(kind, chart.DeviceName(i)); err != nil {
				return err
			}
		}
	}

	interval := sampler.Interval(c.cfg.UpdateEvery)
	c.temp = sampler.New("temperature", c.deviceCount, interval, c.prober.Temperature)
	c.power = sampler.New("power", c.deviceCount, interval, c.prober.Power)

	return nil
}

// Registry returns the chart registry built at setup.
func (c *Collector) Registry() *chart.Registry {
	return c.registry
}

// DeviceCount returns the device count discovered at setup.
func (c *Collector) DeviceCount() int {
	return c.deviceCount
}

// Samplers returns the temperature and power samplers for the caller to
// run. They are only worth running when temperature/power collection is
// enabled.
func (c *Collector) Samplers() (temp, power *sampler.Sampler) {
	return c.temp, c.power
}

// SampleSensorsOnce refreshes both sensor samplers synchronously. Used by
// one-shot collection where no background loops run.
func (c *Collector) SampleSensorsOnce(ctx context.Context) {
	c.temp.SampleOnce(ctx)
	c.power.SampleOnce(ctx)
}

// Check implements the host-framework availability probe. The data source
// is not actually verified here; a broken source surfaces on Collect.
func (c *Collector) Check(ctx context.Context) error {
	return nil
}

// Collect runs one collection cycle and returns the completed snapshot.
// Any failure invalidates the cached database connection, forcing a
// reconnect on the next cycle, and is returned to the caller to decide
// whether to skip the tick.
func (c *Collector) Collect(ctx context.Context) (chart.Snapshot, error) {
	snap, err := c.collect(ctx)
	if err != nil {
		c.dropDB()
		return nil, err
	}
	return snap, nil
}

func (c *Collector) collect(ctx context.Context) (chart.Snapshot, error) {
	db, err := c.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	snap := c.registry.NewSnapshot()

	if c.cfg.CheckTempPower {
		c.mergeSensors(snap)
	}

	if err := db.EnsureExtension(ctx); err != nil {
		return nil, err
	}

	rows, err := db.Stats(ctx)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		c.mergeRow(snap, row)
	}

	return snap, nil
}

// mergeSensors copies the latest sampler readings for every device.
func (c *Collector) mergeSensors(snap chart.Snapshot) {
	for idx := 0; idx < c.deviceCount; idx++ {
		dev := chart.DeviceName(idx)
		snap[chart.SeriesKey{Device: dev, Field: "temperature"}] = float64(c.temp.Reading(idx))
		snap[chart.SeriesKey{Device: dev, Field: "power"}] = float64(c.power.Reading(idx))
	}
}

// mergeRow writes one stats-view row into the snapshot under the device's
// local name, and accumulates the fpga-total rollup when more than one
// device is configured: percent-named columns average across devices,
// everything else sums.
func (c *Collector) mergeRow(snap chart.Snapshot, row StatsRow) {
	dev := c.ids.resolve(row.FPGAID)

	for col, val := range row.Values {
		key := chart.SeriesKey{Device: dev, Field: col}
		if !c.registry.Has(key) {
			continue
		}
		snap[key] = val

		if c.deviceCount > 1 {
			total := chart.SeriesKey{Device: chart.TotalDevice, Field: col}
			if !c.registry.Has(total) {
				continue
			}
			if strings.Contains(col, "percent") {
				snap[total] += val / float64(c.deviceCount)
			} else {
				snap[total] += val
			}
		}
	}
}

// ensureDB lazily (re)establishes the database connection.
func (c *Collector) ensureDB(ctx context.Context) (StatsDB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := c.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}
	c.db = db
	return db, nil
}

// dropDB invalidates the cached connection so the next cycle reconnects.
func (c *Collector) dropDB() {
	if c.db == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.db.Close(closeCtx); err != nil {
		slog.Debug("failed to close invalidated connection", slog.String("error", err.Error()))
	}
	c.db = nil
}

// Close releases the collector's database connection.
func (c *Collector) Close(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close(ctx)
	c.db = nil
	return err
}
