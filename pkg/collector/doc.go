// Package collector implements the FPGA statistics collection cycle: one
// database query per reporting tick merged with the latest sensor sampler
// readings into a complete snapshot.
//
// The collector owns the chart registry, the device identity mapping, and a
// lazily re-established PostgreSQL connection. Database identifiers for
// devices are not assumed stable or dense, so rows are mapped to local
// names (fpga-0, fpga-1, ...) in first-seen order. When more than one
// device is present, per-device columns additionally roll up into the
// synthetic fpga-total charts: plain columns sum, percent columns average.
//
// Failure handling follows the original plugin: a failed cycle drops the
// cached connection and returns the error to the caller, which decides
// whether to skip the tick; the next cycle reconnects.
package collector
