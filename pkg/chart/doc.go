// Package chart defines the static metric group templates for FPGA
// statistics and the registry that turns them into the fixed set of named
// time series reported each cycle.
//
// A Definition describes one group of related series (display metadata plus
// an ordered dimension list). The Registry parameterizes definitions by
// device name at setup: per-device charts such as "fpga-0-bytes" plus,
// when more than one device is present, a synthetic "fpga-total" rollup.
// The set of valid series keys is fixed once setup completes and seeds the
// default all-zero snapshot used to start every collection cycle.
package chart
