package chart

import (
	"fmt"
)

// TotalDevice is the synthetic device name for the multi-device rollup.
const TotalDevice = "fpga-total"

// DeviceName returns the stable local name for a zero-based device index.
func DeviceName(idx int) string {
	return fmt.Sprintf("fpga-%d", idx)
}

// SeriesKey uniquely identifies one reported time series. It pairs the
// device name with the template field name; the wire form is
// "<device>-<field>", produced only at the reporting boundary.
type SeriesKey struct {
	Device string
	Field  string
}

// String returns the wire form of the key.
func (k SeriesKey) String() string {
	return k.Device + "-" + k.Field
}

// Snapshot holds the complete set of current metric values for one
// reporting tick. Every key registered in the Registry is present.
type Snapshot map[SeriesKey]float64

// Registry builds and owns the set of valid series keys. Charts are
// registered once at setup; registration order defines reporting order and
// is never re-sorted.
type Registry struct {
	order       []string
	charts      map[string]Definition
	chartKeys   map[string][]SeriesKey
	keys        map[SeriesKey]struct{}
	defaultData Snapshot
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		charts:      make(map[string]Definition),
		chartKeys:   make(map[string][]SeriesKey),
		keys:        make(map[SeriesKey]struct{}),
		defaultData: make(Snapshot),
	}
}

// Register appends the chart "<device>-<kind>" to the reporting order,
// copies the kind's template with its family rewritten to the device name
// and every dimension prefixed with "<device>-", and seeds all resulting
// series keys into the default snapshot at zero.
func (r *Registry) Register(kind Kind, device string) error {
	def, ok := Template(kind)
	if !ok {
		return fmt.Errorf("unknown metric kind: %s", kind)
	}

	name := device + "-" + string(kind)
	def.Family = device

	keys := make([]SeriesKey, len(def.Dimensions))
	for i := range def.Dimensions {
		key := SeriesKey{Device: device, Field: def.Dimensions[i].Name}
		def.Dimensions[i].Name = key.String()
		keys[i] = key
		r.keys[key] = struct{}{}
		r.defaultData[key] = 0
	}

	r.order = append(r.order, name)
	r.charts[name] = def
	r.chartKeys[name] = keys

	return nil
}

// Has reports whether the key was registered at setup. Unknown keys
// encountered during collection are silently ignored by callers.
func (r *Registry) Has(key SeriesKey) bool {
	_, ok := r.keys[key]
	return ok
}

// Len returns the number of registered series keys.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Order returns chart names in registration order.
func (r *Registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Chart returns the registered definition for a chart name.
func (r *Registry) Chart(name string) (Definition, bool) {
	def, ok := r.charts[name]
	return def, ok
}

// ChartKeys returns the series keys of a chart in dimension order.
func (r *Registry) ChartKeys(name string) []SeriesKey {
	return r.chartKeys[name]
}

// NewSnapshot returns a fresh snapshot seeded with every registered key at
// its default (zero) value.
func (r *Registry) NewSnapshot() Snapshot {
	out := make(Snapshot, len(r.defaultData))
	for k, v := range r.defaultData {
		out[k] = v
	}
	return out
}
