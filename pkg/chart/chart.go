package chart

// Kind identifies one metric group template.
type Kind string

const (
	KindBytes    Kind = "bytes"
	KindJobs     Kind = "jobs"
	KindMax      Kind = "max"
	KindPUStats  Kind = "pu_stats"
	KindDDRStats Kind = "ddr_stats"
	KindTemps    Kind = "temps"
	KindPowers   Kind = "powers"
)

// Algorithm determines how the host agent interprets a dimension's value.
type Algorithm string

const (
	// Incremental dimensions report the difference since the last value.
	Incremental Algorithm = "incremental"
	// Absolute dimensions report the value as-is.
	Absolute Algorithm = "absolute"
)

// Dimension is one reported series within a chart: the column name it is
// fed from, its display label, and how the value is aggregated. Mul/Div
// apply an optional sign/scale to incremental dimensions.
type Dimension struct {
	Name      string    `json:"name" yaml:"name"`
	Label     string    `json:"label" yaml:"label"`
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
	Mul       int       `json:"mul,omitempty" yaml:"mul,omitempty"`
	Div       int       `json:"div,omitempty" yaml:"div,omitempty"`
}

// Definition is the static template for one metric group: display metadata
// plus the ordered dimension list. Registering a definition for a device
// copies it, so templates are never mutated.
type Definition struct {
	Title      string      `json:"title" yaml:"title"`
	Units      string      `json:"units" yaml:"units"`
	Family     string      `json:"family" yaml:"family"`
	Dimensions []Dimension `json:"dimensions" yaml:"dimensions"`
}

const mib = 1024 * 1024

// definitions is the full template table, one entry per metric kind.
var definitions = map[Kind]Definition{
	KindBytes: {
		Title:  "Transfered data",
		Units:  "MB/sec",
		Family: "fpga",
		Dimensions: []Dimension{
			{Name: "host_to_fpga_byte_count", Label: "sent to fpga", Algorithm: Incremental, Mul: 1, Div: mib},
			{Name: "fpga_to_host_byte_count", Label: "received from fpga", Algorithm: Incremental, Mul: -1, Div: mib},
		},
	},
	KindJobs: {
		Title:  "Processed jobs",
		Units:  "Jobs/sec",
		Family: "fpga",
		Dimensions: []Dimension{
			{Name: "compression_job_count", Label: "compressed jobs", Algorithm: Incremental},
			{Name: "decompression_job_count", Label: "decompressed jobs", Algorithm: Incremental},
			{Name: "decompression_and_filter_job_count", Label: "decompressed and filtered jobs", Algorithm: Incremental},
			{Name: "filter_job_count", Label: "filtered jobs", Algorithm: Incremental},
		},
	},
	KindMax: {
		Title:  "Max outstanding jobs",
		Units:  "max oustanding",
		Family: "fpga",
		Dimensions: []Dimension{
			{Name: "max_outstanding_compression_jobs", Label: "compression", Algorithm: Absolute},
			{Name: "max_outstanding_decompression_and_filter_jobs", Label: "decompress and filter", Algorithm: Absolute},
			{Name: "max_outstanding_filter_jobs", Label: "filter", Algorithm: Absolute},
		},
	},
	KindPUStats: {
		Title:  "PUs utilisation",
		Units:  "PU utilised",
		Family: "fpga",
		Dimensions: []Dimension{
			{Name: "current_pu_utilised_comp_percent", Label: "current compress PUs (%)", Algorithm: Absolute},
			{Name: "current_pu_utilised_decomp_percent", Label: "current decompress PUs (%)", Algorithm: Absolute},
			{Name: "avg_pu_utilised_comp_percent", Label: "avg compress PUs (%)", Algorithm: Absolute},
			{Name: "avg_pu_utilised_decomp_percent", Label: "avg decompress PUs (%)", Algorithm: Absolute},
			{Name: "max_pu_utilised_comp", Label: "max. compress PUs", Algorithm: Absolute},
			{Name: "max_pu_utilised_decomp", Label: "max. decompress PUs", Algorithm: Absolute},
		},
	},
	KindDDRStats: {
		Title:  "Successful and denied DDR transfers",
		Units:  "Transfers",
		Family: "fpga",
		Dimensions: []Dimension{
			{Name: "avg_memory_write_transactions_percent", Label: "successful write transfers (%)", Algorithm: Absolute},
			{Name: "avg_memory_read_transactions_percent", Label: "successful read transfers (%)", Algorithm: Absolute},
			{Name: "avg_memory_write_denied_percent", Label: "denied write transfers (%)", Algorithm: Absolute},
			{Name: "avg_memory_read_denied_percent", Label: "denied read transfers (%)", Algorithm: Absolute},
		},
	},
	KindTemps: {
		Title:  "FPGA Temperature",
		Units:  "°C",
		Family: "fpga",
		Dimensions: []Dimension{
			{Name: "temperature", Label: "Degrees Celcius", Algorithm: Absolute},
		},
	},
	KindPowers: {
		Title:  "FPGA Power Consumption",
		Units:  "Watts",
		Family: "fpga",
		Dimensions: []Dimension{
			{Name: "power", Label: "Total Watts", Algorithm: Absolute},
		},
	},
}

// BaseKinds are the metric groups registered for every device.
func BaseKinds() []Kind {
	return []Kind{KindBytes, KindJobs, KindMax}
}

// UtilisationKinds are the optional PU/DDR statistics groups.
func UtilisationKinds() []Kind {
	return []Kind{KindPUStats, KindDDRStats}
}

// SensorKinds are the optional temperature/power groups.
func SensorKinds() []Kind {
	return []Kind{KindTemps, KindPowers}
}

// Template returns a deep copy of the definition for the given kind,
// so callers can rewrite display metadata without touching the table.
func Template(kind Kind) (Definition, bool) {
	def, ok := definitions[kind]
	if !ok {
		return Definition{}, false
	}
	out := def
	out.Dimensions = make([]Dimension, len(def.Dimensions))
	copy(out.Dimensions, def.Dimensions)
	return out, true
}
