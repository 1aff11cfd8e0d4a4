package agent

import (
	"time"

	"github.com/swarm64/fpgamon/pkg/chart"
)

// Report is one reporting tick's output: run metadata plus every chart in
// registration order with its current dimension values.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Host      string        `json:"host,omitempty" yaml:"host,omitempty"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Charts    []ChartReport `json:"charts" yaml:"charts"`
}

// ChartReport is one chart's slice of the snapshot.
type ChartReport struct {
	Name   string           `json:"name" yaml:"name"`
	Title  string           `json:"title" yaml:"title"`
	Units  string           `json:"units" yaml:"units"`
	Family string           `json:"family" yaml:"family"`
	Values []DimensionValue `json:"values" yaml:"values"`
}

// DimensionValue pairs a series key's wire form with its display metadata
// and the value collected this tick.
type DimensionValue struct {
	Key       string          `json:"key" yaml:"key"`
	Label     string          `json:"label" yaml:"label"`
	Algorithm chart.Algorithm `json:"algorithm" yaml:"algorithm"`
	Value     float64         `json:"value" yaml:"value"`
}

// buildReport assembles a report from a completed snapshot, preserving
// chart registration order and dimension order.
func buildReport(runID, host string, reg *chart.Registry, snap chart.Snapshot) *Report {
	rep := &Report{
		RunID:     runID,
		Host:      host,
		Timestamp: time.Now().UTC(),
		Charts:    make([]ChartReport, 0, len(reg.Order())),
	}

	for _, name := range reg.Order() {
		def, ok := reg.Chart(name)
		if !ok {
			continue
		}
		keys := reg.ChartKeys(name)

		cr := ChartReport{
			Name:   name,
			Title:  def.Title,
			Units:  def.Units,
			Family: def.Family,
			Values: make([]DimensionValue, len(def.Dimensions)),
		}
		for i, dim := range def.Dimensions {
			cr.Values[i] = DimensionValue{
				Key:       dim.Name,
				Label:     dim.Label,
				Algorithm: dim.Algorithm,
				Value:     snap[keys[i]],
			}
		}
		rep.Charts = append(rep.Charts, cr)
	}

	return rep
}
