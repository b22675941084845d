package metrics

// Report is the presentation-ready aggregate for one scenario run. Exactly one
// of Latency or Throughput is populated, depending on the kind. Model order
// matches the order models were selected for the run.
type Report struct {
	Kind       Kind              `json:"kind" yaml:"kind"`
	Latency    []LatencyStats    `json:"latency,omitempty" yaml:"latency,omitempty"`
	Throughput []ThroughputStats `json:"throughput,omitempty" yaml:"throughput,omitempty"`
}

// BuildReport reads finalized snapshots for the given models, preserving their
// order. It has no side effects on the collector state.
func BuildReport(c *Collector, kind Kind, models []string) Report {
	report := Report{Kind: kind}
	for _, model := range models {
		if kind == ThroughputStreaming {
			report.Throughput = append(report.Throughput, c.FinalizeThroughput(model))
		} else {
			report.Latency = append(report.Latency, c.Finalize(model, kind))
		}
	}
	return report
}

// Successes counts recorded successful requests across all models in the
// report. Zero successes for a whole run signals an unreachable target.
func (r Report) Successes() int {
	total := 0
	for _, s := range r.Latency {
		total += s.Requests - s.Failures
	}
	for _, s := range r.Throughput {
		total += s.Requests - s.Failures
	}
	return total
}
