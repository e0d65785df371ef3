package observability

import "time"

// ObserveInference records one classifier call. It satisfies inference.Recorder.
func (p *Prom) ObserveInference(result string, elapsed time.Duration) {
	p.InferenceDuration.WithLabelValues(result).Observe(elapsed.Seconds())
	p.InferenceResults.WithLabelValues(result).Inc()
}

func (p *Prom) ObserveGateDenial(reason string) {
	p.GateDenials.WithLabelValues(reason).Inc()
}
