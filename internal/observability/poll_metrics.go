package observability

// PollAttempt and PollOutcome satisfy poller.Metrics.
func (p *Prom) PollAttempt(attempt int, failed bool) {
	result := "ok"
	if failed {
		result = "error"
	}
	p.PollAttemptsTotal.WithLabelValues(result).Inc()
	p.PollAttemptsPerRun.Observe(float64(attempt))
}

func (p *Prom) PollOutcome(outcome string) {
	p.PollOutcomesTotal.WithLabelValues(outcome).Inc()
}
