package derive

// Option applies a configuration option to the Deriver.
type Option func(*Deriver)

// WithShotClockBound sets the duration bound above which a same-period
// possession is flagged.
func WithShotClockBound(seconds float64) Option {
	return func(d *Deriver) {
		if seconds > 0 {
			d.shotClockSeconds = seconds
		}
	}
}

// WithClutchThresholds sets the clutch-time window and maximum margin.
func WithClutchThresholds(windowSeconds float64, maxMargin int) Option {
	return func(d *Deriver) {
		if windowSeconds > 0 {
			d.clutchWindow = windowSeconds
		}
		if maxMargin > 0 {
			d.clutchMargin = maxMargin
		}
	}
}

// WithGarbageMargin sets the minimum margin for garbage time.
func WithGarbageMargin(margin int) Option {
	return func(d *Deriver) {
		if margin > 0 {
			d.garbageMargin = margin
		}
	}
}

// WithFastbreakBound sets the maximum duration of a fastbreak possession.
func WithFastbreakBound(seconds float64) Option {
	return func(d *Deriver) {
		if seconds > 0 {
			d.fastbreakSeconds = seconds
		}
	}
}

// WithWallClockTempo toggles wall-clock tempo-efficiency derivation.
func WithWallClockTempo(enabled bool) Option {
	return func(d *Deriver) {
		d.wallClockTempo = enabled
	}
}

// WithPeriodLengths overrides regulation and overtime period lengths.
func WithPeriodLengths(regulationSeconds, overtimeSeconds float64) Option {
	return func(d *Deriver) {
		if regulationSeconds > 0 {
			d.regulationSeconds = regulationSeconds
		}
		if overtimeSeconds > 0 {
			d.overtimeSeconds = overtimeSeconds
		}
	}
}
