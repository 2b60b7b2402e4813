package validate

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithTolerancePct sets the acceptance band for formula deviation.
func WithTolerancePct(pct float64) Option {
	return func(v *Validator) {
		if pct > 0 {
			v.tolerancePct = pct
		}
	}
}

// WithMaxImbalance sets the per-team possession imbalance bound.
func WithMaxImbalance(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxImbalance = n
		}
	}
}
