package detect

import "github.com/okian/tempo/pkg/logger"

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(log logger.Logger) Option {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}
