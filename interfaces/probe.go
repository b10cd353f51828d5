package interfaces

import "context"

// EnvironmentProbe reads ambient temperature in degrees Celsius.
// Readings feed the side-channel detection pass of the enforcement cycle.
type EnvironmentProbe interface {
	// Read returns the current ambient temperature. A read failure is
	// reported to the caller, which skips the temperature pass for the
	// cycle rather than aborting it.
	Read(ctx context.Context) (float64, error)
}

// ProbeFunc adapts a plain function to the EnvironmentProbe interface.
type ProbeFunc func(ctx context.Context) (float64, error)

// Read implements EnvironmentProbe.
func (f ProbeFunc) Read(ctx context.Context) (float64, error) {
	return f(ctx)
}
