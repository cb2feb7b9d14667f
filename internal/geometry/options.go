package geometry

// Options holds the tuning parameters for the polygon pipeline. The
// ratios are tuned against cell-broadcast carrier limits and the current
// area catalogue; they are parameters, not constants of the problem.
type Options struct {
	// PerimeterToBufferRatio controls the smoothing buffer: the buffer
	// magnitude is the perimeter divided by this ratio. Default: 1000.
	PerimeterToBufferRatio float64

	// PerimeterToSimplificationRatio controls the starting
	// Douglas-Peucker tolerance. Default: 1620.
	PerimeterToSimplificationRatio float64

	// MinSmoothRadiusMetres is the smallest smoothing buffer applied to
	// any polygon, regardless of perimeter. Default: 30.
	MinSmoothRadiusMetres float64

	// MinToleranceMetres is the smallest simplification tolerance.
	// Default: 25.
	MinToleranceMetres float64

	// MaxPoints is the point budget a simplified set must fit within.
	// Default: 250.
	MaxPoints int

	// MaxSimplifyIterations caps the tolerance-doubling loop. If the
	// budget is still exceeded after this many passes the configured
	// ratios cannot converge and simplification fails. Default: 16.
	MaxSimplifyIterations int
}

// DefaultOptions returns the parameters tuned for the current catalogue.
func DefaultOptions() Options {
	return Options{
		PerimeterToBufferRatio:         1000,
		PerimeterToSimplificationRatio: 1620,
		MinSmoothRadiusMetres:          30,
		MinToleranceMetres:             25,
		MaxPoints:                      250,
		MaxSimplifyIterations:          16,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PerimeterToBufferRatio <= 0 {
		o.PerimeterToBufferRatio = d.PerimeterToBufferRatio
	}
	if o.PerimeterToSimplificationRatio <= 0 {
		o.PerimeterToSimplificationRatio = d.PerimeterToSimplificationRatio
	}
	if o.MinSmoothRadiusMetres <= 0 {
		o.MinSmoothRadiusMetres = d.MinSmoothRadiusMetres
	}
	if o.MinToleranceMetres <= 0 {
		o.MinToleranceMetres = d.MinToleranceMetres
	}
	if o.MaxPoints <= 0 {
		o.MaxPoints = d.MaxPoints
	}
	if o.MaxSimplifyIterations <= 0 {
		o.MaxSimplifyIterations = d.MaxSimplifyIterations
	}
	return o
}
