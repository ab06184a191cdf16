package exercise

// Smoother is an exponential moving average of step progress.
type Smoother struct {
	factor float64
	value  float64
}

// NewSmoother creates a Smoother starting at 0.
func NewSmoother(factor float64) *Smoother {
	return &Smoother{factor: factor}
}

// Next returns the average that Update would produce for sample without
// changing the smoother.
func (s *Smoother) Next(sample float64) float64 {
	return s.factor*sample + (1-s.factor)*s.value
}

// Update folds a new sample into the average and returns the result.
func (s *Smoother) Update(sample float64) float64 {
	s.value = s.Next(sample)
	return s.value
}

// Value returns the current average.
func (s *Smoother) Value() float64 {
	return s.value
}
