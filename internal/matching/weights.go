package matching

import (
	"fmt"
	"math"
)

const weightsTolerance = 1e-9

// Weights are the factor weights of the aggregate score. They must sum to 1.
type Weights struct {
	Skill      float64 `mapstructure:"skill" json:"skill"`
	Experience float64 `mapstructure:"experience" json:"experience"`
	Location   float64 `mapstructure:"location" json:"location"`
	Salary     float64 `mapstructure:"salary" json:"salary"`
	Education  float64 `mapstructure:"education" json:"education"`
}

func DefaultWeights() Weights {
	return Weights{
		Skill:      0.35,
		Experience: 0.20,
		Location:   0.15,
		Salary:     0.20,
		Education:  0.10,
	}
}

func (w Weights) Sum() float64 {
	return w.Skill + w.Experience + w.Location + w.Salary + w.Education
}

func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skill":      w.Skill,
		"experience": w.Experience,
		"location":   w.Location,
		"salary":     w.Salary,
		"education":  w.Education,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s weight is %v", ErrInvalidWeights, name, v)
		}
	}

	if sum := w.Sum(); math.Abs(sum-1) > weightsTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}
