// Package Learning implements the optimisation step of the sincnet trainer
package learning

import "errors"
import "fmt"

import "gonum.org/v1/gonum/floats"
import "go.uber.org/zap"

import "github.com/neurlang/sincnet/gradient"

// ErrLearningRate is returned by Apply for a non-positive learning rate.
var ErrLearningRate = errors.New("learning: learning rate must be positive")

// Clip applies value clipping when a range is configured, then norm clipping
// when a bound is configured. The input tower is not modified.
func (h *HyperParameters) Clip(t gradient.Tower) gradient.Tower {
	if h.ClipMin < h.ClipMax {
		t = gradient.ClipByValue(t, h.ClipMin, h.ClipMax)
	}
	if h.ClipNorm > 0 {
		t = gradient.ClipByNorm(t, h.ClipNorm)
	}
	return t
}

// Apply performs one SGD update var -= LearningRate * grad for every pair.
func (h *HyperParameters) Apply(t gradient.Tower) error {
	if h.LearningRate <= 0 {
		return ErrLearningRate
	}
	for _, p := range t {
		if !p.Var.Value.SameShape(p.Grad) {
			return fmt.Errorf("learning: %s has shape %v, gradient %v", p.Var.Name, p.Var.Value.Shape, p.Grad.Shape)
		}
	}
	for _, p := range t {
		floats.AddScaled(p.Var.Value.Data, -h.LearningRate, p.Grad.Data)
	}
	h.Logger().Debug("applied gradients",
		zap.Int("variables", len(t)),
		zap.Float64("global_norm", gradient.GlobalNorm(t)),
		zap.Float64("learning_rate", h.LearningRate))
	return nil
}
