package layer

import "errors"
import "fmt"

import "github.com/neurlang/sincnet/tensor"

// ErrNoForward is returned by Backward when Forward was not called first.
var ErrNoForward = errors.New("layer: backward without forward")

// Param is a named trainable parameter. It is created once when the model is
// built and passed around by reference; the optimizer mutates Value in place
// between steps.
type Param struct {
	Name  string
	Value *tensor.Tensor
}

// NewParam creates a parameter holding a copy of init.
func NewParam(name string, init *tensor.Tensor) *Param {
	return &Param{Name: name, Value: init.Clone()}
}

// String returns the parameter name and shape.
func (p *Param) String() string {
	return fmt.Sprintf("%s%v", p.Name, p.Value.Shape)
}
