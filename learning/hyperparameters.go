package learning

import "go.uber.org/zap"

// SetLogger sends the training log as JSON lines to filename (appending).
func (h *HyperParameters) SetLogger(filename string) error {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filename}
	cfg.ErrorOutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	h.l = l
	return nil
}

// SetZapLogger uses l for the training log.
func (h *HyperParameters) SetZapLogger(l *zap.Logger) {
	h.l = l
}

// Logger returns the training logger, a no-op one if none was set.
func (h *HyperParameters) Logger() *zap.Logger {
	if h.l == nil {
		return zap.NewNop()
	}
	return h.l
}

type HyperParameters struct {
	Threads int // number of threads for learning

	Shuffle bool   // whether to shuffle the set before each epoch
	Seed    uint64 // shuffle and initialisation seed

	LearningRate float64 // SGD step size
	Epochs       int     // passes over the training set
	BatchSize    int     // utterances per step, over all towers

	ClipMin  float64 // element-wise clip range, used when ClipMin < ClipMax
	ClipMax  float64
	ClipNorm float64 // global norm bound, used when positive

	l *zap.Logger
}
