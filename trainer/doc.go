// Package trainer provides high-level training orchestration for the sinc GE2E
// speaker embedder. A step runs one tower per device in parallel, averages
// their gradients, applies them once and then updates the speaker centroids.
package trainer
