// Package main prints the GPUs a training run with n devices would use, as a
// CUDA_VISIBLE_DEVICES value.
package main
