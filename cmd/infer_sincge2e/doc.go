// Package main enrolls, verifies and identifies speakers from wav files with a
// model trained by train_sincge2e.
package main
