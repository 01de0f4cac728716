// Package main trains the sinc GE2E speaker embedder on a directory of wav
// files laid out as <train_dir>/<speaker>/<utterance>.wav. Weights and speaker
// centroids are written to the model directory after every improving epoch.
package main
