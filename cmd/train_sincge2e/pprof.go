package main

import "runtime/pprof"
import "os"
import "os/signal"
import "sync"
import "syscall"

// startPGO collects a CPU profile into path. The returned stop flushes it and
// must be called when training ends; an interrupt flushes it before exiting.
func startPGO(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	var once sync.Once
	stop = func() {
		once.Do(func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigChan; ok {
			stop()
			os.Exit(130)
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(sigChan)
		stop()
	}, nil
}
