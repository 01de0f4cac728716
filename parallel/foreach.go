// Package parallel contains the worker pools used by the layers and the trainer.
package parallel

import "sync"
import "sync/atomic"

// ForEach executes body for every i in [0, length) on at most limit goroutines.
// It returns once every body has returned.
func ForEach(length, limit int, body func(i int)) {
	if length <= 0 {
		return
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > length {
		limit = length
	}
	if limit == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(limit)
	for w := 0; w < limit; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= length {
					return
				}
				body(i)
			}
		}()
	}
	wg.Wait()
}
