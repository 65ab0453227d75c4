// Package utils provides small helpers shared by the companion services.
package utils //nolint:revive // var-naming: utils is an acceptable package name for shared utilities

import "sync"

// MergeErrorChans fans the errors of several channels into one. The result
// closes once every input channel has closed, so a caller can wait on a set
// of listeners with a single receive and drain it after shutdown.
//
// Example:
//
//	merged := MergeErrorChans(apiErrs, metrics.Listen(9090))
//	if err, ok := <-merged; ok {
//		log.Error("Listener failed", logger.ErrorField(err))
//	}
func MergeErrorChans(channels ...chan error) chan error {
	out := make(chan error)
	var wg sync.WaitGroup

	for _, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for err := range ch {
				out <- err
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
