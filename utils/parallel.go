package utils

import (
	"runtime"
	"sync"

	goutils "go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachRow splits [0, height) into contiguous bands, one per worker, and calls f for
// every row. f must only touch state owned by its row.
func ParallelForEachRow(height int, f func(y int)) {
	if height <= 0 {
		return
	}
	workers := ParallelFactor
	if workers > height {
		workers = height
	}
	band := (height + workers - 1) / workers

	var waitGroup sync.WaitGroup
	for start := 0; start < height; start += band {
		end := start + band
		if end > height {
			end = height
		}
		from, to := start, end
		waitGroup.Add(1)
		goutils.PanicCapturingGo(func() {
			defer waitGroup.Done()
			for y := from; y < to; y++ {
				f(y)
			}
		})
	}
	waitGroup.Wait()
}
