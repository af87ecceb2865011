package core

import "sync"

const avgCount = 30

type metricsState struct {
	frameAvgCounter    int
	msTimes            [avgCount]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

var onceMetrics sync.Once
var metrics *metricsState

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metrics = &metricsState{}
	})
	return nil
}

// MetricsUpdate records one frame's elapsed time (in seconds) and refreshes
// the rolling frame-time average and the FPS counter.
func MetricsUpdate(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	metrics.msTimes[metrics.frameAvgCounter] = frameMS
	if metrics.frameAvgCounter == avgCount-1 {
		sum := 0.0
		for i := 0; i < avgCount; i++ {
			sum += metrics.msTimes[i]
		}
		metrics.msAvg = sum / float64(avgCount)
	}
	metrics.frameAvgCounter = (metrics.frameAvgCounter + 1) % avgCount

	metrics.accumulatedFrameMS += frameMS
	if metrics.accumulatedFrameMS > 1000 {
		metrics.fps = float64(metrics.frames)
		metrics.accumulatedFrameMS -= 1000
		metrics.frames = 0
	}
	metrics.frames++
}

func MetricsFPS() float64 {
	return metrics.fps
}

func MetricsFrameTime() float64 {
	return metrics.msAvg
}

func MetricsFrame() (float64, float64) {
	return metrics.fps, metrics.msAvg
}
