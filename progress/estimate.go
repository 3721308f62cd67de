package progress

import (
	"math"
	"time"
)

const (
	// WindowDuration is how far back samples are always taken into account.
	WindowDuration = 5 * time.Second

	// WindowMinSamples is how many of the latest samples are always taken
	// into account, even if they are older than WindowDuration.
	WindowMinSamples = 6

	// MinSamplesForEstimate is the least amount of samples in the window
	// required to produce an estimate.
	MinSamplesForEstimate = 4
)

type Sample struct {
	Timestamp time.Time

	// Progress is the completed fraction, in [0, 1].
	Progress float64
}

// Update appends the sample to the history, drops the samples that left the
// sliding window and estimates the remaining time.
//
// The window starts at the earlier of the oldest sample within the last
// WindowDuration and the WindowMinSamples-th latest sample. The returned
// estimate is nil if the window holds less than MinSamplesForEstimate
// samples or no progress was made within it.
//
// The input slice is not modified.
func Update(
	history []Sample,
	sample Sample,
) ([]Sample, *time.Duration) {
	window := make([]Sample, 0, len(history)+1)
	window = append(window, history...)
	window = append(window, sample)
	window = window[windowStart(window):]

	if len(window) < MinSamplesForEstimate {
		return window, nil
	}

	first, last := window[0], window[len(window)-1]
	elapsed := last.Timestamp.Sub(first.Timestamp).Seconds()
	if elapsed <= 0 {
		return window, nil
	}
	rate := (last.Progress - first.Progress) / elapsed
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return window, nil
	}

	secondsLeft := math.Max(0, math.Round((1-last.Progress)/rate))
	timeLeft := time.Duration(secondsLeft) * time.Second
	return window, &timeLeft
}

func windowStart(samples []Sample) int {
	now := samples[len(samples)-1].Timestamp

	byTime := len(samples) - 1
	for idx, s := range samples {
		if now.Sub(s.Timestamp) <= WindowDuration {
			byTime = idx
			break
		}
	}

	byCount := max(len(samples)-WindowMinSamples, 0)
	return min(byTime, byCount)
}
