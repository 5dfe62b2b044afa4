package keystroke

// MinSamples is the minimum number of completed keystrokes required
// before metrics are computed. Below this, any statistic would be
// degenerate and Analyze reports no metrics instead.
const MinSamples = 10

// PauseThresholdMS is the inter-keystroke gap, in milliseconds, beyond
// which an interval is treated as a thinking pause rather than typing
// cadence. Pause intervals are excluded from the interval average and
// variance; the keystrokes themselves stay in the log.
const PauseThresholdMS = 5000

// Metrics are typing-pattern statistics derived from one answer's
// completed keystrokes. They are computed on demand and never stored.
type Metrics struct {
	// AvgIntervalMS is the mean inter-keystroke interval, pauses
	// excluded.
	AvgIntervalMS float64 `json:"average_inter_key_interval_ms"`

	// IntervalVariance is the sample variance of the pause-filtered
	// intervals.
	IntervalVariance float64 `json:"interval_variance"`

	// SpeedCPM is typing speed in characters per minute over the full
	// elapsed span, pauses included.
	SpeedCPM float64 `json:"typing_speed_cpm"`

	// AvgHoldMS is the mean key hold duration over all completed
	// keystrokes, unfiltered.
	AvgHoldMS float64 `json:"average_key_hold_ms"`

	// Count is the total number of completed keystrokes.
	Count int `json:"keystroke_count"`

	// IntervalSamples is how many intervals survived pause filtering.
	IntervalSamples int `json:"interval_samples"`
}

// Analyze computes metrics from the recorded keystrokes. It returns
// false when fewer than MinSamples completed keystrokes exist.
func (r *Recorder) Analyze() (*Metrics, bool) {
	r.mu.Lock()
	strokes := make([]Keystroke, len(r.strokes))
	copy(strokes, r.strokes)
	r.mu.Unlock()

	if len(strokes) < MinSamples {
		return nil, false
	}

	m := &Metrics{Count: len(strokes)}

	// Inter-keystroke intervals, with thinking pauses filtered out of
	// the average and variance.
	var filtered []float64
	for i := 1; i < len(strokes); i++ {
		interval := float64(strokes[i].Recorded - strokes[i-1].Recorded)
		if interval >= PauseThresholdMS {
			continue
		}
		filtered = append(filtered, interval)
	}
	m.IntervalSamples = len(filtered)

	if len(filtered) > 0 {
		var sum float64
		for _, iv := range filtered {
			sum += iv
		}
		m.AvgIntervalMS = sum / float64(len(filtered))

		if len(filtered) > 1 {
			var varSum float64
			for _, iv := range filtered {
				d := iv - m.AvgIntervalMS
				varSum += d * d
			}
			m.IntervalVariance = varSum / float64(len(filtered)-1)
		}
	}

	// Typing speed over the whole span, first press to last release.
	elapsed := float64(strokes[len(strokes)-1].Keyup-strokes[0].Keydown) / 1000.0
	if elapsed > 0 {
		m.SpeedCPM = float64(len(strokes)) / elapsed * 60.0
	}

	// Hold duration includes every keystroke regardless of pause
	// filtering.
	var holdSum float64
	for _, s := range strokes {
		holdSum += float64(s.Duration)
	}
	m.AvgHoldMS = holdSum / float64(len(strokes))

	return m, true
}
