package encoder

// Accumulator turns the free-running 16-bit counters exposed by the motor
// board into 64-bit cumulative counts. Counters may wrap any number of times
// as long as a wheel moves less than 32767 counts between polls.
type Accumulator struct {
	doneFirstPoll PerWheel[bool]
	lastRawValues PerWheel[int16]

	accumulator PerWheel[int64]
}

// Update folds a new raw reading for the wheel into its total and returns
// the total. The first reading for a wheel only sets its baseline.
func (a *Accumulator) Update(w Wheel, raw int16) int64 {
	if a.doneFirstPoll[w] {
		delta := raw - a.lastRawValues[w]
		a.accumulator[w] += int64(delta)
	}
	a.lastRawValues[w] = raw
	a.doneFirstPoll[w] = true
	return a.accumulator[w]
}

func (a *Accumulator) Total(w Wheel) int64 {
	return a.accumulator[w]
}

func (a *Accumulator) Zero() {
	a.accumulator = PerWheel[int64]{}
}
