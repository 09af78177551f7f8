package blocks

// sampleCapacity returns the arena capacity, in raw samples, every
// audio-typed port in the diagram needs: the run's total input length
// plus one hop of slack for the frame-count rounding synthesis and
// audio_output perform, so Initialize can size every buffer once and
// Process never reallocates (spec.md §4.C).
func sampleCapacity(numInputSamples, hop int) int {
	n := numInputSamples + hop
	if n < 1 {
		n = 1
	}
	return n
}

// frameCapacity returns the arena capacity, in analysis frames, every
// F0/Spectrum/Aperiodicity port needs, matching the periodicity
// invariant frame_count = floor(samples/hop) + 1 that
// audiocore.AnalysisFrameCount computes at process time.
func frameCapacity(numInputSamples, hop int) int {
	if hop <= 0 {
		hop = 1
	}
	return numInputSamples/hop + 1
}
