package encoding

import (
	"bytes"
	"math"
)

// Statistics summarizes a buffer of fixed-width values for encoder
// selection.
type Statistics struct {
	NumValues int64
	NumRuns   int64
	// BytePositionEntropy is the Shannon entropy of each byte position over
	// a uniform sample, in bits.
	BytePositionEntropy []float64
}

// ComputeStatistics scans data as width-byte values.
func ComputeStatistics(data []byte, width int) *Statistics {
	stats := &Statistics{}
	if width <= 0 || len(data) < width {
		return stats
	}
	n := len(data) / width
	stats.NumValues = int64(n)
	stats.NumRuns = 1
	for i := 1; i < n; i++ {
		if !bytes.Equal(data[(i-1)*width:i*width], data[i*width:(i+1)*width]) {
			stats.NumRuns++
		}
	}
	stats.BytePositionEntropy = computeBytePositionEntropy(data, width)
	return stats
}

// RunRatio is runs per value; low values favor run-length encoding.
func (s *Statistics) RunRatio() float64 {
	if s.NumValues == 0 {
		return 1
	}
	return float64(s.NumRuns) / float64(s.NumValues)
}

// AverageEntropy returns the average entropy across all byte positions.
func (s *Statistics) AverageEntropy() float64 {
	if len(s.BytePositionEntropy) == 0 {
		return 8
	}
	sum := 0.0
	for _, e := range s.BytePositionEntropy {
		sum += e
	}
	return sum / float64(len(s.BytePositionEntropy))
}

// computeBytePositionEntropy calculates Shannon entropy for each byte
// position over a uniform sample of values.
func computeBytePositionEntropy(data []byte, bytesPerValue int) []float64 {
	const sampleSize = 64

	numValues := len(data) / bytesPerValue
	if numValues == 0 {
		return nil
	}
	sampleIndices := uniformSampleIndices(numValues, sampleSize)
	total := float64(len(sampleIndices))

	entropies := make([]float64, bytesPerValue)
	for pos := 0; pos < bytesPerValue; pos++ {
		var byteCounts [256]int
		for _, idx := range sampleIndices {
			byteCounts[data[idx*bytesPerValue+pos]]++
		}
		entropy := 0.0
		for _, count := range byteCounts {
			if count > 0 {
				p := float64(count) / total
				entropy -= p * math.Log2(p)
			}
		}
		entropies[pos] = entropy
	}
	return entropies
}

// uniformSampleIndices generates uniformly distributed sample indices
func uniformSampleIndices(numValues, sampleSize int) []int {
	if numValues <= sampleSize {
		indices := make([]int, numValues)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	indices := make([]int, sampleSize)
	step := float64(numValues) / float64(sampleSize)
	for i := 0; i < sampleSize; i++ {
		indices[i] = int(float64(i) * step)
	}
	return indices
}
