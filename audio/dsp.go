package audio

import "math"

// ApplyGain scales samples by gainDB decibels, clamping to the PCM range.
// A gain of 0 returns the input unchanged.
func ApplyGain(samples []int16, gainDB float64) []int16 {
	if gainDB == 0 {
		return samples
	}
	g := math.Pow(10, gainDB/20)
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * g)
		if v > pcmMax {
			v = pcmMax
		} else if v < pcmMin {
			v = pcmMin
		}
		out[i] = int16(v)
	}
	return out
}

// RMS returns the root-mean-square amplitude of samples on the raw 16-bit
// scale.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// IsSilent reports whether samples are mostly silence: RMS below
// thresholdDB relative to full scale. Empty or all-zero input is silent.
func IsSilent(samples []int16, thresholdDB float64) bool {
	rms := RMS(samples)
	if rms == 0 {
		return true
	}
	return 20*math.Log10(rms/32768) < thresholdDB
}

// Mix blends two sample streams, truncating to the shorter one and
// clamping the result. ratio is the weight of b; 0.5 is an even mix.
func Mix(a, b []int16, ratio float64) []int16 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		v := float64(a[i])*(1-ratio) + float64(b[i])*ratio
		if v > pcmMax {
			v = pcmMax
		} else if v < pcmMin {
			v = pcmMin
		}
		out[i] = int16(v)
	}
	return out
}
