package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PowerSpectrum returns the one-sided power |X(f)|²/n of data sampled
// every dt seconds, with the frequency of each bin in Hz.
func PowerSpectrum(data []float64, dt float64) (freqs, power []float64) {
	n := len(data)
	if n < 2 || dt <= 0 {
		return nil, nil
	}
	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, data)

	freqs = make([]float64, len(coeff))
	power = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		power[i] = a * a / float64(n)
	}
	return freqs, power
}

// DominantFrequency is the non-zero frequency bin with the most power,
// and that power. A constant signal returns zeros.
func DominantFrequency(data []float64, dt float64) (freq, power float64) {
	freqs, pw := PowerSpectrum(data, dt)
	for i := 1; i < len(pw); i++ {
		if pw[i] > power {
			freq, power = freqs[i], pw[i]
		}
	}
	return freq, power
}
