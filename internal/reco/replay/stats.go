package replay

import "gonum.org/v1/gonum/stat"

// meanStdDev returns the mean and unbiased standard deviation of xs. The
// deviation is 0 for fewer than two samples.
func meanStdDev(xs []float64) (mean, std float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}
