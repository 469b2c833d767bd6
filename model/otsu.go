package model

import (
	"fmt"

	"gocv.io/x/gocv"
)

// otsuBins is the histogram resolution used for threshold selection
const otsuBins = 256

// OtsuThreshold selects a binarization threshold for a CV32F score map in
// [0,1] by maximising the between class variance of its histogram.  It
// adapts to each scene so no fixed threshold needs tuning
func OtsuThreshold(score gocv.Mat) (float32, error) {

	if score.Type() != gocv.MatTypeCV32F {
		return 0, fmt.Errorf("score map must be CV32F, got %d", score.Type())
	}

	data, err := score.DataPtrFloat32()

	if err != nil {
		return 0, fmt.Errorf("error getting data pointer to Mat: %w", err)
	}

	hist := make([]int, otsuBins)

	for _, v := range data {

		bin := int(v * float32(otsuBins-1))

		if bin < 0 {
			bin = 0
		} else if bin >= otsuBins {
			bin = otsuBins - 1
		}

		hist[bin]++
	}

	bin := otsuFromHist(hist)

	return float32(bin) / float32(otsuBins-1), nil
}

// otsuFromHist returns the histogram bin maximising between class
// variance.  An empty histogram yields the middle bin
func otsuFromHist(hist []int) int {

	bins := len(hist)
	total := 0

	for _, n := range hist {
		total += n
	}

	if total == 0 {
		return bins / 2
	}

	sum := 0.0

	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	sumB := 0.0
	wB := 0
	maxVariance := 0.0
	threshold := bins / 2

	for i, n := range hist {

		wB += n

		if wB == 0 {
			continue
		}

		wF := total - wB

		if wF == 0 {
			break
		}

		sumB += float64(i) * float64(n)

		meanB := sumB / float64(wB)
		meanF := (sum - sumB) / float64(wF)

		diff := meanB - meanF
		variance := float64(wB) * float64(wF) * diff * diff

		if variance > maxVariance {
			maxVariance = variance
			threshold = i
		}
	}

	return threshold
}
