package ui

import "slices"

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders samples as exactly width block characters, scaled to
// the largest visible sample. Short input is left-padded with the lowest
// block; long input keeps its newest width samples.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	out := make([]rune, width)
	for i := range out {
		out[i] = sparkBlocks[0]
	}
	if len(data) == 0 {
		return string(out)
	}

	peak := slices.Max(data)
	if peak <= 0 {
		return string(out)
	}
	top := len(sparkBlocks) - 1
	offset := width - len(data)
	for i, v := range data {
		if v <= 0 {
			continue
		}
		out[offset+i] = sparkBlocks[min(int(v/peak*float64(top)), top)]
	}
	return string(out)
}
