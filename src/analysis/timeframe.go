package analysis

import (
	"strings"
	"time"

	"pair-analytics/src/helpers"
)

type timeframeAlias struct {
	canonical string
	width     time.Duration
	aliases   []string
}

// timeframeTable is ordered from the finest to the coarsest bucket.
var timeframeTable = []timeframeAlias{
	{"1 Second", time.Second, []string{"1S", "1s", "1sec"}},
	{"1 Minute", time.Minute, []string{"1min", "1T", "1m"}},
	{"5 Minutes", 5 * time.Minute, []string{"5min", "5T", "5m"}},
	{"15 Minutes", 15 * time.Minute, []string{"15min", "15m"}},
	{"1 Hour", time.Hour, []string{"1h", "1H"}},
	{"4 Hours", 4 * time.Hour, []string{"4h", "4H"}},
	{"1 Day", 24 * time.Hour, []string{"1d", "1D"}},
}

var (
	exactTimeframes = make(map[string]int)
	foldTimeframes  = make(map[string]int)
)

func init() {
	for i, tf := range timeframeTable {
		for _, label := range append([]string{tf.canonical}, tf.aliases...) {
			exactTimeframes[label] = i
			if _, taken := foldTimeframes[strings.ToLower(label)]; !taken {
				foldTimeframes[strings.ToLower(label)] = i
			}
		}
	}
}

// -----------------------------------------------------------------------------

// ParseTimeframe normalises a human timeframe label to its bucket width.
// Labels are matched exactly first ("1m" is a minute, never a month), then
// case-insensitively.
func ParseTimeframe(label string) (time.Duration, error) {
	label = strings.TrimSpace(label)
	if i, ok := exactTimeframes[label]; ok {
		return timeframeTable[i].width, nil
	}
	if i, ok := foldTimeframes[strings.ToLower(label)]; ok {
		return timeframeTable[i].width, nil
	}
	return 0, helpers.NewError(helpers.KindInvalidTimeframe, "resample",
		"unrecognized timeframe %q", label)
}

// -----------------------------------------------------------------------------

// CanonicalTimeframe returns the display label for a timeframe alias.
func CanonicalTimeframe(label string) (string, error) {
	width, err := ParseTimeframe(label)
	if err != nil {
		return "", err
	}
	for _, tf := range timeframeTable {
		if tf.width == width {
			return tf.canonical, nil
		}
	}
	return "", helpers.NewError(helpers.KindInvalidTimeframe, "resample", "no label for %s", width)
}

// -----------------------------------------------------------------------------

// Timeframes lists the canonical labels, finest first.
func Timeframes() []string {
	out := make([]string, len(timeframeTable))
	for i, tf := range timeframeTable {
		out[i] = tf.canonical
	}
	return out
}
