package feed

import "iter"

// windowSteps are the widening offsets, in days, added to the base window.
var windowSteps = [...]int{0, 3, 7, 14, 21, 28}

// Windows yields the window ladder for base: base, base+3, base+7, base+14,
// base+21 and base+28, each capped at MaxTimeWindowDays, then
// MaxTimeWindowDays itself. Duplicates are yielded once.
func Windows(base int) iter.Seq[int] {
	base = min(max(base, MinTimeWindowDays), MaxTimeWindowDays)
	return func(yield func(int) bool) {
		last := 0
		for _, step := range windowSteps {
			days := min(base+step, MaxTimeWindowDays)
			if days == last {
				continue
			}
			last = days
			if !yield(days) {
				return
			}
		}
		if last != MaxTimeWindowDays {
			yield(MaxTimeWindowDays)
		}
	}
}
