// Package rational contains rational time bases and timestamp rescaling.
package rational

import (
	"fmt"
	"time"
)

// TimeBase is the duration of a clock tick, expressed as Num/Den seconds.
type TimeBase struct {
	Num int64
	Den int64
}

// FromClockRate returns the time base of a clock that ticks clockRate times per second.
func FromClockRate(clockRate uint32) TimeBase {
	return TimeBase{Num: 1, Den: int64(clockRate)}
}

// Valid reports whether both terms are positive.
func (tb TimeBase) Valid() bool {
	return tb.Num > 0 && tb.Den > 0
}

func (tb TimeBase) String() string {
	return fmt.Sprintf("%d/%d", tb.Num, tb.Den)
}

// avoid an int64 overflow and preserve resolution by splitting v into secs and dec.
func multiplyAndDivide(v, m, d int64) int64 {
	secs := v / d
	dec := v % d
	return (secs*m + dec*m/d)
}

// Rescale converts v from one time base to another.
// The result is truncated toward zero, the same way on every call.
func Rescale(v int64, from TimeBase, to TimeBase) int64 {
	if from == to {
		return v
	}
	return multiplyAndDivide(v, from.Num*to.Den, from.Den*to.Num)
}

// ToDuration converts a timestamp into a time.Duration.
func ToDuration(v int64, tb TimeBase) time.Duration {
	return time.Duration(Rescale(v, tb, TimeBase{Num: 1, Den: int64(time.Second)}))
}

// FromDuration converts a time.Duration into a timestamp.
func FromDuration(d time.Duration, tb TimeBase) int64 {
	return Rescale(int64(d), TimeBase{Num: 1, Den: int64(time.Second)}, tb)
}
