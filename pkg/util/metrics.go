package util

import "time"

// TimeOperationMicroseconds runs op and returns how long it took.
func TimeOperationMicroseconds(op func()) int64 {
	start := time.Now()
	op()
	return time.Since(start).Microseconds()
}

// BoolField maps a flag onto the 0/1 integer fields influx dashboards sum.
func BoolField(b bool) int {
	if b {
		return 1
	}
	return 0
}
