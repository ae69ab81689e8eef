package common

// AssertTrue panics when an internal invariant does not hold.
func AssertTrue(ok bool, msg ...string) {
	if ok {
		return
	}
	if len(msg) > 0 {
		panic("assertion failed: " + msg[0])
	}
	panic("assertion failed")
}
