// Package milestone composes the human-readable member-count message.
package milestone

import "fmt"

// DefaultStep is used when a non-positive step is given.
const DefaultStep int64 = 100

// Progress returns the largest multiple of step not above count, the next
// multiple, and how many members remain until it. remaining is always in
// [1, step]: a count sitting exactly on a milestone points at the next one.
func Progress(count, step int64) (reached, next, remaining int64) {
	if step <= 0 {
		step = DefaultStep
	}
	reached = floorDiv(count, step) * step
	next = reached + step
	return reached, next, next - count
}

// Compose renders the notification text for count.
func Compose(count, step int64) string {
	_, next, remaining := Progress(count, step)
	msg := fmt.Sprintf("We're now on %d members!", count)
	if remaining > 0 {
		msg += fmt.Sprintf(" Only %d until the next milestone of %d members!", remaining, next)
	}
	return msg
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
