package claim

import "time"

// Urgency is derived, never stored: every field below is a pure function of
// (responseDeadline, now), so readers can never observe a stale value.

func Remaining(deadline, now time.Time) time.Duration {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func HoursRemaining(deadline, now time.Time) int {
	return int(Remaining(deadline, now) / time.Hour)
}

func MinutesRemaining(deadline, now time.Time) int {
	return int(Remaining(deadline, now) / time.Minute)
}

func Expired(deadline, now time.Time) bool {
	return !now.Before(deadline)
}

func IsUrgent(deadline, now time.Time, threshold time.Duration) bool {
	if Expired(deadline, now) {
		return false
	}
	return Remaining(deadline, now) <= threshold
}

// Derived is the read-time projection attached to API responses.
type Derived struct {
	HoursRemaining   int  `json:"hoursRemaining"`
	MinutesRemaining int  `json:"minutesRemaining"`
	IsUrgent         bool `json:"isUrgent"`
	DeadlineExpired  bool `json:"deadlineExpired"`
}

func DeriveUrgency(c *Claim, now time.Time, threshold time.Duration) Derived {
	expired := !c.HasResponded && !c.Resolved() && Expired(c.ResponseDeadline, now)
	return Derived{
		HoursRemaining:   HoursRemaining(c.ResponseDeadline, now),
		MinutesRemaining: MinutesRemaining(c.ResponseDeadline, now),
		IsUrgent:         c.NeedsResponse && !c.HasResponded && IsUrgent(c.ResponseDeadline, now, threshold),
		DeadlineExpired:  expired || c.DeadlineExpired,
	}
}
