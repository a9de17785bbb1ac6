package dispatch

import "time"

// quietWindow reports whether now falls inside the recipient's quiet-hours
// window ("HH:MM" bounds, possibly wrapping midnight) and, if so, when the
// window ends. Empty or malformed bounds disable quiet hours.
func quietWindow(now time.Time, start, end string) (bool, time.Time) {
	startMin, ok := parseClock(start)
	if !ok {
		return false, time.Time{}
	}
	endMin, ok := parseClock(end)
	if !ok || startMin == endMin {
		return false, time.Time{}
	}

	nowMin := now.Hour()*60 + now.Minute()
	inside := false
	if startMin < endMin {
		inside = nowMin >= startMin && nowMin < endMin
	} else {
		// Window wraps midnight, e.g. 22:00-07:00.
		inside = nowMin >= startMin || nowMin < endMin
	}
	if !inside {
		return false, time.Time{}
	}

	windowEnd := time.Date(now.Year(), now.Month(), now.Day(), endMin/60, endMin%60, 0, 0, now.Location())
	if !windowEnd.After(now) {
		windowEnd = windowEnd.AddDate(0, 0, 1)
	}
	return true, windowEnd
}

func parseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' ||
		s[3] < '0' || s[3] > '9' || s[4] < '0' || s[4] > '9' ||
		h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
