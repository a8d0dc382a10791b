package places

import "strings"

// parseWeekdayText converts the API's "Monday: 7:30 AM – 6:00 PM" lines
// into a day-keyed hours map. Unparseable lines are dropped.
func parseWeekdayText(lines []string) map[string]string {
	if len(lines) == 0 {
		return nil
	}
	hours := make(map[string]string, len(lines))
	for _, line := range lines {
		day, times, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		day = strings.ToLower(strings.TrimSpace(day))
		times = strings.TrimSpace(times)
		if day == "" || times == "" {
			continue
		}
		hours[day] = times
	}
	if len(hours) == 0 {
		return nil
	}
	return hours
}
