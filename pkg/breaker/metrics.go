package breaker

import "time"

const (
	// recentHistoryCap bounds the recent-failure and response-time buffers.
	recentHistoryCap = 100
	// maxErrorLength truncates stored failure messages.
	maxErrorLength = 200
	// recentFailuresShown is how many failure records a status snapshot carries.
	recentFailuresShown = 5
)

// failureRecord is one entry in the recent-failures buffer.
type failureRecord struct {
	Time  time.Time
	Error string
	Kind  string
}

// metrics holds the lifetime counters and bounded recent history of one
// breaker. The counters are monotonic: administrative resets never clear
// them. All fields are guarded by the owning breaker's lock.
type metrics struct {
	totalCalls      int64
	successfulCalls int64
	failedCalls     int64
	rejectedCalls   int64
	slowCalls       int64
	stateChanges    int64

	lastFailureTime time.Time
	lastSuccessTime time.Time
	createdAt       time.Time

	// Newest entries last, oldest evicted once the cap is reached.
	recentFailures      []failureRecord
	recentResponseTimes []int64
}

func newMetrics(now time.Time) *metrics {
	return &metrics{createdAt: now}
}

func (m *metrics) pushFailure(rec failureRecord) {
	m.recentFailures = append(m.recentFailures, rec)
	if len(m.recentFailures) > recentHistoryCap {
		m.recentFailures = m.recentFailures[1:]
	}
}

func (m *metrics) pushResponseTime(durationMS int64) {
	m.recentResponseTimes = append(m.recentResponseTimes, durationMS)
	if len(m.recentResponseTimes) > recentHistoryCap {
		m.recentResponseTimes = m.recentResponseTimes[1:]
	}
}

// avgResponseTime is the mean of the buffered response times in milliseconds,
// 0 when no successful call has been recorded yet.
func (m *metrics) avgResponseTime() float64 {
	if len(m.recentResponseTimes) == 0 {
		return 0
	}
	var sum int64
	for _, ms := range m.recentResponseTimes {
		sum += ms
	}
	return float64(sum) / float64(len(m.recentResponseTimes))
}

// lastFailures returns up to n of the newest failure records in
// chronological order.
func (m *metrics) lastFailures(n int) []FailureEntry {
	start := len(m.recentFailures) - n
	if start < 0 {
		start = 0
	}
	entries := make([]FailureEntry, 0, len(m.recentFailures)-start)
	for _, rec := range m.recentFailures[start:] {
		entries = append(entries, FailureEntry{
			Time:  rec.Time,
			Error: rec.Error,
			Kind:  rec.Kind,
		})
	}
	return entries
}
