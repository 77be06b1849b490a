package account

import (
	"sync"
	"time"
)

// loginLimiter enforces the per-source-address minimum login spacing of
// spec.md §4.3/§5: "Login rate limit: per-source-address minimum
// inter-attempt spacing." Grounded on the teacher's flood-protection
// config surface (FastConnectionLimit/NormalConnectionTime in
// config.LoginServer) generalized to a single configurable interval.
type loginLimiter struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	minGap   time.Duration
}

func newLoginLimiter(minGap time.Duration) *loginLimiter {
	return &loginLimiter{lastSeen: make(map[string]time.Time), minGap: minGap}
}

// Allow reports whether ip may attempt a login now, recording the attempt
// either way so repeated rapid attempts keep getting rejected rather than
// resetting the clock.
func (l *loginLimiter) Allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.lastSeen[ip]
	l.lastSeen[ip] = now
	if !ok {
		return true
	}
	return now.Sub(last) >= l.minGap
}
