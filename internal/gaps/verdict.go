package gaps

import "github.com/sbenjam1n/bizassess/internal/assess"

// Policy holds the critical-gap thresholds for founder notification.
type Policy struct {
	NotifyThreshold   int `env:"NOTIFY_THRESHOLD" envDefault:"3"`
	EscalateThreshold int `env:"ESCALATE_THRESHOLD" envDefault:"6"`
}

// DefaultPolicy notifies at three open critical gaps and escalates at six.
func DefaultPolicy() Policy {
	return Policy{NotifyThreshold: 3, EscalateThreshold: 6}
}

// Evaluate counts open critical gaps against the policy. It depends only on
// the gap list, so repeated calls with the same gaps give the same verdict.
func Evaluate(gaps []assess.Gap, policy Policy) assess.Verdict {
	v := assess.Verdict{UrgencyLevel: assess.UrgencyNone}
	seen := make(map[assess.DomainID]bool)
	for _, g := range gaps {
		if g.Category != assess.GapCritical || !g.Open() {
			continue
		}
		v.CriticalCount++
		v.GapIDs = append(v.GapIDs, g.GapID)
		if g.Domain != "" {
			seen[g.Domain] = true
		}
	}
	for _, d := range assess.AllDomains {
		if seen[d] {
			v.Domains = append(v.Domains, d)
		}
	}

	switch {
	case v.CriticalCount >= policy.EscalateThreshold:
		v.ShouldNotify = true
		v.UrgencyLevel = assess.UrgencyCritical
	case v.CriticalCount >= policy.NotifyThreshold:
		v.ShouldNotify = true
		v.UrgencyLevel = assess.UrgencyHigh
	case v.CriticalCount > 0:
		v.UrgencyLevel = assess.UrgencyLow
	}
	return v
}
