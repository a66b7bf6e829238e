package ratelimit

import (
	"strings"
	"time"

	"github.com/checkvibe/gatekeeper/internal/config"
)

// Limits is the quota applied to one request for a plan tier.
type Limits struct {
	Window  time.Duration
	PerKey  int
	PerUser int
	PerIP   int
}

type Policy struct {
	plans *config.PlansHolder
}

func NewPolicy(plans *config.PlansHolder) *Policy {
	if plans == nil {
		plans = config.NewStaticPlansHolder(config.DefaultPlansConfig())
	}
	return &Policy{plans: plans}
}

// Limits resolves plan to its quota; unknown or empty plans get the default tier.
func (p *Policy) Limits(plan string) Limits {
	cfg := p.plans.Get()
	tier, ok := cfg.Plans[strings.ToLower(strings.TrimSpace(plan))]
	if !ok {
		tier = cfg.Plans[config.DefaultPlan]
	}
	return Limits{
		Window:  time.Duration(cfg.WindowSeconds) * time.Second,
		PerKey:  tier.PerKey,
		PerUser: tier.PerUser,
		PerIP:   tier.PerIP,
	}
}
