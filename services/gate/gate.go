// Package gate implements the developer challenge in front of the developer
// admin login. The answers are configuration, not secrets, and the gate is
// meant for demo deployments only.
package gate

import (
	"context"
	"strings"
	"time"

	"github.com/edulytics/portal/services"
)

// State of a submitted challenge
type State string

const (
	StateSuccess State = "success"
	StateDenied  State = "denied"
)

const (
	SuccessTarget = "/admin/developer/login"
	DeniedTarget  = "/"

	DefaultSuccessDelay = 3 * time.Second
	DefaultDeniedDelay  = 2 * time.Second
)

// Config holds the expected answers and the navigation delays
type Config struct {
	NameAnswer   string
	PlaceAnswer  string
	SuccessDelay time.Duration
	DeniedDelay  time.Duration
}

// Outcome is the result of a submission
type Outcome struct {
	State  State         `json:"state"`
	Target string        `json:"target"`
	Delay  time.Duration `json:"-"`
	Error  string        `json:"error,omitempty"`
}

// Gate checks challenge answers
type Gate struct {
	name         string
	place        string
	successDelay time.Duration
	deniedDelay  time.Duration
}

// New creates a gate. Zero delays fall back to the defaults.
func New(cfg Config) *Gate {
	g := &Gate{
		name:         normalize(cfg.NameAnswer),
		place:        normalize(cfg.PlaceAnswer),
		successDelay: cfg.SuccessDelay,
		deniedDelay:  cfg.DeniedDelay,
	}
	if g.successDelay <= 0 {
		g.successDelay = DefaultSuccessDelay
	}
	if g.deniedDelay <= 0 {
		g.deniedDelay = DefaultDeniedDelay
	}
	return g
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Submit compares both answers after trimming and case folding
func (g *Gate) Submit(name, place string) Outcome {
	if g.name != "" && normalize(name) == g.name && normalize(place) == g.place {
		return Outcome{State: StateSuccess, Target: SuccessTarget, Delay: g.successDelay}
	}
	return Outcome{
		State:  StateDenied,
		Target: DeniedTarget,
		Delay:  g.deniedDelay,
		Error:  services.ErrIncorrectGateAnswer.Message,
	}
}

// Await blocks for the outcome's delay and returns the navigation target
func Await(ctx context.Context, o Outcome) (string, error) {
	timer := time.NewTimer(o.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return o.Target, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
