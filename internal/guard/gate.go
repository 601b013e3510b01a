package guard

import (
	"fmt"
	"strings"

	"github.com/ccastromar/sos-store-ops-system/internal/config"
)

// Defaults cover the integrations a store owner can least afford to lose.
// Policy YAML extends these lists; it never shrinks them.
var defaultDangerousVerbs = []string{
	"delete",
	"remove",
	"uninstall",
	"deactivate",
	"disable",
	"drop",
	"wipe",
}

var defaultProtectedTargets = []string{
	"woocommerce",
	"payment",
	"stripe",
	"paypal",
	"yoast",
	"seo",
	"checkout",
	"backup",
}

// Decision is the outcome of one gate check.
type Decision struct {
	Allowed bool
	Reason  string // empty when allowed
	Verb    string // matched dangerous verb, for audit metadata
	Target  string // matched protected target
}

// Gate is a coarse lexical filter: it denies when the lower-cased request
// contains both a dangerous-verb substring and a protected-target substring.
//
// This is NOT semantic analysis. Phrasing that avoids the listed substrings
// slips through (false negative) and benign text containing both substrings
// is denied (false positive): "delete old posts and keep woocommerce"
// is denied even though nothing touches woocommerce. Both trade-offs are
// accepted and pinned by tests.
type Gate struct {
	verbs   []string
	targets []string
}

func New(pol config.Policy) *Gate {
	g := &Gate{
		verbs:   append([]string{}, defaultDangerousVerbs...),
		targets: append([]string{}, defaultProtectedTargets...),
	}
	for _, v := range pol.DangerousVerbs {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			g.verbs = append(g.verbs, v)
		}
	}
	for _, t := range pol.ProtectedTargets {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			g.targets = append(g.targets, t)
		}
	}
	return g
}

// Check is pure: no I/O, no side effects.
func (g *Gate) Check(requestText string) Decision {
	lowered := strings.ToLower(requestText)

	var verb string
	for _, v := range g.verbs {
		if strings.Contains(lowered, v) {
			verb = v
			break
		}
	}
	if verb == "" {
		return Decision{Allowed: true}
	}

	for _, t := range g.targets {
		if strings.Contains(lowered, t) {
			return Decision{
				Allowed: false,
				Verb:    verb,
				Target:  t,
				Reason: fmt.Sprintf(
					"request combines destructive action %q with protected integration %q and requires manual confirmation",
					verb, t,
				),
			}
		}
	}

	return Decision{Allowed: true}
}
