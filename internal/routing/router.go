package routing

import "regexp"

// Route is the coarse destination for a user message.
type Route string

const (
	RouteAction Route = "ACTION"
	RouteQNA    Route = "QNA"
)

// Decision explains why a route was chosen. It is surfaced verbatim in
// response traces.
type Decision string

const (
	DecisionPolicyBlock Decision = "policy_block"
	DecisionAPIHint     Decision = "api_hint"
	DecisionNoHint      Decision = "no_api_hint"
	DecisionUnknownAPI  Decision = "unknown_action"
)

// Proposal names the action the router believes the message maps to.
type Proposal struct {
	ActionID string `json:"actionId"`
}

// apiHint fires when the message plausibly concerns account or report
// data that an upstream API can answer.
var apiHint = regexp.MustCompile(`(?i)\b(plan|usage|overview|pageviews|canonical|subscription|profile|team|domain|css|rules)\b`)

type actionRule struct {
	pattern  *regexp.Regexp
	actionID string
}

// actionRules map messages to action ids. Order matters: the first
// matching rule wins, so compound phrases ("plan usage") sit above
// their component words and "css urls" above plain "css".
var actionRules = []actionRule{
	{regexp.MustCompile(`(?i)\b(plan|usage)\b`), "plan_usage_v2"},
	{regexp.MustCompile(`(?i)\boverview\b`), "report_overview_v1"},
	{regexp.MustCompile(`(?i)\bpageviews?\b`), "pageviews_v2"},
	{regexp.MustCompile(`(?i)\bcanonical\b`), "canonical_urls_v1"},
	{regexp.MustCompile(`(?i)\bsubscription\b`), "subscription_v2"},
	{regexp.MustCompile(`(?i)\bprofile\b`), "profile_v2"},
	{regexp.MustCompile(`(?i)\bteam\b`), "team_members_v2"},
	{regexp.MustCompile(`(?i)\bdomain\b`), "domain_info_v2"},
	{regexp.MustCompile(`(?i)\bcss\b.*\burls?\b`), "css_urls_v1"},
	{regexp.MustCompile(`(?i)\bcss\b`), "css_report_v1"},
	{regexp.MustCompile(`(?i)\brules\b`), "page_rules_v2"},
}

// RouteResult is the outcome of classifying one message.
type RouteResult struct {
	Route    Route
	Decision Decision
	Proposal *Proposal
	Note     string
}

// Classify maps a user message to either a concrete API action or the
// knowledge-answer path. The policy gate runs first and cannot be
// overridden by keyword matches.
func Classify(message string, knownAction func(id string) bool) RouteResult {
	if IsDestructive(message) {
		return RouteResult{Route: RouteQNA, Decision: DecisionPolicyBlock, Note: BlockedActionNote}
	}
	if !apiHint.MatchString(message) {
		return RouteResult{Route: RouteQNA, Decision: DecisionNoHint}
	}
	for _, rule := range actionRules {
		if rule.pattern.MatchString(message) {
			if knownAction != nil && !knownAction(rule.actionID) {
				return RouteResult{Route: RouteQNA, Decision: DecisionUnknownAPI}
			}
			return RouteResult{Route: RouteAction, Decision: DecisionAPIHint, Proposal: &Proposal{ActionID: rule.actionID}}
		}
	}
	return RouteResult{Route: RouteQNA, Decision: DecisionNoHint}
}
