package actions

import "sort"

// Need names a context value an action cannot run without.
type Need string

const (
	NeedJWT      Need = "jwt"
	NeedDomain   Need = "domain"
	NeedDomainID Need = "domainId"
)

// Service selects which upstream API base an action calls.
type Service string

const (
	ServiceV1 Service = "v1"
	ServiceV2 Service = "v2"
)

// Descriptor is one entry of the read-only action catalog. Only
// endpoints confirmed against the live API are listed.
type Descriptor struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Service  Service  `json:"service"`
	Method   string   `json:"method"`
	Path     string   `json:"path"`
	Needs    []Need   `json:"needs"`
	Examples []string `json:"examples"`
}

var registry = map[string]Descriptor{
	"report_overview_v1": {
		ID:      "report_overview_v1",
		Title:   "Report overview",
		Service: ServiceV1,
		Method:  "GET",
		Path:    "/api/v1/report/overview",
		Needs:   []Need{NeedJWT},
		Examples: []string{
			"overview for rabbitloader.com 2025-07-30 to 2025-08-27",
			"overview last 30 days",
		},
	},
	"canonical_urls_v1": {
		ID:      "canonical_urls_v1",
		Title:   "Canonical URLs report",
		Service: ServiceV1,
		Method:  "GET",
		Path:    "/api/v1/report/canonical_urls",
		Needs:   []Need{NeedJWT},
		Examples: []string{
			"show canonical urls",
			"canonical urls report",
			"url optimization status",
		},
	},
	"subscription_v2": {
		ID:      "subscription_v2",
		Title:   "Subscription details",
		Service: ServiceV2,
		Method:  "GET",
		Path:    "/billing/subscription",
		Needs:   []Need{NeedJWT},
		Examples: []string{
			"show subscription",
			"billing details",
			"plan information",
		},
	},
	"profile_v2": {
		ID:      "profile_v2",
		Title:   "User profile",
		Service: ServiceV2,
		Method:  "GET",
		Path:    "/user/v2/this-profile",
		Needs:   []Need{NeedJWT},
		Examples: []string{
			"show profile",
			"my account",
			"user details",
		},
	},
	"pageviews_v2": {
		ID:      "pageviews_v2",
		Title:   "Pageviews report",
		Service: ServiceV2,
		Method:  "GET",
		Path:    "/domain/pageview/{domainId}",
		Needs:   []Need{NeedJWT, NeedDomainID},
		Examples: []string{
			"pageviews last 30 days",
			"traffic report",
			"daily pageviews",
		},
	},
	"domain_info_v2": {
		ID:      "domain_info_v2",
		Title:   "Domain information",
		Service: ServiceV2,
		Method:  "GET",
		Path:    "/url/domain/{domainId}/info",
		Needs:   []Need{NeedJWT, NeedDomainID},
		Examples: []string{
			"domain info",
			"site performance",
			"optimization stats",
		},
	},
	"plan_usage_v2": {
		ID:      "plan_usage_v2",
		Title:   "Plan usage",
		Service: ServiceV2,
		Method:  "GET",
		Path:    "/domain/plan_usage/{domainId}",
		Needs:   []Need{NeedJWT, NeedDomainID},
		Examples: []string{
			"plan usage",
			"quota status",
			"usage limits",
		},
	},
	"css_report_v1": {
		ID:      "css_report_v1",
		Title:   "CSS optimization report",
		Service: ServiceV1,
		Method:  "GET",
		Path:    "/api/v1/report/css",
		Needs:   []Need{NeedJWT},
		Examples: []string{
			"css report",
			"css optimization",
			"stylesheet stats",
		},
	},
	"css_urls_v1": {
		ID:      "css_urls_v1",
		Title:   "CSS by URLs report",
		Service: ServiceV1,
		Method:  "GET",
		Path:    "/api/v1/report/css_urls",
		Needs:   []Need{NeedJWT},
		Examples: []string{
			"css by urls",
			"css breakdown",
			"url css sizes",
		},
	},
	"page_rules_v2": {
		ID:      "page_rules_v2",
		Title:   "Current page rules",
		Service: ServiceV2,
		Method:  "GET",
		Path:    "/url/page-rule/{domainId}",
		Needs:   []Need{NeedJWT, NeedDomainID},
		Examples: []string{
			"page rules",
			"optimization rules",
			"current rules",
		},
	},
	"team_members_v2": {
		ID:      "team_members_v2",
		Title:   "Team members",
		Service: ServiceV2,
		Method:  "GET",
		Path:    "/domain/v2/{domainId}/team",
		Needs:   []Need{NeedJWT, NeedDomainID},
		Examples: []string{
			"team members",
			"user access",
			"domain team",
		},
	},
}

// Lookup returns the descriptor for id, or false when unknown.
func Lookup(id string) (Descriptor, bool) {
	d, ok := registry[id]
	return d, ok
}

// Known reports whether id is a registered action.
func Known(id string) bool {
	_, ok := registry[id]
	return ok
}

// List returns all descriptors sorted by id, for the operator catalog
// endpoint.
func List() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d Descriptor) requires(n Need) bool {
	for _, need := range d.Needs {
		if need == n {
			return true
		}
	}
	return false
}
