package actions

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Context carries the caller identity and scope for one chat turn.
// Field values from the request body win over anything derived from
// headers.
type Context struct {
	JWT       string `json:"jwt,omitempty"`
	Domain    string `json:"domain,omitempty"`
	DomainID  string `json:"domainId,omitempty"`
	GetParams string `json:"get_params,omitempty"`
}

var (
	isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	// Explicit ranges: two ISO dates joined by a connector, or just two
	// ISO dates in order. Either form is taken verbatim and overrides
	// relative keywords in the same message.
	explicitRange  = regexp.MustCompile(`(?i)(\d{4}-\d{2}-\d{2}).*?(?:to|-|→|until|till).*?(\d{4}-\d{2}-\d{2})`)
	twoISODates    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}).*?(\d{4}-\d{2}-\d{2})`)
	last7Days      = regexp.MustCompile(`last\s*7\s*days|\bweek\b`)
	last30Days     = regexp.MustCompile(`last\s*30\s*days|\bmonth\b`)
	last90Days     = regexp.MustCompile(`last\s*90\s*days|\bquarter\b`)
	domainPattern  = regexp.MustCompile(`(?i)\b([a-z0-9][a-z0-9\-\.]+\.[a-z]{2,})\b`)
	getParamsToken = regexp.MustCompile(`get_params=([A-Za-z0-9_%\-]+)`)
)

// DateRange is an inclusive ISO date window.
type DateRange struct {
	Start string
	End   string
}

// ParseDateRange extracts a date window from free text. Explicit ISO
// pairs win; otherwise relative keywords apply, defaulting to a 30-day
// lookback ending at now.
func ParseDateRange(text string, now time.Time) DateRange {
	text = strings.ToLower(text)

	if m := explicitRange.FindStringSubmatch(text); m != nil {
		return DateRange{Start: m[1], End: m[2]}
	}
	if m := twoISODates.FindStringSubmatch(text); m != nil {
		return DateRange{Start: m[1], End: m[2]}
	}

	end := now
	var start time.Time
	switch {
	case strings.Contains(text, "yesterday"):
		end = end.AddDate(0, 0, -1)
		start = end
	case last7Days.MatchString(text):
		start = end.AddDate(0, 0, -7)
	case last30Days.MatchString(text):
		start = end.AddDate(0, 0, -30)
	case last90Days.MatchString(text):
		start = end.AddDate(0, 0, -90)
	default:
		start = end.AddDate(0, 0, -30)
	}

	const iso = "2006-01-02"
	return DateRange{Start: start.Format(iso), End: end.Format(iso)}
}

// ParseDomain extracts the first hostname-looking token, lowercased.
func ParseDomain(text string) string {
	m := domainPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// Resolver fills action parameters from the message and the caller
// context. Now is injectable so relative date windows are testable.
type Resolver struct {
	SubscriptionGetParams string
	PlanUsageGetParams    string
	Now                   func() time.Time
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve produces the query parameters for one action. It never
// mutates ctx.
func (r *Resolver) Resolve(meta Descriptor, userMsg string, ctx Context) (url.Values, error) {
	out := url.Values{}

	switch meta.ID {
	case "report_overview_v1":
		domain := ctx.Domain
		if domain == "" {
			domain = ParseDomain(userMsg)
		}
		if domain != "" {
			out.Set("domain", domain)
		}
		dr := ParseDateRange(userMsg, r.now())
		if isoDate.MatchString(dr.Start) && isoDate.MatchString(dr.End) {
			out.Set("start_date", dr.Start)
			out.Set("end_date", dr.End)
		}

	case "canonical_urls_v1":
		domain := ctx.Domain
		if domain == "" {
			domain = ParseDomain(userMsg)
		}
		if domain == "" {
			return nil, &ValidationError{
				Missing: []string{"domain"},
				Hint:    `specify in context or message (e.g., "canonical urls for example.com")`,
			}
		}
		out.Set("domain", domain)
		setDataTableDefaults(out, "desc", []dataTableColumn{
			{data: "url", searchable: true, orderable: false},
			{data: "create_time", searchable: true, orderable: true},
			{data: "update_time", searchable: true, orderable: true},
		})

	case "subscription_v2":
		gp := ctx.GetParams
		if gp == "" {
			gp = r.SubscriptionGetParams
		}
		if m := getParamsToken.FindStringSubmatch(userMsg); m != nil {
			gp = m[1]
		}
		out.Set("get_params", gp)

	case "profile_v2":
		out.Set("get_params", "")

	case "pageviews_v2":
		dr := ParseDateRange(userMsg, r.now())
		out.Set("start_date", dr.Start)
		out.Set("end_date", dr.End)

	case "plan_usage_v2":
		gp := ctx.GetParams
		if gp == "" {
			gp = r.PlanUsageGetParams
		}
		out.Set("get_params", gp)

	case "css_report_v1":
		if ctx.Domain != "" {
			out.Set("domain", ctx.Domain)
		}

	case "css_urls_v1":
		domain := ctx.Domain
		if domain == "" {
			domain = ParseDomain(userMsg)
		}
		if domain == "" {
			return nil, &ValidationError{
				Missing: []string{"domain"},
				Hint:    `specify in context or message (e.g., "css urls for example.com")`,
			}
		}
		out.Set("domain", domain)
		setDataTableDefaults(out, "asc", []dataTableColumn{
			{data: "url", searchable: true, orderable: false},
			{data: "refresh_required", searchable: true, orderable: true},
			{data: "css_size_all", searchable: true, orderable: false},
			{data: "css_size_p1", searchable: true, orderable: false},
			{data: "compression_p", searchable: true, orderable: false},
		})

	case "domain_info_v2", "page_rules_v2", "team_members_v2":
		// Path params only, nothing to resolve.
	}

	return out, nil
}

type dataTableColumn struct {
	data       string
	searchable bool
	orderable  bool
}

// setDataTableDefaults fills the DataTables envelope the v1 report
// endpoints expect: first page of ten rows, no search filter, ordered
// by the second column.
func setDataTableDefaults(out url.Values, orderDir string, columns []dataTableColumn) {
	out.Set("draw", "1")
	out.Set("start", "0")
	out.Set("length", "10")
	out.Set("search[value]", "")
	out.Set("order[0][column]", "1")
	out.Set("order[0][dir]", orderDir)
	for i, col := range columns {
		prefix := "columns[" + strconv.Itoa(i) + "]"
		out.Set(prefix+"[data]", col.data)
		out.Set(prefix+"[searchable]", boolStr(col.searchable))
		out.Set(prefix+"[orderable]", boolStr(col.orderable))
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
