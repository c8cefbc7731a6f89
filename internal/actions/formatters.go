package actions

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatAnswer renders a decoded upstream payload into a short plain
// answer for the named action. Unknown actions and nil payloads fall
// back to "Done." rather than failing the turn.
func FormatAnswer(actionID string, payload any) string {
	var f func(any) string
	switch actionID {
	case "report_overview_v1":
		f = formatOverview
	case "canonical_urls_v1":
		f = formatCanonicalURLs
	case "subscription_v2":
		f = formatSubscription
	case "profile_v2":
		f = formatProfile
	case "pageviews_v2":
		f = formatPageviews
	case "domain_info_v2":
		f = formatDomainInfo
	case "plan_usage_v2":
		f = formatPlanUsage
	case "css_report_v1":
		f = formatCSSReport
	case "css_urls_v1":
		f = formatCSSURLs
	case "page_rules_v2":
		f = formatPageRules
	case "team_members_v2":
		f = formatTeamMembers
	}
	if f == nil || payload == nil {
		return "Done."
	}
	out := f(payload)
	if out == "" {
		return "Done."
	}
	return out
}

// get walks a dot path through nested JSON objects.
func get(obj any, path string) any {
	cur := obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

func getString(obj any, path string) string {
	if s, ok := get(obj, path).(string); ok {
		return s
	}
	return ""
}

func getSlice(obj any, path string) []any {
	if s, ok := get(obj, path).([]any); ok {
		return s
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(v any) int {
	f, ok := asFloat(v)
	if !ok {
		return 0
	}
	return int(f)
}

func getInt(obj any, path string) int {
	return asInt(get(obj, path))
}

// pct returns round(n/d*100), or false when the denominator is zero.
func pct(n, d int) (int, bool) {
	if d == 0 {
		return 0, false
	}
	return int(math.Round(float64(n) / float64(d) * 100)), true
}

// fmtNum renders an integer with thousands separators, "-" when the
// value is not numeric.
func fmtNum(v any) string {
	f, ok := asFloat(v)
	if !ok {
		return "-"
	}
	return groupDigits(int64(f))
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func formatBytes(bytes float64) string {
	if bytes <= 0 {
		return "0 B"
	}
	sizes := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(bytes) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := math.Round(bytes/math.Pow(1024, float64(i))*10) / 10
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizes[i]
}

func truncateURL(u string, max int) string {
	if len(u) > max {
		return u[:max-3] + "..."
	}
	return u
}

func scoreOutOf100(v any) int {
	f, _ := asFloat(v)
	return int(math.Round(f * 100))
}

func formatOverview(payload any) string {
	if r, ok := get(payload, "result").(bool); ok && !r {
		msg := getString(payload, "message")
		if msg != "" {
			return fmt.Sprintf("Couldn't fetch overview (%s).", msg)
		}
		return "Couldn't fetch overview."
	}

	host := getString(payload, "data.domain_details.host")
	pv := getInt(payload, "data.bill.usage.pageviews_ctr")
	planPV := getInt(payload, "data.plan_limits.pageviews")
	scorePct := scoreOutOf100(get(payload, "data.speed_score.avg_score"))
	canTotal := getInt(payload, "data.speed_score.canonical_url_count")
	optTotal := getInt(payload, "data.speed_score.optimized_url_count")
	planTitle := getString(payload, "data.plan_details.title")
	bandwidth := getInt(payload, "data.bill.usage.bandwidth_gb")
	bwLimit := getInt(payload, "data.plan_limits.bandwidth_gb")

	clip := func(s string) string {
		if len(s) > 10 {
			return s[:10]
		}
		return s
	}
	billStart := clip(getString(payload, "data.bill.start_date"))
	billEnd := clip(getString(payload, "data.bill.end_date"))

	var lines []string
	if host != "" {
		lines = append(lines, "Overview for "+host)
	}
	if billStart != "" && billEnd != "" {
		lines = append(lines, fmt.Sprintf("Period: %s → %s", billStart, billEnd))
	}

	usage := "Pageviews: " + fmtNum(pv)
	if planPV != 0 {
		usage += " / " + fmtNum(planPV)
		if p, ok := pct(pv, planPV); ok {
			usage += fmt.Sprintf(" (%d%%)", p)
		}
	}
	lines = append(lines, usage)
	lines = append(lines, fmt.Sprintf("Speed score (avg): %d/100", scorePct))

	if canTotal != 0 || optTotal != 0 {
		lines = append(lines, fmt.Sprintf("Canonical URLs optimized: %s of %s", fmtNum(optTotal), fmtNum(canTotal)))
	}
	if bwLimit != 0 {
		bw := fmt.Sprintf("Bandwidth: %s GB / %s GB", fmtNum(bandwidth), fmtNum(bwLimit))
		if p, ok := pct(bandwidth, bwLimit); ok {
			bw += fmt.Sprintf(" (%d%%)", p)
		}
		lines = append(lines, bw)
	}
	if planTitle != "" {
		lines = append(lines, "Plan: "+planTitle)
	}

	return strings.Join(lines, "\n")
}

func formatCanonicalURLs(payload any) string {
	records := getSlice(payload, "data.records")
	if records == nil {
		return "No canonical URLs data available."
	}

	total := get(payload, "data.recordsTotal")
	lines := []string{fmt.Sprintf("Canonical URLs Report (%s total)", fmtNum(total))}

	shown := records
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, rec := range shown {
		mobile := scoreOutOf100(get(rec, "score_m.score"))
		desktop := scoreOutOf100(get(rec, "score_d.score"))
		lines = append(lines, truncateURL(getString(rec, "url"), 60))
		lines = append(lines, fmt.Sprintf("  Mobile: %d/100, Desktop: %d/100", mobile, desktop))
	}
	if len(records) > 5 {
		lines = append(lines, fmt.Sprintf("... and %d more URLs", len(records)-5))
	}

	return strings.Join(lines, "\n")
}

func formatSubscription(payload any) string {
	subs := getSlice(payload, "subscriptions")
	if subs == nil {
		return "No subscription data available."
	}
	if len(subs) == 0 {
		return "No subscriptions found."
	}

	lines := []string{fmt.Sprintf("Subscription Details (%d domains)", len(subs))}

	shown := subs
	if len(shown) > 3 {
		shown = shown[:3]
	}
	for i, sub := range shown {
		status := "Inactive"
		if asInt(get(sub, "status")) == 1 {
			status = "Active"
		}
		expiry := "Unknown"
		if secs := asInt(get(sub, "expiryTime.seconds")); secs > 0 {
			expiry = time.Unix(int64(secs), 0).UTC().Format("2006-01-02")
		}
		planTitle := getString(sub, "PricingPlan.PricingPlanRL.planTitle")
		if planTitle == "" {
			planTitle = "Unknown"
		}
		limitPV := get(sub, "PricingPlan.PricingPlanRL.limitPageViews")

		lines = append(lines, fmt.Sprintf("Domain %d: %s", i+1, status))
		lines = append(lines, "  Plan: "+planTitle)
		lines = append(lines, "  Pageviews: "+fmtNum(asInt(limitPV)))
		lines = append(lines, "  Expires: "+expiry)
	}
	if len(subs) > 3 {
		lines = append(lines, fmt.Sprintf("... and %d more subscriptions", len(subs)-3))
	}

	return strings.Join(lines, "\n")
}

func formatProfile(payload any) string {
	if _, ok := payload.(map[string]any); !ok {
		return "No profile data available."
	}

	lines := []string{"User Profile"}
	name := strings.TrimSpace(getString(payload, "firstName") + " " + getString(payload, "lastName"))
	lines = append(lines, "Name: "+name)
	email := getString(payload, "email")
	if email == "" {
		email = "Not set"
	}
	lines = append(lines, "Email: "+email)

	if loc, ok := get(payload, "deviceLocation").(map[string]any); ok {
		parts := []string{}
		city := getString(loc, "city")
		region := strings.TrimSpace(getString(loc, "region") + " " + getString(loc, "countryCode"))
		if city != "" {
			parts = append(parts, city)
		}
		if region != "" {
			parts = append(parts, region)
		}
		lines = append(lines, "Location: "+strings.Join(parts, ", "))
	}

	lines = append(lines, fmt.Sprintf("Brands: %d", len(getSlice(payload, "brands"))))

	return strings.Join(lines, "\n")
}

func formatPageviews(payload any) string {
	days, ok := payload.([]any)
	if !ok || len(days) == 0 {
		return "No pageviews data available."
	}

	total := 0
	for _, day := range days {
		total += asInt(get(day, "pageview"))
	}
	avgDaily := int(math.Round(float64(total) / float64(len(days))))

	recent := days
	if len(recent) > 7 {
		recent = recent[len(recent)-7:]
	}
	recentTotal := 0
	for _, day := range recent {
		recentTotal += asInt(get(day, "pageview"))
	}

	lines := []string{fmt.Sprintf("Pageviews Report (%d days)", len(days))}
	lines = append(lines, fmt.Sprintf("Total: %s pageviews", fmtNum(total)))
	lines = append(lines, "Daily average: "+fmtNum(avgDaily))
	lines = append(lines, "Last 7 days: "+fmtNum(recentTotal))
	lines = append(lines, "Recent activity:")
	for _, day := range recent {
		date := getString(day, "date")
		if len(date) >= 10 {
			date = date[5:10] // MM-DD
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", date, fmtNum(asInt(get(day, "pageview")))))
	}

	return strings.Join(lines, "\n")
}

func formatDomainInfo(payload any) string {
	if _, ok := payload.(map[string]any); !ok {
		return "No domain information available."
	}

	host := getString(payload, "host")
	if host == "" {
		host = "Unknown"
	}
	lines := []string{"Domain Info: " + host}

	if avg, ok := get(payload, "averageScore").(map[string]any); ok {
		lines = append(lines, "Average Scores:")
		lines = append(lines, fmt.Sprintf("  Desktop: %d/100 (was %d)",
			scoreOutOf100(avg["optimizedDesktop"]), scoreOutOf100(avg["originalDesktop"])))
		lines = append(lines, fmt.Sprintf("  Mobile: %d/100 (was %d)",
			scoreOutOf100(avg["optimizedMobile"]), scoreOutOf100(avg["originalMobile"])))
	}

	lines = append(lines, "Canonical URLs: "+fmtNum(asInt(get(payload, "canonicalUrlCount"))))

	if css, ok := get(payload, "css").(map[string]any); ok {
		critical, _ := asFloat(css["cssSizeP1"])
		all, _ := asFloat(css["cssSizeAll"])
		lines = append(lines, fmt.Sprintf("CSS: %s critical / %s total", formatBytes(critical), formatBytes(all)))
	}

	return strings.Join(lines, "\n")
}

func formatPlanUsage(payload any) string {
	plans := getSlice(payload, "planUsage")
	if len(plans) == 0 {
		return "No plan usage data available."
	}

	usage := plans[0]
	planTitle := getString(usage, "planTitle")
	if planTitle == "" {
		planTitle = "Unknown Plan"
	}

	pvUsed := getInt(usage, "usage.pageViews")
	pvLimit := getInt(usage, "limits.pageViews")

	lines := []string{"Plan Usage: " + planTitle}
	pv := fmt.Sprintf("Pageviews: %s / %s", fmtNum(pvUsed), fmtNum(pvLimit))
	if p, ok := pct(pvUsed, pvLimit); ok {
		pv += fmt.Sprintf(" (%d%%)", p)
	}
	lines = append(lines, pv)
	lines = append(lines, "Page Rules: 0 / "+fmtNum(getInt(usage, "limits.pageRules")))
	lines = append(lines, "Canonical URLs: 0 / "+fmtNum(getInt(usage, "limits.canonicalURLs")))
	lines = append(lines, "Images: 0 / "+fmtNum(getInt(usage, "limits.images")))
	lines = append(lines, "Delegates: 0 / "+fmtNum(getInt(usage, "limits.delegates")))

	return strings.Join(lines, "\n")
}

func formatCSSReport(payload any) string {
	meta, ok := get(payload, "data.meta").(map[string]any)
	if !ok {
		return "No CSS report data available."
	}

	sizeAll, _ := asFloat(meta["css_size_all"])
	sizeP1, _ := asFloat(meta["css_size_p1"])

	lines := []string{"CSS Optimization Report"}
	lines = append(lines, "URLs processed: "+fmtNum(asInt(meta["canonical_url_count"])))
	lines = append(lines, "Critical CSS: "+formatBytes(sizeP1))
	lines = append(lines, "Total CSS: "+formatBytes(sizeAll))

	reduction := sizeAll - sizeP1
	line := "Size reduction: " + formatBytes(reduction)
	if p, ok := pct(int(reduction), int(sizeAll)); ok && p != 0 {
		line += fmt.Sprintf(" (%d%%)", p)
	}
	lines = append(lines, line)

	return strings.Join(lines, "\n")
}

func formatCSSURLs(payload any) string {
	records := getSlice(payload, "data.records")
	if records == nil {
		return "No CSS URLs data available."
	}

	total := get(payload, "data.recordsTotal")
	lines := []string{fmt.Sprintf("CSS by URLs (%s total)", fmtNum(total))}

	shown := records
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, rec := range shown {
		critical, _ := asFloat(get(rec, "css_size_p1"))
		all, _ := asFloat(get(rec, "css_size_all"))
		refresh := ""
		if b, ok := get(rec, "refresh_required").(bool); ok && b {
			refresh = " (needs refresh)"
		}
		lines = append(lines, truncateURL(getString(rec, "url"), 50))
		lines = append(lines, fmt.Sprintf("  Critical: %s, Total: %s%s", formatBytes(critical), formatBytes(all), refresh))
	}
	if len(records) > 5 {
		lines = append(lines, fmt.Sprintf("... and %d more URLs", len(records)-5))
	}

	return strings.Join(lines, "\n")
}

func formatPageRules(payload any) string {
	rules := getSlice(payload, "pageRules")
	if len(rules) == 0 {
		return "No page rules configured."
	}

	lines := []string{fmt.Sprintf("Page Rules (%d active)", len(rules))}
	for i, rule := range rules {
		pattern := getString(rule, "pathPattern")
		if pattern == "" {
			pattern = "*"
		}
		priority := asInt(get(rule, "priority"))
		lines = append(lines, fmt.Sprintf("Rule %d: %s (priority: %d)", i+1, pattern, priority))

		var features []string
		if b, ok := get(rule, "optimizations.css.defer").(bool); ok && b {
			features = append(features, "CSS defer")
		}
		if b, ok := get(rule, "optimizations.js.defer").(bool); ok && b {
			features = append(features, "JS defer")
		}
		if b, ok := get(rule, "optimizations.image.lazy").(bool); ok && b {
			features = append(features, "Image lazy")
		}
		if b, ok := get(rule, "optimizations.webFont.defer").(bool); ok && b {
			features = append(features, "Font defer")
		}
		if len(features) == 0 {
			lines = append(lines, "  Features: None")
		} else {
			lines = append(lines, "  Features: "+strings.Join(features, ", "))
		}
	}

	return strings.Join(lines, "\n")
}

var accessLevels = map[int]string{
	1: "View",
	2: "Edit",
	3: "Admin",
	4: "Owner",
}

func formatTeamMembers(payload any) string {
	users := getSlice(payload, "users")
	if len(users) == 0 {
		return "No team members found."
	}

	lines := []string{fmt.Sprintf("Team Members (%d total)", len(users))}
	for _, user := range users {
		name := getString(user, "name")
		if name == "" {
			name = "Unnamed"
		}
		level := asInt(get(user, "accessLevel"))
		access, ok := accessLevels[level]
		if !ok {
			access = fmt.Sprintf("Level %d", level)
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", name, getString(user, "email")))
		lines = append(lines, "  Access: "+access)
	}

	return strings.Join(lines, "\n")
}
