// ABOUTME: Deterministic per-category risk heuristics over clause text
// ABOUTME: Each rule yields a 0-10 severity finding with rationale and suggested fix
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/harper/redliner/internal/models"
)

var (
	percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	// "notice of non-renewal at least 90 days", "notice 30 days"
	noticeAfterRe = regexp.MustCompile(`(?i)notice(?:\s+of)?\s*(?:non[- ]?renewal|termination)?\s*(?:at\s+least\s*)?(\d+)\s*days?`)
	// "90 days' prior written notice"
	noticeBeforeRe = regexp.MustCompile(`(?i)(\d+)\s*days?['’]?\s+(?:prior\s+)?(?:written\s+)?notice`)
)

// Heuristics evaluates the rules for a clause category
func Heuristics(category models.Category, text string) []models.Finding {
	t := strings.ToLower(text)
	var f *models.Finding

	switch category {
	case models.CategoryRenewal:
		f = renewalNotice(t)
	case models.CategoryRentEscalation:
		f = rentEscalation(t)
	case models.CategoryMaintenance:
		f = maintenanceCosts(t)
	case models.CategoryLiabilityCap:
		f = liabilityCap(t)
	case models.CategoryGoverningLaw:
		if containsAny(t, "outside", "foreign", "non-local", "non local") {
			f = &models.Finding{RuleID: "governing-law.non-local", Severity: 5,
				Rationale: "Non-local governing law may be unfavorable.", SuggestedFix: "Switch to your home jurisdiction."}
		}
	case models.CategoryIndemnity:
		if containsAny(t, "defend", "indemnify", "hold harmless") && !containsAny(t, "exclude", "except", "carve-out", "carve out") {
			f = &models.Finding{RuleID: "indemnity.broad", Severity: 4,
				Rationale:    "Broad indemnity without clear carve-outs.",
				SuggestedFix: "Add standard carve-outs (gross negligence, wilful misconduct)."}
		}
	case models.CategoryUptime:
		if pcts := percentages(t); len(pcts) > 0 {
			if highest := maxFloat(pcts); highest < 99.9 {
				f = &models.Finding{RuleID: "uptime.below-three-nines", Severity: 8,
					Rationale:    fmt.Sprintf("SLA uptime below 99.9%% (%s%%).", formatNumber(highest)),
					SuggestedFix: "Increase uptime to at least 99.9% or add service credits."}
			}
		}
	}

	if f == nil {
		return nil
	}
	return []models.Finding{*f}
}

func renewalNotice(t string) *models.Finding {
	days := noticeDays(t)
	if len(days) == 0 {
		return &models.Finding{RuleID: "renewal.no-notice-window", Severity: 7,
			Rationale: "Auto-renewal without a clear non-renewal notice window.", SuggestedFix: "Add a 30-60 day non-renewal notice."}
	}
	highest := days[0]
	for _, d := range days[1:] {
		if d > highest {
			highest = d
		}
	}
	if highest > 60 {
		return &models.Finding{RuleID: "renewal.long-notice-window", Severity: 6,
			Rationale: fmt.Sprintf("Non-renewal notice window is long (%d days).", highest), SuggestedFix: "Reduce the window to 30 days or less."}
	}
	return nil
}

func rentEscalation(t string) *models.Finding {
	if pcts := percentages(t); len(pcts) > 0 {
		highest := maxFloat(pcts)
		if highest > 5.0 {
			return &models.Finding{RuleID: "rent-escalation.high", Severity: 7,
				Rationale: fmt.Sprintf("High rent escalation detected (%s%%).", formatNumber(highest)), SuggestedFix: "Cap annual escalation at 3% or less."}
		}
		if highest > 3.0 {
			return &models.Finding{RuleID: "rent-escalation.above-typical", Severity: 5,
				Rationale: fmt.Sprintf("Rent escalation above typical threshold (%s%%).", formatNumber(highest)), SuggestedFix: "Negotiate a 3% cap."}
		}
	}
	if strings.Contains(t, "escalat") || strings.Contains(t, "increase") {
		return &models.Finding{RuleID: "rent-escalation.uncapped", Severity: 4,
			Rationale: "Rent escalation mentioned without explicit cap.", SuggestedFix: "Add an explicit annual cap of 3% or less."}
	}
	return nil
}

func maintenanceCosts(t string) *models.Finding {
	if containsAny(t, "hvac", "air conditioning") && strings.Contains(t, "tenant") &&
		containsAny(t, "pay", "responsible", "cost", "expense") {
		return &models.Finding{RuleID: "maintenance.tenant-hvac", Severity: 6,
			Rationale: "Tenant appears responsible for HVAC costs.", SuggestedFix: "Limit tenant HVAC costs or shift to landlord."}
	}
	if strings.Contains(t, "repair") && strings.Contains(t, "tenant") && containsAny(t, "all costs", "at its expense") {
		return &models.Finding{RuleID: "maintenance.tenant-repairs", Severity: 5,
			Rationale: "Tenant broadly responsible for repairs.", SuggestedFix: "Add carve-outs or cost caps."}
	}
	return nil
}

func liabilityCap(t string) *models.Finding {
	if containsAny(t, "unlimited", "without limit", "no limit") {
		return &models.Finding{RuleID: "liability.unlimited", Severity: 9,
			Rationale: "Unlimited liability detected.", SuggestedFix: "Cap liability to 12 months of fees."}
	}
	if !containsAny(t, "cap", "limit", "limitation") {
		return &models.Finding{RuleID: "liability.no-cap", Severity: 6,
			Rationale: "No explicit liability cap found.", SuggestedFix: "Add a liability cap (e.g., 12 months of fees)."}
	}
	return nil
}

// MaxFindingSeverity returns the highest finding severity, 0 when there are none
func MaxFindingSeverity(findings []models.Finding) int {
	highest := 0
	for _, f := range findings {
		if f.Severity > highest {
			highest = f.Severity
		}
	}
	return highest
}

func noticeDays(t string) []int {
	var days []int
	for _, re := range []*regexp.Regexp{noticeAfterRe, noticeBeforeRe} {
		for _, m := range re.FindAllStringSubmatch(t, -1) {
			if d, err := strconv.Atoi(m[1]); err == nil {
				days = append(days, d)
			}
		}
	}
	return days
}

func percentages(t string) []float64 {
	var out []float64
	for _, m := range percentRe.FindAllStringSubmatch(t, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func maxFloat(vals []float64) float64 {
	highest := vals[0]
	for _, v := range vals[1:] {
		if v > highest {
			highest = v
		}
	}
	return highest
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func containsAny(t string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}
