// ABOUTME: Labeled clause fixtures for the labeling benchmark
// ABOUTME: Each case pairs a clause text with the category a reviewer assigned it
package labeling

import "github.com/harper/redliner/internal/models"

// Case is one clause with its expected category
type Case struct {
	ID   string          `json:"id"`
	Text string          `json:"text"`
	Want models.Category `json:"want"`
}

// DefaultCases returns the built-in fixture set spanning SaaS and lease contracts
func DefaultCases() []Case {
	return []Case{
		{"term-convenience", "Either party may terminate this Agreement for convenience on thirty days written notice.", models.CategoryTermination},
		{"term-breach", "Vendor may terminate immediately upon a material breach by Customer.", models.CategoryTermination},
		{"sla-monthly", "Provider shall maintain 99.9% uptime measured monthly.", models.CategoryUptime},
		{"sla-credits", "If the service levels are not met, Customer is entitled to service credits.", models.CategoryUptime},
		{"data-personal", "Vendor shall process personal data only on documented instructions from Customer.", models.CategoryDataUse},
		{"data-gdpr", "Each party shall comply with the GDPR.", models.CategoryDataUse},
		{"renew-auto", "This Agreement will auto-renew for successive one-year periods.", models.CategoryRenewal},
		{"fees-net30", "Customer shall pay all fees within thirty days of the invoice date.", models.CategoryFees},
		{"conf-nda", "Recipient shall hold all Confidential Information in strict confidence.", models.CategoryConfidentiality},
		{"indem-ip", "Supplier shall indemnify and hold harmless Customer against third-party claims.", models.CategoryIndemnity},
		{"cap-fees", "The aggregate liability of either party shall not exceed the amounts paid in the prior twelve months.", models.CategoryLiabilityCap},
		{"law-delaware", "This Agreement is governed by the laws of the State of Delaware.", models.CategoryGoverningLaw},
		{"ip-ownership", "All intellectual property in the deliverables vests in Customer.", models.CategoryIP},
		{"lease-repairs", "Tenant is responsible for all repairs to the HVAC system.", models.CategoryMaintenance},
		{"lease-sublet", "Tenant shall not sublet the premises without Landlord's prior written consent.", models.CategorySubletting},
		{"lease-escalation", "Base rent is subject to an annual increase of four percent.", models.CategoryRentEscalation},
		{"boilerplate", "The headings in this Agreement are for convenience only.", models.CategoryUnclassified},
		{"cooperation", "The parties shall cooperate in good faith.", models.CategoryUnclassified},
	}
}
