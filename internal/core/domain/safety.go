package domain

type SafetyCategory string

const (
	SafetyCriminal       SafetyCategory = "criminal"
	SafetyFamilyViolence SafetyCategory = "family_violence"
	SafetyUrgentDeadline SafetyCategory = "urgent_deadline"
	SafetyChildWelfare   SafetyCategory = "child_welfare"
	SafetySelfHarm       SafetyCategory = "self_harm"
	SafetyNone           SafetyCategory = "none"
)

// SafetyCategories lists every valid category including none. Model output
// outside this set is treated as ambiguous.
var SafetyCategories = []SafetyCategory{
	SafetyCriminal,
	SafetyFamilyViolence,
	SafetyUrgentDeadline,
	SafetyChildWelfare,
	SafetySelfHarm,
	SafetyNone,
}

func ParseSafetyCategory(value string) (SafetyCategory, bool) {
	for _, category := range SafetyCategories {
		if string(category) == value {
			return category, true
		}
	}
	return SafetyNone, false
}

// CrisisResource is one entry of the emergency resource directory rendered
// into escalation responses.
type CrisisResource struct {
	Name        string `json:"name" yaml:"name"`
	Phone       string `json:"phone,omitempty" yaml:"phone"`
	URL         string `json:"url,omitempty" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description"`
}
