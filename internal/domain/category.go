package domain

// Category is the six-way classification assigned to an incoming question.
// It starts Undefined and is resolved at most once per question.
type Category int

const (
	CategoryUndefined Category = iota
	CategoryCalculationBased
	CategoryConceptualInformational
	CategoryProblemGeneration
	CategoryGreetingsSocial
	CategoryOffTopic
	CategoryMiscellaneous
)

func (c Category) String() string {
	switch c {
	case CategoryCalculationBased:
		return "calculation_based"
	case CategoryConceptualInformational:
		return "conceptual_informational"
	case CategoryProblemGeneration:
		return "problem_generation"
	case CategoryGreetingsSocial:
		return "greetings_social"
	case CategoryOffTopic:
		return "off_topic"
	case CategoryMiscellaneous:
		return "miscellaneous"
	default:
		return "undefined"
	}
}

// ParseCategory maps a single-digit classification reply to its Category.
// Anything other than the digits 1-6 reports false.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "1":
		return CategoryCalculationBased, true
	case "2":
		return CategoryConceptualInformational, true
	case "3":
		return CategoryProblemGeneration, true
	case "4":
		return CategoryGreetingsSocial, true
	case "5":
		return CategoryOffTopic, true
	case "6":
		return CategoryMiscellaneous, true
	}
	return CategoryUndefined, false
}
