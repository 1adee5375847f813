package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation
// registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// Mode decides which fields a research request must carry; tags alone
	// cannot express that, so it is checked at the struct level.
	v.RegisterStructValidation(researchRequestStructValidation, ResearchRequest{})

	return v
}

func researchRequestStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ResearchRequest)

	requireField := func(value, name, field string) {
		if value == "" {
			sl.ReportError(value, name, field, "required_for_mode", req.Mode)
		}
	}

	switch req.Mode {
	case "search":
		requireField(req.Query, "query", "Query")
	case "topic":
		requireField(req.Query, "query", "Query")
		requireField(req.Side1, "side1", "Side1")
		requireField(req.Side2, "side2", "Side2")
	case "account":
		requireField(req.Handle, "handle", "Handle")
		requireField(req.Topics, "topics", "Topics")
	case "ask":
		requireField(req.Handle, "handle", "Handle")
		requireField(req.Question, "question", "Question")
	}
}
