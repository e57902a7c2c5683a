package costing

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var lineValidator = newLineValidator()

func newLineValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type lineRules struct {
	Reference        string  `json:"reference" validate:"required"`
	RecipeUnit       string  `json:"recipe_unit" validate:"required,uuid"`
	Quantity         float64 `json:"quantity" validate:"gte=0"`
	ConversionFactor float64 `json:"conversion_factor" validate:"gt=0"`
}

func rulesFor(line Line) lineRules {
	rules := lineRules{
		Reference:        line.Reference.String(),
		Quantity:         line.Quantity,
		ConversionFactor: line.ConversionFactor,
	}
	if line.RecipeUnit != uuid.Nil {
		rules.RecipeUnit = line.RecipeUnit.String()
	}
	return rules
}

// Validate returns one error per offending line index, in line order.
func Validate(composite Composite) ValidationErrors {
	var out ValidationErrors
	for i, line := range composite.Lines {
		err := lineValidator.Struct(rulesFor(line))
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			out = append(out, ValidationError{Line: i, Fields: []string{"line"}})
			continue
		}
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field())
		}
		out = append(out, ValidationError{Line: i, Fields: fields})
	}
	return out
}
