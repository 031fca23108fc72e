// Package validation checks parbuild configuration and graph definitions.
//
// Struct tag validation (go-playground/validator) covers configuration
// structs; field names in messages come from their mapstructure tags.
//
//	type Config struct {
//	    Parallelism int `mapstructure:"parallelism" validate:"min=0"`
//	}
//	err := validation.Validate(cfg)
//
// The programmatic Validator collects errors for definitions that are easier
// to check by hand, such as action ids and dependency lists:
//
//	v := validation.NewFor(errors.ErrCodeInvalidGraph)
//	v.Required("id", a.ID).Pattern("id", a.ID, validation.ActionIDPattern)
//	err := v.Validate()
package validation
