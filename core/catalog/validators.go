package catalog

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

var (
	courseTypeTag  = "coursetype"
	courseTypeText = "invalid course type"

	sectionNameTag  = "sectionname"
	sectionNameText = "invalid section name"
)

// InitValidators registers this package's custom tags; call once at app init.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTagValidation(validate, translator, courseTypeTag, courseTypeText, courseTypeValidation)
	core.RegisterTagValidation(validate, translator, sectionNameTag, sectionNameText, sectionNameValidation)
}

func courseTypeValidation(fl validator.FieldLevel) bool {
	return CourseType(fl.Field().String()).Known()
}

func sectionNameValidation(fl validator.FieldLevel) bool {
	return SectionName(fl.Field().String()).Known()
}
