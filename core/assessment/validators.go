package assessment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

var (
	testKindTag  = "testkind"
	testKindText = "invalid test kind"

	questionTypeTag  = "questiontype"
	questionTypeText = "invalid question type"
)

// InitValidators registers this package's custom tags; call once at app init.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTagValidation(validate, translator, testKindTag, testKindText, testKindValidation)
	core.RegisterTagValidation(validate, translator, questionTypeTag, questionTypeText, questionTypeValidation)
}

func testKindValidation(fl validator.FieldLevel) bool {
	return TestKind(fl.Field().String()).Known()
}

func questionTypeValidation(fl validator.FieldLevel) bool {
	return QuestionType(fl.Field().String()).Known()
}
