package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} cannot be blank"

	tagPartTag   = "tagpart"
	tagPartText  = "{0} must be a single word without '/'"
	tagPartRegex = regexp.MustCompile(`^[^\s/{}]+$`)

	addressTag   = "address"
	addressText  = "{0} must be a single word address, eg. someone@example.com"
	addressRegex = regexp.MustCompile(`^[^\s{}:]+$`)

	requiredTag  = "required"
	requiredText = "{0} is required"
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use `map` (assignment definitions), `json` or `mapstructure` tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"map", "json", "mapstructure"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})

	// register custom validators
	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(notBlankTag, notBlankText)
	_ = Validate.RegisterValidation(tagPartTag, tagPartValidation)
	RegisterCustomTranslation(tagPartTag, tagPartText)
	_ = Validate.RegisterValidation(addressTag, addressValidation)
	RegisterCustomTranslation(addressTag, addressText)

	RegisterCustomTranslation(requiredTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// tagPartValidation only allows single words that can be joined into a course tag.
func tagPartValidation(fl validator.FieldLevel) bool {
	return tagPartRegex.MatchString(fl.Field().String())
}

// addressValidation only allows identities that survive tokenization as one word.
func addressValidation(fl validator.FieldLevel) bool {
	return addressRegex.MatchString(fl.Field().String())
}

// CheckVar validates a single value, reporting failures under `field`.
func CheckVar(field string, v interface{}, tag string) error {
	err := Validate.Var(v, tag)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := strings.TrimSpace(fe.Translate(Translator))
		if fe.Field() == "" {
			msg = field + " " + msg
		}
		fields = append(fields, FieldError{Field: field, Error: msg})
	}
	return NewValidationError(NewArgumentError("invalid "+field), fields...)
}

// CheckStruct validates `s` and converts validator errors into a ValidationError with translated field errors.
func CheckStruct(s interface{}, msg string) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fe.Translate(Translator)})
	}
	return NewValidationError(NewArgumentError(msg), fields...)
}
