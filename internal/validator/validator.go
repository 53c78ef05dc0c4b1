package validator

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/stemsi/abroad-backend/internal/model"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// MinAcademicYear is the earliest intake year accepted by academic_year.
const MinAcademicYear = 2000

// customRules are the domain tags registered next to the built-in ones.
var customRules = []struct {
	tag     string
	fn      govalidator.Func
	message string
}{
	{"intake", validateIntake, "{0} must be a month name"},
	{"academic_year", validateAcademicYear, "{0} must be a four digit year from 2000"},
	{"education_level", validateEducationLevel, "{0} must be a known education level"},
}

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		Register(v)
	}
}

// Register configures v with JSON field names, English translations and the
// domain rules.
func Register(v *govalidator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	for _, r := range customRules {
		_ = v.RegisterValidation(r.tag, r.fn)
		message := r.message
		_ = v.RegisterTranslation(r.tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(r.tag, message, true)
			},
			func(ut ut.Translator, fe govalidator.FieldError) string {
				t, _ := ut.T(fe.Tag(), fe.Field())
				return t
			},
		)
	}
}

func validateIntake(fl govalidator.FieldLevel) bool {
	_, ok := model.ParseIntake(fl.Field().String())
	return ok
}

func validateAcademicYear(fl govalidator.FieldLevel) bool {
	var year int
	switch fl.Field().Kind() {
	case reflect.String:
		s := fl.Field().String()
		if len(s) != 4 {
			return false
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return false
		}
		year = n
	case reflect.Int, reflect.Int32, reflect.Int64:
		year = int(fl.Field().Int())
	default:
		return false
	}
	return year >= MinAcademicYear && year <= 9999
}

func validateEducationLevel(fl govalidator.FieldLevel) bool {
	switch model.EducationLevel(fl.Field().String()) {
	case model.LevelGradeTen, model.LevelGradeTwelve, model.LevelDiploma,
		model.LevelBachelors, model.LevelMasters, model.LevelDoctorate:
		return true
	}
	return false
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
