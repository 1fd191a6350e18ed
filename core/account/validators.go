package account

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/elimu/core"
)

var (
	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to the username or name"
)

// InitValidators registers the account validation rules on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(accountStructValidation, NewAccount{}, UpdateAccount{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// accountStructValidation does struct level validation on NewAccount and UpdateAccount structs.
func accountStructValidation(sl validator.StructLevel) {
	switch acc := sl.Current().Interface().(type) {
	case NewAccount:
		if acc.Password != "" {
			validatePassword(acc.Password, acc.Username, acc.FirstName, acc.LastName, sl)
		}
	case UpdateAccount:
		if acc.Password != "" {
			validatePassword(acc.Password, acc.Username, acc.FirstName, acc.LastName, sl)
		}
	}
}

// validatePassword applies the password policy:
// - minLen: 6
// - no whitespace
// - not similar to the username or name
func validatePassword(pwd, uname, firstName, lastName string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len([]rune(pwd)) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	if strings.IndexFunc(pwd, unicode.IsSpace) >= 0 {
		reportErr(pwdNoSpaceTag)
		return
	}

	fullName := strings.TrimSpace(firstName + lastName)
	if passwordSimilarity(pwd, uname) >= pwdMaxSim || passwordSimilarity(pwd, fullName) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}

func passwordSimilarity(pwd, attr string) float64 {
	if attr == "" {
		return 0
	}
	pwd, attr = strings.ToLower(pwd), strings.ToLower(attr)
	return difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
}
