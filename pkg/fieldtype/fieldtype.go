// Package fieldtype decides how an answer to a dynamic form question is stored.
package fieldtype

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/Gobusters/ectolinq"
)

type FieldType string

const (
	Text      FieldType = "text"
	Number    FieldType = "number"
	Boolean   FieldType = "boolean"
	Date      FieldType = "date"
	JSON      FieldType = "json"
	Encrypted FieldType = "encrypted"
	Signature FieldType = "signature"
	Email     FieldType = "email"
	Phone     FieldType = "phone"
	Select    FieldType = "select"
	Textarea  FieldType = "textarea"
)

var All = []FieldType{Text, Number, Boolean, Date, JSON, Encrypted, Signature, Email, Phone, Select, Textarea}

func (f FieldType) Valid() bool {
	return ectolinq.Contains(All, f)
}

func (f FieldType) String() string {
	return string(f)
}

var (
	sensitiveKeywords = []string{"ssn", "spousessn", "ein", "signature"}
	encryptedKeywords = []string{"ssn", "spousessn", "ein"}
	signatureKeywords = []string{"taxpayersignature", "spousesignature", "signature"}
	booleanAnswers    = []string{"yes", "no", "true", "false"}

	booleanKeys = []string{"hasSpouse", "taxpayerBlind", "isFullTimeStudent", "firstYear", "hasHomeOffice"}
	dateKeys    = []string{"dateOfBirth", "submissionDate", "startDate", "datePlacedInService", "spouseDeathDate"}
	numberKeys  = []string{"monthsLivedWithYou", "childCareExpense", "ownershipPercentage", "grossReceipts", "totalMiles"}
	jsonKeys    = []string{"dependents", "owners", "vehicles", "charitableOrganizations", "otherExpenses", "businessDescriptions", "entityTypes"}
)

// IsSensitive reports whether the lower-cased key contains a sensitive keyword.
func IsSensitive(questionKey string) bool {
	return containsAny(strings.ToLower(questionKey), sensitiveKeywords)
}

// Classify returns the inferred field type and the sensitivity flag for a new question.
func Classify(questionKey string, answer any) (FieldType, bool) {
	return Infer(questionKey, answer), IsSensitive(questionKey)
}

// Infer resolves the field type by first match, in this order:
// encrypted, signature, boolean, date, number, json, text.
func Infer(questionKey string, answer any) FieldType {
	lower := strings.ToLower(questionKey)
	stringified := Stringify(answer)

	switch {
	case containsAny(lower, encryptedKeywords):
		return Encrypted
	case containsAny(lower, signatureKeywords):
		return Signature
	case ectolinq.Contains(booleanKeys, questionKey) || ectolinq.Contains(booleanAnswers, strings.ToLower(stringified)):
		return Boolean
	case ectolinq.Contains(dateKeys, questionKey) || strings.Contains(lower, "date"):
		return Date
	case ectolinq.Contains(numberKeys, questionKey) || IsNumeric(answer) || isDigits(strings.ReplaceAll(stringified, ".", "")):
		return Number
	case ectolinq.Contains(jsonKeys, questionKey) || isCollection(answer):
		return JSON
	default:
		return Text
	}
}

// Stringify renders an answer the way it is compared against keyword lists.
func Stringify(answer any) string {
	switch v := answer.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// IsNumeric reports Go numeric kinds and json.Number. Booleans are not numeric.
func IsNumeric(answer any) bool {
	if _, ok := answer.(json.Number); ok {
		return true
	}
	if answer == nil {
		return false
	}
	switch reflect.TypeOf(answer).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isCollection(answer any) bool {
	if answer == nil {
		return false
	}
	switch reflect.TypeOf(answer).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		_, isBytes := answer.([]byte)
		return !isBytes
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	return ectolinq.Find(keywords, func(keyword string) bool {
		return strings.Contains(s, keyword)
	}) != ""
}

const SignaturePlaceholder = "[Digital Signature Present]"

// Mask renders a sensitive answer for display: SSNs as ***-**-1234, signatures as a
// placeholder and any other sensitive value as *** plus its last four characters.
// Values of keys that are not sensitive are returned unchanged.
func Mask(questionKey, value string) string {
	lower := strings.ToLower(questionKey)
	runes := []rune(value)
	switch {
	case value == "" || !IsSensitive(questionKey):
		return value
	case strings.Contains(lower, "ssn"):
		if len(runes) < 4 {
			return "***"
		}
		return "***-**-" + string(runes[len(runes)-4:])
	case strings.Contains(lower, "signature"):
		return SignaturePlaceholder
	case len(runes) < 4:
		return "***"
	default:
		return "***" + string(runes[len(runes)-4:])
	}
}
