// Package answer holds the typed value of a single form answer.
//
// A Value is a tagged union: it carries exactly one payload, or none for "no answer". The slot
// used is chosen by the owning question's field type when the value is built, never by the
// shape of the raw input.
package answer

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/pkg/errors"
)

type Kind string

const (
	KindEmpty     Kind = ""
	KindText      Kind = "text"
	KindNumber    Kind = "number"
	KindBoolean   Kind = "boolean"
	KindDate      Kind = "date"
	KindJSON      Kind = "json"
	KindEncrypted Kind = "encrypted"
)

var (
	ErrUnparseableDate   = errors.New("answer is not a recognizable date")
	ErrUnparseableNumber = errors.New("answer is not a number")
)

// dateTimeLayouts are tried in order before the date-only layout.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

const dateOnlyLayout = "2006-01-02"

type Value struct {
	kind    Kind
	text    string
	number  float64
	boolean bool
	date    time.Time
	json    any
}

// KindFor maps a field type to the slot that stores it. Field types without a dedicated slot
// (signature, email, phone, select, textarea) are stored as text.
func KindFor(ft fieldtype.FieldType) Kind {
	switch ft {
	case fieldtype.Encrypted:
		return KindEncrypted
	case fieldtype.Number:
		return KindNumber
	case fieldtype.Boolean:
		return KindBoolean
	case fieldtype.Date:
		return KindDate
	case fieldtype.JSON:
		return KindJSON
	default:
		return KindText
	}
}

func Empty() Value {
	return Value{}
}

func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

func Number(f float64) Value {
	return Value{kind: KindNumber, number: f}
}

func Boolean(b bool) Value {
	return Value{kind: KindBoolean, boolean: b}
}

func Date(t time.Time) Value {
	return Value{kind: KindDate, date: t}
}

func JSON(v any) Value {
	return Value{kind: KindJSON, json: v}
}

// Encrypted wraps a value destined for the encrypted column. It holds plaintext until the
// store replaces it with ciphertext.
func Encrypted(s string) Value {
	return Value{kind: KindEncrypted, text: s}
}

// New coerces raw into the slot chosen by ft. A nil or empty-string raw is "no answer".
// When coercion fails the returned Value is empty and the error says why.
func New(ft fieldtype.FieldType, raw any) (Value, error) {
	if isBlank(raw) {
		return Empty(), nil
	}

	switch KindFor(ft) {
	case KindEncrypted:
		return Encrypted(stringify(raw)), nil
	case KindNumber:
		return newNumber(raw)
	case KindBoolean:
		return Boolean(toBool(raw)), nil
	case KindDate:
		return newDate(raw)
	case KindJSON:
		if s, ok := raw.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return JSON(s), nil
			}
			if parsed == nil {
				return Empty(), nil
			}
			return JSON(parsed), nil
		}
		return JSON(raw), nil
	default:
		return Text(stringify(raw)), nil
	}
}

func newNumber(raw any) (Value, error) {
	if !truthy(raw) {
		return Empty(), nil
	}

	switch v := raw.(type) {
	case bool:
		return Number(1), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Empty(), errors.Wrapf(ErrUnparseableNumber, "%q", v.String())
		}
		return Number(f), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Empty(), errors.Wrapf(ErrUnparseableNumber, "%q", v)
		}
		return Number(f), nil
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	}

	return Empty(), errors.Wrapf(ErrUnparseableNumber, "%T", raw)
}

func newDate(raw any) (Value, error) {
	switch v := raw.(type) {
	case time.Time:
		return Date(v), nil
	case *time.Time:
		if v == nil {
			return Empty(), nil
		}
		return Date(*v), nil
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return Empty(), err
		}
		return Date(t), nil
	}
	return Empty(), errors.Wrapf(ErrUnparseableDate, "%T", raw)
}

// ParseDate accepts ISO-8601 datetimes (with or without zone) and falls back to a bare date,
// which is read as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Wrapf(ErrUnparseableDate, "%q", s)
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsEmpty() bool {
	return v.kind == KindEmpty
}

// Get returns the payload of the slot selected by ft, or nil when that slot is not the one
// populated.
func (v Value) Get(ft fieldtype.FieldType) any {
	kind := KindFor(ft)
	if kind != v.kind {
		return nil
	}
	return v.payload()
}

// Interface returns whichever payload is populated, or nil.
func (v Value) Interface() any {
	if v.kind == KindEmpty {
		return nil
	}
	return v.payload()
}

func (v Value) payload() any {
	switch v.kind {
	case KindText, KindEncrypted:
		return v.text
	case KindNumber:
		return v.number
	case KindBoolean:
		return v.boolean
	case KindDate:
		return v.date
	case KindJSON:
		return v.json
	default:
		return nil
	}
}

// String renders the payload for audit descriptions and exports.
func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return ""
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindDate:
		return v.date.Format(time.RFC3339)
	default:
		return stringify(v.payload())
	}
}

// TextValue returns the text or encrypted payload.
func (v Value) TextValue() (string, bool) {
	if v.kind != KindText && v.kind != KindEncrypted {
		return "", false
	}
	return v.text, true
}

// WithCiphertext returns an encrypted value whose payload has been replaced by the result of
// fn. Any other kind is returned unchanged.
func (v Value) WithCiphertext(fn func(string) (string, error)) (Value, error) {
	if v.kind != KindEncrypted {
		return v, nil
	}
	out, err := fn(v.text)
	if err != nil {
		return v, err
	}
	return Encrypted(out), nil
}

func isBlank(raw any) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok && s == "" {
		return true
	}
	return false
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// ToBool is the answer boolean coercion: "true", "yes" and "1" in any case, else Go truthiness.
func ToBool(raw any) bool {
	return toBool(raw)
}

// ToFloat coerces raw to a number, returning zero for anything that is not one.
func ToFloat(raw any) float64 {
	v, err := newNumber(raw)
	if err != nil || v.kind != KindNumber {
		return 0
	}
	return v.number
}

func toBool(raw any) bool {
	if s, ok := raw.(string); ok {
		switch strings.ToLower(s) {
		case "true", "yes", "1":
			return true
		}
		return false
	}
	return truthy(raw)
}

// stringify renders scalars plainly and collections as JSON.
func stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		if b, err := json.Marshal(raw); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(raw)
}
