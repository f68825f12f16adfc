package answer

import (
	"time"

	"github.com/Ramsey-B/organizer/pkg/fieldtype"
)

// Slots is the column projection of a Value. At most one field is non-nil.
type Slots struct {
	Text      *string
	Number    *float64
	Boolean   *bool
	Date      *time.Time
	JSON      any
	HasJSON   bool
	Encrypted *string
}

func (v Value) Slots() Slots {
	switch v.kind {
	case KindText:
		s := v.text
		return Slots{Text: &s}
	case KindEncrypted:
		s := v.text
		return Slots{Encrypted: &s}
	case KindNumber:
		f := v.number
		return Slots{Number: &f}
	case KindBoolean:
		b := v.boolean
		return Slots{Boolean: &b}
	case KindDate:
		t := v.date
		return Slots{Date: &t}
	case KindJSON:
		return Slots{JSON: v.json, HasJSON: true}
	default:
		return Slots{}
	}
}

// FromSlots reads the column that ft stores its answers in. A row whose populated column is
// not that one reads as no answer.
func FromSlots(ft fieldtype.FieldType, s Slots) Value {
	switch KindFor(ft) {
	case KindEncrypted:
		if s.Encrypted != nil {
			return Encrypted(*s.Encrypted)
		}
	case KindNumber:
		if s.Number != nil {
			return Number(*s.Number)
		}
	case KindBoolean:
		if s.Boolean != nil {
			return Boolean(*s.Boolean)
		}
	case KindDate:
		if s.Date != nil {
			return Date(*s.Date)
		}
	case KindJSON:
		if s.HasJSON {
			return JSON(s.JSON)
		}
	default:
		if s.Text != nil {
			return Text(*s.Text)
		}
	}
	return Empty()
}
