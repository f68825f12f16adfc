// Package pdf renders a materialized submission as a printable PDF document.
package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/Ramsey-B/organizer/pkg/models"
)

const (
	margin     = 15.0
	lineHeight = 6.0
	labelWidth = 70.0
)

type Option func(*Renderer)

// WithoutCompression leaves page streams uncompressed so their text is searchable.
func WithoutCompression() Option {
	return func(r *Renderer) { r.compress = false }
}

// WithClock fixes the creation date written to the document.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

type Renderer struct {
	compress bool
	now      func() time.Time
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{compress: true, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Filename is the download name of the rendered submission.
func Filename(snapshot *models.SubmissionSnapshot) string {
	return fmt.Sprintf("%s_submission_%s.pdf", snapshot.FormType.Name, snapshot.Submission.ID)
}

type document struct {
	*fpdf.Fpdf
	tr    func(string) string
	width float64
}

// Render writes the submission info, every answered section in display order and the
// sub-entity tables. Sensitive answers are masked.
func (r *Renderer) Render(snapshot *models.SubmissionSnapshot) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetCreationDate(r.now())
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AliasNbPages("")

	pageWidth, _ := pdf.GetPageSize()
	doc := &document{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), width: pageWidth - 2*margin}

	title := fmt.Sprintf("%s - Submission %s", snapshot.FormType.DisplayName, snapshot.Submission.ID)
	pdf.SetTitle(title, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(doc.width, 8, doc.tr(title), "", "C", false)
	pdf.Ln(4)

	doc.info(snapshot)

	sections := append([]models.SectionSnapshot(nil), snapshot.Sections...)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Section.Order < sections[j].Section.Order })
	for _, section := range sections {
		doc.section(section)
	}

	doc.dependents(snapshot.Dependents)
	doc.owners(snapshot.Owners)
	doc.vehicles(snapshot.Vehicles)
	doc.contributions(snapshot.Contributions)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to render submission pdf")
	}
	return buf.Bytes(), nil
}

func (d *document) heading(text string) {
	d.Ln(4)
	d.SetFont("Helvetica", "B", 13)
	d.SetFillColor(230, 236, 245)
	d.CellFormat(d.width, 8, d.tr(text), "", 1, "L", true, 0, "")
	d.Ln(2)
}

func (d *document) row(label, value string) {
	d.SetFont("Helvetica", "B", 10)
	x, y := d.GetXY()
	d.MultiCell(labelWidth, lineHeight, d.tr(label), "", "L", false)
	labelBottom := d.GetY()

	d.SetXY(x+labelWidth, y)
	d.SetFont("Helvetica", "", 10)
	d.MultiCell(d.width-labelWidth, lineHeight, d.tr(value), "", "L", false)
	if labelBottom > d.GetY() {
		d.SetY(labelBottom)
	}
}

func (d *document) info(snapshot *models.SubmissionSnapshot) {
	submission := snapshot.Submission
	d.row("Submission Date", submission.SubmissionDate.Format("January 2, 2006"))
	d.row("Status", submission.Status.Label())
	d.row("Form Type", snapshot.FormType.DisplayName)
}

func (d *document) section(section models.SectionSnapshot) {
	rows := 0
	for _, a := range section.Answers {
		if FormatAnswer(a) != "" {
			rows++
		}
	}
	if rows == 0 {
		return
	}

	d.heading(section.Section.Title)
	for _, a := range section.Answers {
		if value := FormatAnswer(a); value != "" {
			d.row(a.QuestionText, value)
		}
	}
}

func (d *document) table(title string, headers []string, widths []float64, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	d.heading(title)

	d.SetFont("Helvetica", "B", 9)
	d.SetFillColor(245, 245, 245)
	for i, header := range headers {
		d.CellFormat(widths[i], 7, d.tr(header), "1", 0, "C", true, 0, "")
	}
	d.Ln(-1)

	d.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for i, cell := range row {
			d.CellFormat(widths[i], 7, d.tr(cell), "1", 0, "L", false, 0, "")
		}
		d.Ln(-1)
	}
}

func (d *document) dependents(dependents []models.Dependent) {
	rows := make([][]string, 0, len(dependents))
	for _, dep := range dependents {
		dob := "Not provided"
		if dep.DateOfBirth != nil {
			dob = dep.DateOfBirth.Format("01/02/2006")
		}
		rows = append(rows, []string{
			dep.FullName(),
			dep.Relationship,
			dob,
			strconv.Itoa(dep.MonthsLivedWithYou),
			yesNo(dep.IsFullTimeStudent),
			money(dep.ChildCareExpense),
		})
	}
	d.table("Dependents",
		[]string{"Name", "Relationship", "Date of Birth", "Months Lived with You", "Full-time Student", "Child Care Expense"},
		[]float64{40, 28, 28, 34, 24, 26}, rows)
}

func (d *document) owners(owners []models.BusinessOwner) {
	rows := make([][]string, 0, len(owners))
	for _, o := range owners {
		name := strings.Join(strings.Fields(strings.Join([]string{o.FirstName, o.Initial, o.LastName}, " ")), " ")
		address := strings.Join(strings.Fields(fmt.Sprintf("%s %s %s %s", o.Address, o.City, o.State, o.ZipCode)), " ")
		rows = append(rows, []string{
			name,
			number(o.OwnershipPercentage) + "%",
			address,
			o.WorkPhone,
			o.Country,
		})
	}
	d.table("Business Owners",
		[]string{"Name", "Ownership %", "Address", "Phone", "Country"},
		[]float64{38, 22, 70, 28, 22}, rows)
}

func (d *document) vehicles(vehicles []models.Vehicle) {
	rows := make([][]string, 0, len(vehicles))
	for _, v := range vehicles {
		placed := "Not provided"
		if v.DatePlacedInService != nil {
			placed = v.DatePlacedInService.Format("01/02/2006")
		}
		rows = append(rows, []string{v.Description, placed, strconv.Itoa(v.TotalMiles), strconv.Itoa(v.BusinessMiles)})
	}
	d.table("Vehicles",
		[]string{"Description", "Placed in Service", "Total Miles", "Business Miles"},
		[]float64{75, 35, 35, 35}, rows)
}

func (d *document) contributions(contributions []models.CharitableContribution) {
	rows := make([][]string, 0, len(contributions))
	for _, c := range contributions {
		rows = append(rows, []string{c.OrganizationName, money(c.Amount)})
	}
	d.table("Charitable Contributions", []string{"Organization", "Amount"}, []float64{130, 50}, rows)
}

// FormatAnswer renders one answer for print. Empty answers render as "".
func FormatAnswer(a models.AnswerSnapshot) string {
	v := a.Value
	switch {
	case v.IsEmpty():
		return ""
	case a.FieldType == fieldtype.Signature:
		return fieldtype.SignaturePlaceholder
	case a.IsSensitive:
		return a.Display()
	}

	switch v.Kind() {
	case answer.KindBoolean:
		b, _ := v.Interface().(bool)
		return yesNo(b)
	case answer.KindDate:
		t, _ := v.Interface().(time.Time)
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("01/02/2006")
		}
		return t.Format("01/02/2006 15:04")
	case answer.KindJSON:
		return Flatten(v.Interface())
	default:
		return v.String()
	}
}

// Flatten renders a JSON answer on one line: lists as "Item n: ..." joined by "; " and objects
// as "key: value" pairs in key order.
func Flatten(v any) string {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return "No items"
		}
		items := make([]string, 0, len(t))
		for i, item := range t {
			items = append(items, fmt.Sprintf("Item %d: %s", i+1, Flatten(item)))
		}
		return strings.Join(items, "; ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, fmt.Sprintf("%s: %s", key, Flatten(t[key])))
		}
		return strings.Join(pairs, ", ")
	case nil:
		return ""
	case string:
		return t
	case float64:
		return number(t)
	case bool:
		return yesNo(t)
	default:
		return fmt.Sprint(t)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func money(f float64) string {
	return "$" + strconv.FormatFloat(f, 'f', 2, 64)
}
