// Package invoice builds the outstanding-invoices payment reminder: it
// turns raw invoice records into a statement, renders it to HTML and hands
// the page to the PDF or image service.
package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/use-agent/htmlrender/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	inputDateLayout  = "2006-01-02"
	outputDateLayout = "02/01/2006"
)

// Row classes used by the statement template.
const (
	ClassRed    = "row-red"
	ClassYellow = "row-yellow"
	ClassGreen  = "row-green"
)

// Scalar is a JSON string or number kept in its text form. Upstream
// accounting exports send balances and invoice numbers either way.
type Scalar string

// UnmarshalJSON accepts a JSON string or a JSON number.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Scalar(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return models.InvalidInput(fmt.Sprintf("expected a string or number, got %s", data))
	}
	*s = Scalar(n)
	return nil
}

// Invoice is one outstanding invoice as posted by the caller.
type Invoice struct {
	ID         int    `json:"invoice_id"`
	Number     Scalar `json:"invoice_number"`
	Date       string `json:"invoice_date"` // YYYY-MM-DD
	BalanceDue Scalar `json:"balance_due"`
	DueByDays  int    `json:"due_by"`
}

// Thresholds set the day counts above which a row turns red or yellow.
type Thresholds struct {
	Red    int
	Yellow int
}

// Validate requires 0 <= Yellow <= Red.
func (t Thresholds) Validate() error {
	if t.Yellow < 0 || t.Red < t.Yellow {
		return models.InvalidInput(fmt.Sprintf(
			"invalid thresholds: need 0 <= yellow <= red, got yellow=%d red=%d", t.Yellow, t.Red))
	}
	return nil
}

// RowClass picks the row colour for an invoice due in dueBy days.
func (t Thresholds) RowClass(dueBy int) string {
	switch {
	case dueBy > t.Red:
		return ClassRed
	case dueBy > t.Yellow:
		return ClassYellow
	default:
		return ClassGreen
	}
}

// Row is one formatted statement line.
type Row struct {
	Date   string
	Number string
	Amount string
	DueBy  string
	Class  string
}

// Statement is the data behind the reminder template.
type Statement struct {
	TotalBalance string
	CurrentDate  string
	Invoices     []Row
}

// Processor formats invoices into a Statement.
type Processor struct {
	thresholds Thresholds
	currency   string
	now        func() time.Time
	printer    *message.Printer
}

// NewProcessor creates a Processor. now defaults to time.Now when nil.
func NewProcessor(th Thresholds, currency string, now func() time.Time) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{
		thresholds: th,
		currency:   currency,
		now:        now,
		printer:    message.NewPrinter(language.English),
	}
}

// TotalBalance sums balance_due over all invoices.
func (p *Processor) TotalBalance(invoices []Invoice) (float64, error) {
	var total float64
	for _, inv := range invoices {
		v, err := parseAmount(inv)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// FormatDate rewrites a YYYY-MM-DD date as DD/MM/YYYY.
func FormatDate(s string) (string, error) {
	t, err := time.Parse(inputDateLayout, s)
	if err != nil {
		return "", models.InvalidInput(fmt.Sprintf("invalid invoice_date %q: want YYYY-MM-DD", s))
	}
	return t.Format(outputDateLayout), nil
}

// CurrentDate returns today as DD/MM/YYYY.
func (p *Processor) CurrentDate() string {
	return p.now().Format(outputDateLayout)
}

// FormatAmount renders v with thousands separators and two decimals,
// prefixed by the currency symbol.
func (p *Processor) FormatAmount(v float64) string {
	return p.currency + " " + p.printer.Sprintf("%.2f", v)
}

// Process builds the statement for invoices. An empty list yields a zero
// total and no rows.
func (p *Processor) Process(invoices []Invoice) (*Statement, error) {
	total, err := p.TotalBalance(invoices)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(invoices))
	for _, inv := range invoices {
		date, err := FormatDate(inv.Date)
		if err != nil {
			return nil, err
		}
		amount, _ := parseAmount(inv)
		rows = append(rows, Row{
			Date:   date,
			Number: string(inv.Number),
			Amount: p.FormatAmount(amount),
			DueBy:  fmt.Sprintf("%d days", inv.DueByDays),
			Class:  p.thresholds.RowClass(inv.DueByDays),
		})
	}

	return &Statement{
		TotalBalance: p.FormatAmount(total),
		CurrentDate:  p.CurrentDate(),
		Invoices:     rows,
	}, nil
}

func parseAmount(inv Invoice) (float64, error) {
	v, err := strconv.ParseFloat(string(inv.BalanceDue), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, models.InvalidInput(fmt.Sprintf(
			"invoice %s: invalid balance_due %q", inv.Number, string(inv.BalanceDue)))
	}
	return v, nil
}
