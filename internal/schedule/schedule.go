// Package schedule holds the pure date and money arithmetic for installment
// plans: final due date, payment advancement, the color classifier and the
// reminder tiers. Nothing here touches storage.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hulugan/backend/internal/domain"
)

// DueDate computes the deadline of the whole plan from the release date and
// the term in months. The month index is shifted back by one before adding
// the term; that is the behavior the business signed off on, so a plan
// released in March with a 6 month term falls due in August, not September.
// The release day of month is kept even when the target month is too short:
// the date overflows into the following month and the day is pinned back, so
// Jan 31 with a 2 month term falls due Mar 31.
func DueDate(released time.Time, term int) time.Time {
	if term < 1 {
		term = 1
	}
	initialMonth := int(released.Month()) - 1 - 1
	totalMonths := initialMonth + term
	year := released.Year() + totalMonths/12
	month := time.Month(totalMonths%12 + 1)
	shifted := time.Date(year, month, released.Day(), 0, 0, 0, 0, time.UTC)
	return pinDay(shifted, released.Day())
}

// NextPaymentDate is the first collection date. A recorded down payment
// counts as the first month, so the next collection moves one month out
// with the release day kept through short months; otherwise collection
// starts on the release date itself.
func NextPaymentDate(released time.Time, downPayment float64) time.Time {
	released = midnight(released)
	if downPayment > 0 {
		return pinDay(released.AddDate(0, 1, 0), released.Day())
	}
	return released
}

// pinDay rewrites t's day of month after a month shift may have overflowed
// it. Every month that follows a short month has 31 days, so the rewrite
// itself never overflows.
func pinDay(t time.Time, day int) time.Time {
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, time.UTC)
}

// AdvanceAfterPayment produces the new latest_payment_date once a ledger
// entry lands: the month and year come from the entry's due date, the day is
// the plan's original due day plus one. The plus one is load-bearing
// historical behavior; collections expects the extra day of slack.
func AdvanceAfterPayment(installmentDue, paymentDate time.Time) time.Time {
	day := installmentDue.Day() + 1
	return time.Date(paymentDate.Year(), paymentDate.Month(), day, 0, 0, 0, 0, time.UTC)
}

// MonthlyPayment is (total - down payment) / term, rounded to 2 places.
func MonthlyPayment(total, partial float64, term int) float64 {
	if term < 1 {
		return 0
	}
	amount := decimal.NewFromFloat(total).
		Sub(decimal.NewFromFloat(partial)).
		Div(decimal.NewFromInt(int64(term))).
		Round(2)
	f, _ := amount.Float64()
	return f
}

// LedgerTotal sums an installment's ledger entries with exact arithmetic.
func LedgerTotal(entries []domain.PaymentEntry) float64 {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(decimal.NewFromFloat(e.Payment))
	}
	f, _ := total.Float64()
	return f
}

// DiffDays is the whole-day distance from today to the due date after both
// are truncated to midnight. Negative means overdue.
func DiffDays(due, today time.Time) int {
	due = midnight(due)
	today = midnight(today)
	return int(due.Sub(today).Hours() / 24)
}

// Classification is the classifier's verdict for one installment.
type Classification struct {
	Color string
	// Promote is set when a purple (due today) plan has a ledger entry
	// whose due date lands on today's collection date. The caller decides
	// whether to persist the promotion to Fully-paid.
	Promote bool
}

// Classify buckets an installment by its schedule. It is a pure function:
// unlike the screen it replaces, it never rewrites the status it reads.
//
// Order matters. Fully-paid wins outright; a future due date is white; a
// day-of-month match is purple (or green when the ledger shows a payment
// scheduled for that exact date); a week or more overdue is yellow; Deposit
// and Remate map to blue and red. An On-going plan one to six days overdue
// on a non-matching day stays uncolored.
func Classify(inst domain.Installment, ledger []domain.PaymentEntry, today time.Time) Classification {
	due := midnight(inst.LatestPaymentDate)
	today = midnight(today)
	diffDays := DiffDays(due, today)

	switch {
	case inst.Status == domain.StatusFullyPaid:
		return Classification{Color: domain.ColorGreen}
	case diffDays > 0 && inst.Status == domain.StatusOngoing:
		return Classification{Color: domain.ColorWhite}
	case due.Day() == today.Day() && inst.Status == domain.StatusOngoing:
		if paidOn(ledger, due) {
			return Classification{Color: domain.ColorGreen, Promote: true}
		}
		return Classification{Color: domain.ColorPurple}
	case diffDays <= -7 && inst.Status == domain.StatusOngoing:
		return Classification{Color: domain.ColorYellow}
	case inst.Status == domain.StatusDeposit:
		return Classification{Color: domain.ColorBlue}
	case inst.Status == domain.StatusRemate:
		return Classification{Color: domain.ColorRed}
	}
	return Classification{}
}

func paidOn(ledger []domain.PaymentEntry, due time.Time) bool {
	for _, e := range ledger {
		if midnight(e.PaymentDate).Equal(due) {
			return true
		}
	}
	return false
}

// DueToday reports whether an On-going installment belongs in the purple
// dues bucket: the collection day of month matches today's.
func DueToday(inst domain.Installment, today time.Time) bool {
	return inst.Status == domain.StatusOngoing &&
		midnight(inst.LatestPaymentDate).Day() == midnight(today).Day()
}

// Lapsed reports whether an On-going installment belongs in the yellow dues
// bucket: a week or more past the collection date.
func Lapsed(inst domain.Installment, today time.Time) bool {
	return inst.Status == domain.StatusOngoing &&
		DiffDays(inst.LatestPaymentDate, today) <= -7
}

// Reminder tiers, in days overdue.
const (
	reminderOverdueMax     = 7
	reminderLongOverdueMax = 14
)

// ReminderFor builds the collection notice for one installment, or nil when
// no notice is warranted. Tiers: due today, overdue up to a week, overdue
// more than a week but at most two.
func ReminderFor(inst domain.Installment, today time.Time) *domain.Reminder {
	diffDays := DiffDays(inst.LatestPaymentDate, today)
	overdue := -diffDays

	var msg string
	switch {
	case diffDays == 0:
		msg = fmt.Sprintf("%s's installment is due today! Please remind them. Call %s", inst.CustomerName, inst.PhoneNumber)
	case overdue >= 1 && overdue <= reminderOverdueMax:
		msg = fmt.Sprintf("%s's installment is overdue by %d day(s)! Contact them to notify. Call %s", inst.CustomerName, overdue, inst.PhoneNumber)
	case overdue > reminderOverdueMax && overdue <= reminderLongOverdueMax:
		msg = fmt.Sprintf("%s's installment is overdue for more than a week. Check the installment status. Call %s", inst.CustomerName, inst.PhoneNumber)
	default:
		return nil
	}

	return &domain.Reminder{
		InstallmentID: inst.ID,
		CustomerName:  inst.CustomerName,
		Phone:         inst.PhoneNumber,
		OverdueDays:   maxInt(overdue, 0),
		Message:       msg,
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
