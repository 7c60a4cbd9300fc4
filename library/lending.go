package library

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// notesSeparator joins return notes onto notes written at issue time.
const notesSeparator = " | "

// MaxLoanDays is the longest loan IssueBook accepts.
const MaxLoanDays = 3650

func newLoanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("library: failed to generate loan id: " + err.Error())
	}
	return id.String()
}

// IssueBook lends one copy of bookID to userID for durationDays (the
// configured default when <= 0, at most MaxLoanDays). The new loan and the decremented copy count
// are saved together.
func (lm *LibraryManager) IssueBook(ctx context.Context, bookID, userID string, durationDays int, notes string) (Loan, error) {
	if durationDays <= 0 {
		durationDays = lm.loanDays
	}
	if err := (&Validator{}).
		Custom("durationDays", durationDays > MaxLoanDays, fmt.Sprintf("Must be at most %d", MaxLoanDays)).
		Err(); err != nil {
		return Loan{}, err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	book, ok := findRecord(lm.cur.Books, bookID)
	if !ok {
		return Loan{}, notFound("book", bookID)
	}
	user, ok := findRecord(lm.cur.Users, userID)
	if !ok {
		return Loan{}, notFound("user", userID)
	}
	if !lm.cur.Settings.Permissions.Allows(user.Role, ActionBorrow) {
		return Loan{}, fmt.Errorf("role %s may not borrow: %w", user.Role, ErrForbidden)
	}
	if book.RemainingCopies <= 0 {
		return Loan{}, fmt.Errorf("book %q: %w", bookID, ErrNoCopiesAvailable)
	}

	now := lm.now().UTC()
	loc := book.Location()
	loan := Loan{
		ID:               newLoanID(),
		BookID:           book.ID,
		BookTitle:        book.Title,
		UserID:           user.ID,
		StudentName:      user.Name,
		IssueDate:        now,
		DueDate:          now.AddDate(0, 0, durationDays),
		Status:           LoanActive,
		OriginalLocation: &loc,
		Notes:            notes,
	}
	book.RemainingCopies--

	next := lm.cur
	var err error
	if next.Loans, err = appendRecords(lm.cur.Loans, loan); err != nil {
		return Loan{}, err
	}
	next.Books, _ = replaceRecord(lm.cur.Books, book)
	if err := lm.commit(ctx, next, SlotLoans, SlotBooks); err != nil {
		return Loan{}, err
	}

	lm.log.Info("book issued",
		zap.String("loan_id", loan.ID),
		zap.String("book_id", bookID),
		zap.String("user_id", userID),
		zap.Time("due", loan.DueDate),
	)
	lm.notify("Issued %q to %s", book.Title, user.Name)
	return loan.clone(), nil
}

// ReturnBook closes an open loan and puts the copy back on the shelf. A loan
// can be returned once; the book's remaining copies never exceed its copies.
// If the book has since been deleted the loan still closes.
func (lm *LibraryManager) ReturnBook(ctx context.Context, loanID string, condition Condition, penalty decimal.Decimal, notes string) (Loan, error) {
	v := &Validator{}
	if err := v.
		OneOf("condition", string(condition), string(ConditionGood), string(ConditionDamaged), string(ConditionLost)).
		Custom("penaltyAmount", penalty.IsNegative(), "Must not be negative").
		Err(); err != nil {
		return Loan{}, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	loan, ok := findRecord(lm.cur.Loans, loanID)
	if !ok {
		return Loan{}, notFound("loan", loanID)
	}
	if !loan.Open() {
		return Loan{}, fmt.Errorf("loan %q: %w", loanID, ErrLoanNotActive)
	}

	now := lm.now().UTC()
	loan.Status = LoanReturned
	loan.ReturnDate = &now
	loan.ConditionOnReturn = condition
	loan.PenaltyAmount = &penalty
	if notes != "" {
		if loan.Notes != "" {
			loan.Notes += notesSeparator + notes
		} else {
			loan.Notes = notes
		}
	}

	next := lm.cur
	next.Loans, _ = replaceRecord(lm.cur.Loans, loan)
	slots := []string{SlotLoans}
	if book, ok := findRecord(lm.cur.Books, loan.BookID); ok {
		if book.RemainingCopies < book.Copies {
			book.RemainingCopies++
		} else {
			lm.log.Warn("returned copy exceeds catalog copies, count unchanged",
				zap.String("book_id", book.ID), zap.Int("copies", book.Copies))
		}
		next.Books, _ = replaceRecord(lm.cur.Books, book)
		slots = append(slots, SlotBooks)
	}
	if err := lm.commit(ctx, next, slots...); err != nil {
		return Loan{}, err
	}

	lm.log.Info("book returned",
		zap.String("loan_id", loan.ID),
		zap.String("book_id", loan.BookID),
		zap.String("condition", string(condition)),
		zap.String("penalty", penalty.String()),
	)
	lm.notify("Returned %q", loan.BookTitle)
	return loan.clone(), nil
}

// LoanFilter narrows Loans. Zero fields match everything.
type LoanFilter struct {
	UserID string
	BookID string
	// Status matches the status derived at the current time, so "overdue"
	// selects open loans past their due date.
	Status LoanStatus
}

// Loans returns loans matching f, in issue order.
func (lm *LibraryManager) Loans(f LoanFilter) []Loan {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	now := lm.now()
	var out []Loan
	for _, l := range lm.cur.Loans {
		if f.UserID != "" && l.UserID != f.UserID {
			continue
		}
		if f.BookID != "" && l.BookID != f.BookID {
			continue
		}
		if f.Status != "" && l.StatusAt(now) != f.Status {
			continue
		}
		out = append(out, l.clone())
	}
	return out
}

// GetLoan returns the loan with id.
func (lm *LibraryManager) GetLoan(id string) (Loan, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	l, ok := findRecord(lm.cur.Loans, id)
	if !ok {
		return Loan{}, notFound("loan", id)
	}
	return l.clone(), nil
}

// OverdueLoans returns open loans whose due date has passed.
func (lm *LibraryManager) OverdueLoans() []Loan {
	return lm.Loans(LoanFilter{Status: LoanOverdue})
}
