package library

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

func TestIssueLastCopy(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	loan, err := mgr.IssueBook(ctx, "1625", "1001", 14, "")
	require.NoError(t, err)

	assert.Equal(t, LoanActive, loan.Status)
	assert.Equal(t, "1625", loan.BookID)
	assert.Equal(t, "1001", loan.UserID)
	assert.Equal(t, "أحمد محمد", loan.StudentName)
	assert.Equal(t, "الإدارة الصحية وإدارة المستشفيات الجزء الثاني", loan.BookTitle)
	assert.True(t, loan.IssueDate.Equal(fixedNow))
	assert.True(t, loan.DueDate.Equal(fixedNow.Add(14*day)))
	require.NotNil(t, loan.OriginalLocation)
	assert.Equal(t, Location{Cabinet: "F9", BookShelfNumber: "3", ShelfOrder: "رف 1"}, *loan.OriginalLocation)
	assert.Len(t, loan.ID, 36)

	b, err := mgr.GetBook("1625")
	require.NoError(t, err)
	assert.Equal(t, 0, b.RemainingCopies)

	loans := mgr.Loans(LoanFilter{})
	require.Len(t, loans, 1)
	assert.Equal(t, loan, loans[0])
	assert.True(t, strings.HasPrefix(mgr.Notifications()[0], "Issued"))
}

func TestIssueWithCopiesLeft(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.IssueBook(context.Background(), "1624", "2001", 7, "")
	require.NoError(t, err)

	b, _ := mgr.GetBook("1624")
	assert.Equal(t, 1, b.RemainingCopies)
}

func TestIssueWithNoCopiesLeft(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	_, err := mgr.IssueBook(ctx, "1625", "1001", 14, "")
	require.NoError(t, err)
	before := mgr.Export()

	_, err = mgr.IssueBook(ctx, "1625", "2001", 14, "")
	assert.ErrorIs(t, err, ErrNoCopiesAvailable)

	after := mgr.Export()
	assert.Equal(t, before.Loans, after.Loans)
	assert.Equal(t, before.Books, after.Books)
}

func TestIssueUnknownReferences(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	_, err := mgr.IssueBook(ctx, "9999", "1001", 14, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.IssueBook(ctx, "1624", "ghost", 14, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, mgr.Loans(LoanFilter{}))
}

func TestIssueUsesConfiguredDuration(t *testing.T) {
	clk := &testClock{t: fixedNow}
	mgr := newManagerWith(t, NewMemoryStore(), Options{Clock: clk.Now, LoanDurationDays: 7})

	loan, err := mgr.IssueBook(context.Background(), "1626", "1001", 0, "")
	require.NoError(t, err)
	assert.True(t, loan.DueDate.Equal(fixedNow.Add(7*day)))
}

func TestIssueDurationBounds(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	var ve *ValidationError
	_, err := mgr.IssueBook(ctx, "1624", "1001", 200000, "")
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "durationDays", ve.Fields[0].Field)
	assert.Empty(t, mgr.Loans(LoanFilter{}))
	b, _ := mgr.GetBook("1624")
	assert.Equal(t, 2, b.RemainingCopies)

	loan, err := mgr.IssueBook(ctx, "1624", "1001", MaxLoanDays, "")
	require.NoError(t, err)
	assert.True(t, loan.DueDate.Equal(fixedNow.AddDate(0, 0, MaxLoanDays)))
	assert.True(t, loan.DueDate.After(loan.IssueDate))
	assert.Empty(t, mgr.OverdueLoans())
}

func TestIssueRespectsBorrowPermission(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	s := mgr.Settings()
	s.Permissions.Student.Borrow = false
	require.NoError(t, mgr.UpdateSettings(ctx, s))

	_, err := mgr.IssueBook(ctx, "1626", "1001", 14, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = mgr.IssueBook(ctx, "1626", "2001", 14, "")
	assert.NoError(t, err)
}

func TestReturnRestoresCopy(t *testing.T) {
	mgr, clk := newManager(t)
	ctx := context.Background()

	loan, err := mgr.IssueBook(ctx, "1625", "1001", 14, "")
	require.NoError(t, err)
	clk.Advance(3 * day)

	returned, err := mgr.ReturnBook(ctx, loan.ID, ConditionGood, decimal.Zero, "")
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, returned.ReturnDate.Equal(fixedNow.Add(3*day)))
	assert.Equal(t, ConditionGood, returned.ConditionOnReturn)

	b, _ := mgr.GetBook("1625")
	assert.Equal(t, 1, b.RemainingCopies)
	assert.Equal(t, `Returned "الإدارة الصحية وإدارة المستشفيات الجزء الثاني"`, mgr.Notifications()[0])
}

func TestReturnTwiceIsRejected(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	loan, err := mgr.IssueBook(ctx, "1625", "1001", 14, "")
	require.NoError(t, err)
	_, err = mgr.ReturnBook(ctx, loan.ID, ConditionGood, decimal.Zero, "")
	require.NoError(t, err)

	_, err = mgr.ReturnBook(ctx, loan.ID, ConditionGood, decimal.Zero, "")
	assert.ErrorIs(t, err, ErrLoanNotActive)

	b, _ := mgr.GetBook("1625")
	assert.Equal(t, 1, b.RemainingCopies)

	_, err = mgr.ReturnBook(ctx, "missing", ConditionGood, decimal.Zero, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnRecordsConditionPenaltyAndNotes(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	loan, err := mgr.IssueBook(ctx, "1626", "2001", 14, "with CD")
	require.NoError(t, err)

	returned, err := mgr.ReturnBook(ctx, loan.ID, ConditionDamaged, decimal.RequireFromString("12.50"), "CD missing")
	require.NoError(t, err)
	assert.Equal(t, ConditionDamaged, returned.ConditionOnReturn)
	require.NotNil(t, returned.PenaltyAmount)
	assert.True(t, returned.PenaltyAmount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "with CD | CD missing", returned.Notes)
}

func TestReturnValidation(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()
	loan, err := mgr.IssueBook(ctx, "1626", "2001", 14, "")
	require.NoError(t, err)

	var ve *ValidationError
	_, err = mgr.ReturnBook(ctx, loan.ID, "soggy", decimal.Zero, "")
	assert.True(t, errors.As(err, &ve))
	_, err = mgr.ReturnBook(ctx, loan.ID, ConditionGood, decimal.NewFromInt(-1), "")
	assert.True(t, errors.As(err, &ve))

	got, _ := mgr.GetLoan(loan.ID)
	assert.Equal(t, LoanActive, got.Status)
}

func TestReturnNeverExceedsCopies(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	loan, err := mgr.IssueBook(ctx, "1626", "1001", 14, "")
	require.NoError(t, err)

	// A correction puts the copy back on the shelf while the loan is open.
	b, _ := mgr.GetBook("1626")
	b.RemainingCopies = b.Copies
	require.NoError(t, mgr.UpdateBook(ctx, b))

	_, err = mgr.ReturnBook(ctx, loan.ID, ConditionGood, decimal.Zero, "")
	require.NoError(t, err)
	b, _ = mgr.GetBook("1626")
	assert.Equal(t, 5, b.RemainingCopies)
}

func TestReturnAfterBookRemoved(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	loan, err := mgr.IssueBook(ctx, "1626", "1001", 14, "")
	require.NoError(t, err)
	require.NoError(t, mgr.Restore(ctx, strings.NewReader(`{"books":[]}`)))

	returned, err := mgr.ReturnBook(ctx, loan.ID, ConditionLost, decimal.NewFromInt(150), "")
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, returned.Status)
	assert.Empty(t, mgr.Books())
}

func TestDeleteBlockedByOpenLoan(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	loan, err := mgr.IssueBook(ctx, "1625", "1001", 14, "")
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.DeleteBook(ctx, "1625"), ErrActiveLoans)
	assert.ErrorIs(t, mgr.DeleteUser(ctx, "1001"), ErrActiveLoans)

	_, err = mgr.ReturnBook(ctx, loan.ID, ConditionGood, decimal.Zero, "")
	require.NoError(t, err)
	assert.NoError(t, mgr.DeleteUser(ctx, "1001"))
	assert.NoError(t, mgr.DeleteBook(ctx, "1625"))
}

func TestOverdueIsDerived(t *testing.T) {
	mgr, clk := newManager(t)
	ctx := context.Background()

	late, err := mgr.IssueBook(ctx, "1624", "1001", 1, "")
	require.NoError(t, err)
	_, err = mgr.IssueBook(ctx, "1626", "2001", 30, "")
	require.NoError(t, err)

	assert.Empty(t, mgr.OverdueLoans())
	clk.Advance(2 * day)

	overdue := mgr.OverdueLoans()
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
	assert.Equal(t, LoanActive, overdue[0].Status)
	assert.Equal(t, LoanOverdue, overdue[0].StatusAt(clk.Now()))
	assert.Len(t, mgr.Loans(LoanFilter{Status: LoanActive}), 1)

	// Still an open loan: it can be returned.
	_, err = mgr.ReturnBook(ctx, late.ID, ConditionGood, decimal.Zero, "")
	require.NoError(t, err)
	assert.Empty(t, mgr.OverdueLoans())
}

func TestStoredOverdueStatusCountsAsOpen(t *testing.T) {
	l := Loan{Status: LoanOverdue, DueDate: fixedNow.Add(day)}
	assert.True(t, l.Open())
	assert.Equal(t, LoanActive, l.StatusAt(fixedNow))

	l.Status = LoanReturned
	assert.False(t, l.Open())
	assert.Equal(t, LoanReturned, l.StatusAt(fixedNow.Add(10*day)))
}

func TestLoanFilter(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	_, err := mgr.IssueBook(ctx, "1624", "1001", 14, "")
	require.NoError(t, err)
	second, err := mgr.IssueBook(ctx, "1626", "1001", 14, "")
	require.NoError(t, err)
	_, err = mgr.IssueBook(ctx, "1626", "2001", 14, "")
	require.NoError(t, err)
	_, err = mgr.ReturnBook(ctx, second.ID, ConditionGood, decimal.Zero, "")
	require.NoError(t, err)

	assert.Len(t, mgr.Loans(LoanFilter{UserID: "1001"}), 2)
	assert.Len(t, mgr.Loans(LoanFilter{BookID: "1626"}), 2)
	assert.Len(t, mgr.Loans(LoanFilter{UserID: "1001", Status: LoanActive}), 1)
	assert.Len(t, mgr.Loans(LoanFilter{Status: LoanReturned}), 1)

	got, err := mgr.GetLoan(second.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, got.Status)
}
