package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is one catalog entry. Availability is tracked per copy through
// RemainingCopies; the shelf fields locate the physical copies.
type Book struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	InventoryNumber string          `json:"inventoryNumber"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Specialization  string          `json:"specialization"`
	Department      string          `json:"department"`
	Cabinet         string          `json:"cabinet"`
	BookShelfNumber string          `json:"bookShelfNumber"`
	ShelfOrder      string          `json:"shelfOrder"`
	Copies          int             `json:"copies"`
	RemainingCopies int             `json:"remainingCopies"`
	EditionYear     string          `json:"editionYear"`
	EntryDate       string          `json:"entryDate"`
	Parts           int             `json:"parts"`
	Price           decimal.Decimal `json:"price"`
}

func (b Book) key() string { return b.ID }

func (b Book) clone() Book { return b }

// Location returns where the book is shelved.
func (b Book) Location() Location {
	return Location{Cabinet: b.Cabinet, BookShelfNumber: b.BookShelfNumber, ShelfOrder: b.ShelfOrder}
}

// Role is the kind of account a user holds.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleProfessor Role = "professor"
	RoleStaff     Role = "staff"
	RoleStudent   Role = "student"
)

// Roles lists every role in permission-matrix order.
var Roles = []Role{RoleStudent, RoleProfessor, RoleStaff, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProfessor, RoleStaff, RoleStudent:
		return true
	}
	return false
}

// UserStatus is either active or suspended.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

// User is a library account. Password holds either the plaintext value from
// seed data or an import, or a bcrypt hash after a reset.
type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Password   string     `json:"password"`
	Role       Role       `json:"role"`
	Status     UserStatus `json:"status"`
	JoinDate   string     `json:"joinDate"`
	Department string     `json:"department"`
	Visits     int        `json:"visits"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
}

func (u User) key() string { return u.ID }

func (u User) clone() User {
	u.LastLogin = clonePtr(u.LastLogin)
	return u
}

// LoanStatus is the stored state of a loan.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
	LoanOverdue  LoanStatus = "overdue"
)

// Condition is the state a copy came back in.
type Condition string

const (
	ConditionGood    Condition = "good"
	ConditionDamaged Condition = "damaged"
	ConditionLost    Condition = "lost"
)

// ParseCondition maps a user supplied string to a Condition.
func ParseCondition(s string) (Condition, bool) {
	switch c := Condition(s); c {
	case ConditionGood, ConditionDamaged, ConditionLost:
		return c, true
	}
	return "", false
}

// Location is a shelf position snapshot taken when a copy leaves the shelf.
type Location struct {
	Cabinet         string `json:"cabinet"`
	BookShelfNumber string `json:"bookShelfNumber"`
	ShelfOrder      string `json:"shelfOrder"`
}

// Loan records one copy issued to one user. BookTitle, StudentName and
// OriginalLocation are snapshots taken at issue time and are not refreshed
// when the book or user changes later.
type Loan struct {
	ID                string           `json:"id"`
	BookID            string           `json:"bookId"`
	BookTitle         string           `json:"bookTitle"`
	UserID            string           `json:"userId"`
	StudentName       string           `json:"studentName"`
	IssueDate         time.Time        `json:"issueDate"`
	DueDate           time.Time        `json:"dueDate"`
	Status            LoanStatus       `json:"status"`
	OriginalLocation  *Location        `json:"originalLocation,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	ReturnDate        *time.Time       `json:"returnDate,omitempty"`
	ConditionOnReturn Condition        `json:"conditionOnReturn,omitempty"`
	PenaltyAmount     *decimal.Decimal `json:"penaltyAmount,omitempty"`
}

func (l Loan) key() string { return l.ID }

func (l Loan) clone() Loan {
	l.OriginalLocation = clonePtr(l.OriginalLocation)
	l.ReturnDate = clonePtr(l.ReturnDate)
	l.PenaltyAmount = clonePtr(l.PenaltyAmount)
	return l
}

// Open reports whether the copy is still out. A stored "overdue" status only
// comes from older data and still counts as open.
func (l Loan) Open() bool {
	return l.Status == LoanActive || l.Status == LoanOverdue
}

// StatusAt derives the status as seen at now; overdue is never stored.
func (l Loan) StatusAt(now time.Time) LoanStatus {
	if !l.Open() {
		return l.Status
	}
	if l.DueDate.Before(now) {
		return LoanOverdue
	}
	return LoanActive
}
