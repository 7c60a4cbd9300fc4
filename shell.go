package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"library-desk/library"
)

// readPassword securely reads a password with masking. Piped input is read
// as a plain line from sc.
func readPassword(sc *bufio.Scanner, prompt string) (string, error) {
	fmt.Print(prompt)
	if !term.IsTerminal(int(syscall.Stdin)) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", errors.New("no input")
		}
		return strings.TrimSpace(sc.Text()), nil
	}
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// shell is one interactive desk session.
type shell struct {
	ctx context.Context
	sc  *bufio.Scanner
	lm  *library.LibraryManager
}

// ask prints label and returns the trimmed next line; ok is false at EOF.
func (s *shell) ask(label string) (string, bool) {
	fmt.Print(label)
	if !s.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.sc.Text()), true
}

func (s *shell) askInt(label string, def int) (int, bool) {
	v, ok := s.ask(label)
	if !ok {
		return 0, false
	}
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", v)
		return 0, false
	}
	return n, true
}

func runShell(ctx context.Context, a *app, _ []string) error {
	s := &shell{ctx: ctx, sc: bufio.NewScanner(os.Stdin), lm: a.lm}
	settings := a.lm.Settings()

	fmt.Printf("Welcome to %s (%s)\n", settings.Name, settings.Institution)
	fmt.Println("Available commands:")
	fmt.Println("  Books: add book, list books, search book, update copies, delete book")
	fmt.Println("  Users: add user, list users, reset password, login")
	fmt.Println("  Circulation: issue, return, list loans, overdue")
	fmt.Println("  Specializations: list specializations, add specialization, rename specialization, delete specialization")
	fmt.Println("  System: notifications, stats, backup, restore, exit")

	for {
		fmt.Print("\n> ")
		if !s.sc.Scan() {
			return s.sc.Err()
		}
		cmd := strings.TrimSpace(s.sc.Text())

		switch cmd {
		case "":
		case "add book":
			s.handleAddBook()
		case "list books":
			s.printBooks(s.lm.Books())
		case "search book":
			s.handleSearchBooks()
		case "update copies":
			s.handleUpdateCopies()
		case "delete book":
			s.handleDeleteBook()
		case "add user":
			s.handleAddUser()
		case "list users":
			s.handleListUsers()
		case "reset password":
			s.handleResetPassword()
		case "login":
			s.handleLogin()
		case "issue":
			s.handleIssue()
		case "return":
			s.handleReturn()
		case "list loans":
			s.printLoans(s.lm.Loans(library.LoanFilter{}))
		case "overdue":
			s.printLoans(s.lm.OverdueLoans())
		case "list specializations":
			for i, name := range s.lm.Specializations() {
				fmt.Printf("%3d. %s\n", i+1, name)
			}
		case "add specialization":
			s.handleAddSpecialization()
		case "rename specialization":
			s.handleRenameSpecialization()
		case "delete specialization":
			s.handleDeleteSpecialization()
		case "notifications":
			s.handleNotifications()
		case "stats":
			s.handleStats()
		case "backup":
			s.handleBackup(a.cfg.BackupDir)
		case "restore":
			s.handleRestore()
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
}

// ------------------ Books ------------------

func (s *shell) handleAddBook() {
	var b library.Book
	var ok bool
	if b.ID, ok = s.ask("Book ID: "); !ok {
		return
	}
	b.Code = b.ID
	if b.Title, ok = s.ask("Title: "); !ok {
		return
	}
	if b.Author, ok = s.ask("Author: "); !ok {
		return
	}
	if b.Specialization, ok = s.ask("Specialization: "); !ok {
		return
	}
	if b.Department, ok = s.ask("Department: "); !ok {
		return
	}
	if b.Cabinet, ok = s.ask("Cabinet: "); !ok {
		return
	}
	if b.BookShelfNumber, ok = s.ask("Shelf number: "); !ok {
		return
	}
	if b.Copies, ok = s.askInt("Copies [1]: ", 1); !ok {
		return
	}
	b.RemainingCopies = b.Copies
	price, ok := s.ask("Price (optional): ")
	if !ok {
		return
	}
	if price != "" {
		d, err := decimal.NewFromString(price)
		if err != nil {
			fmt.Printf("Invalid price: %s\n", price)
			return
		}
		b.Price = d
	}

	if err := s.lm.AddBook(s.ctx, b); err != nil {
		fmt.Printf("Error adding book: %v\n", err)
		return
	}
	fmt.Printf("Added book ID %s with %d copies.\n", b.ID, b.Copies)
}

func (s *shell) handleSearchBooks() {
	query, ok := s.ask("Query: ")
	if !ok {
		return
	}
	books := s.lm.SearchBooks(query)
	if len(books) == 0 {
		fmt.Printf("No books found matching '%s'.\n", query)
		return
	}
	fmt.Printf("Found %d book(s) matching '%s':\n", len(books), query)
	s.printBooks(books)
}

func (s *shell) handleUpdateCopies() {
	id, ok := s.ask("Book ID: ")
	if !ok {
		return
	}
	b, err := s.lm.GetBook(id)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	out := b.Copies - b.RemainingCopies
	copies, ok := s.askInt(fmt.Sprintf("Copies [%d]: ", b.Copies), b.Copies)
	if !ok {
		return
	}
	if copies < out {
		fmt.Printf("Error: %d copies are on loan; copies cannot go below that.\n", out)
		return
	}
	b.Copies = copies
	b.RemainingCopies = copies - out
	if err := s.lm.UpdateBook(s.ctx, b); err != nil {
		fmt.Printf("Error updating book: %v\n", err)
		return
	}
	fmt.Printf("Book '%s' now has %d copies (%d on shelf).\n", b.Title, b.Copies, b.RemainingCopies)
}

func (s *shell) handleDeleteBook() {
	id, ok := s.ask("Book ID: ")
	if !ok {
		return
	}
	if err := s.lm.DeleteBook(s.ctx, id); err != nil {
		fmt.Printf("Error deleting book: %v\n", err)
		return
	}
	fmt.Printf("Deleted book %s\n", id)
}

func (s *shell) printBooks(books []library.Book) {
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	fmt.Printf("%-8s %-40s %-25s %-20s %-10s %s\n", "ID", "Title", "Author", "Specialization", "Available", "Location")
	fmt.Println(strings.Repeat("-", 125))
	for _, b := range books {
		loc := b.Location()
		fmt.Printf("%-8s %-40s %-25s %-20s %-10s %s/%s\n",
			b.ID,
			truncateString(b.Title, 40),
			truncateString(b.Author, 25),
			truncateString(b.Specialization, 20),
			fmt.Sprintf("%d/%d", b.RemainingCopies, b.Copies),
			loc.Cabinet, loc.BookShelfNumber)
	}
}

// ------------------ Users ------------------

func (s *shell) handleAddUser() {
	var u library.User
	var ok bool
	if u.ID, ok = s.ask("User ID: "); !ok {
		return
	}
	if u.Name, ok = s.ask("Name: "); !ok {
		return
	}
	if u.Email, ok = s.ask("Email: "); !ok {
		return
	}
	role, ok := s.ask("Role (student, professor, staff, admin) [student]: ")
	if !ok {
		return
	}
	u.Role = library.RoleStudent
	if role != "" {
		u.Role = library.Role(strings.ToLower(role))
	}
	if u.Department, ok = s.ask("Department: "); !ok {
		return
	}

	password, err := readPassword(s.sc, fmt.Sprintf("Enter password for %s: ", u.Name))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if password == "" {
		fmt.Println("Error: Password cannot be empty")
		return
	}
	if u.Password, err = library.HashPassword(password); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if err := s.lm.AddUser(s.ctx, u); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Added %s '%s' with ID %s\n", u.Role, u.Name, u.ID)
}

func (s *shell) handleListUsers() {
	users := s.lm.Users()
	if len(users) == 0 {
		fmt.Println("No users registered.")
		return
	}
	fmt.Printf("%-10s %-30s %-10s %-10s %-6s %s\n", "ID", "Name", "Role", "Status", "Visits", "Email")
	fmt.Println(strings.Repeat("-", 100))
	for _, u := range users {
		fmt.Printf("%-10s %-30s %-10s %-10s %-6d %s\n",
			u.ID, truncateString(u.Name, 30), u.Role, u.Status, u.Visits, u.Email)
	}
}

func (s *shell) handleResetPassword() {
	id, ok := s.ask("User ID: ")
	if !ok {
		return
	}
	user, err := s.lm.GetUser(id)
	if err != nil {
		fmt.Printf("Error: User with ID %s not found\n", id)
		return
	}
	newPassword, err := readPassword(s.sc, fmt.Sprintf("Enter new password for %s (ID: %s): ", user.Name, id))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if newPassword == "" {
		fmt.Println("Error: Password cannot be empty")
		return
	}
	if err := s.lm.ResetPassword(s.ctx, id, newPassword); err != nil {
		fmt.Printf("Error resetting password: %v\n", err)
		return
	}
	fmt.Printf("Password successfully reset for %s (ID: %s)\n", user.Name, id)
}

func (s *shell) handleLogin() {
	id, ok := s.ask("User ID or email: ")
	if !ok {
		return
	}
	password, err := readPassword(s.sc, "Password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	u, err := s.lm.Login(s.ctx, id, password)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		return
	}
	fmt.Printf("Signed in as %s (%s), visit #%d\n", u.Name, u.Role, u.Visits)
}

// ------------------ Circulation ------------------

func (s *shell) handleIssue() {
	bookID, ok := s.ask("Book ID: ")
	if !ok {
		return
	}
	userID, ok := s.ask("User ID: ")
	if !ok {
		return
	}
	days, ok := s.askInt("Loan days (Enter for default): ", 0)
	if !ok {
		return
	}
	notes, ok := s.ask("Notes (optional): ")
	if !ok {
		return
	}

	loan, err := s.lm.IssueBook(s.ctx, bookID, userID, days, notes)
	if err != nil {
		if errors.Is(err, library.ErrNoCopiesAvailable) {
			fmt.Println("No copies of this book are on the shelf.")
			return
		}
		fmt.Printf("Error issuing book: %v\n", err)
		return
	}
	fmt.Printf("Book '%s' issued to %s, due %s (loan %s)\n",
		loan.BookTitle, loan.StudentName, loan.DueDate.Format("2006-01-02"), loan.ID)
}

func (s *shell) handleReturn() {
	loanID, ok := s.ask("Loan ID: ")
	if !ok {
		return
	}
	if _, err := s.lm.GetLoan(loanID); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	condStr, ok := s.ask("Condition (good, damaged, lost) [good]: ")
	if !ok {
		return
	}
	cond := library.ConditionGood
	if condStr != "" {
		c, valid := library.ParseCondition(strings.ToLower(condStr))
		if !valid {
			fmt.Printf("Invalid condition: %s\n", condStr)
			return
		}
		cond = c
	}
	penaltyStr, ok := s.ask("Penalty amount [0]: ")
	if !ok {
		return
	}
	penalty := decimal.Zero
	if penaltyStr != "" {
		d, err := decimal.NewFromString(penaltyStr)
		if err != nil {
			fmt.Printf("Invalid amount: %s\n", penaltyStr)
			return
		}
		penalty = d
	}
	notes, ok := s.ask("Notes (optional): ")
	if !ok {
		return
	}

	loan, err := s.lm.ReturnBook(s.ctx, loanID, cond, penalty, notes)
	if err != nil {
		fmt.Printf("Error returning book: %v\n", err)
		return
	}
	fmt.Printf("Book '%s' returned by %s\n", loan.BookTitle, loan.StudentName)
	if loc := loan.OriginalLocation; loc != nil {
		fmt.Printf("Shelve at cabinet %s, shelf %s (%s)\n", loc.Cabinet, loc.BookShelfNumber, loc.ShelfOrder)
	}
}

func (s *shell) printLoans(loans []library.Loan) {
	if len(loans) == 0 {
		fmt.Println("No loans.")
		return
	}
	now := time.Now()
	fmt.Printf("%-36s %-30s %-20s %-10s %s\n", "Loan", "Book", "Borrower", "Status", "Due")
	fmt.Println(strings.Repeat("-", 115))
	for _, l := range loans {
		fmt.Printf("%-36s %-30s %-20s %-10s %s\n",
			l.ID,
			truncateString(l.BookTitle, 30),
			truncateString(l.StudentName, 20),
			l.StatusAt(now),
			l.DueDate.Format("2006-01-02"))
	}
}

// ------------------ Specializations ------------------

func (s *shell) handleAddSpecialization() {
	name, ok := s.ask("Name: ")
	if !ok {
		return
	}
	if err := s.lm.AddSpecialization(s.ctx, name); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Added specialization '%s'\n", name)
}

func (s *shell) handleRenameSpecialization() {
	oldName, ok := s.ask("Current name: ")
	if !ok {
		return
	}
	newName, ok := s.ask("New name: ")
	if !ok {
		return
	}
	n, err := s.lm.RenameSpecialization(s.ctx, oldName, newName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Renamed '%s' to '%s'; %d book(s) updated\n", oldName, newName, n)
}

func (s *shell) handleDeleteSpecialization() {
	name, ok := s.ask("Name: ")
	if !ok {
		return
	}
	if err := s.lm.DeleteSpecialization(s.ctx, name); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Removed specialization '%s' (books keep their category)\n", name)
}

// ------------------ System ------------------

func (s *shell) handleNotifications() {
	items := s.lm.Notifications()
	if len(items) == 0 {
		fmt.Println("No recent activity.")
		return
	}
	for _, n := range items {
		fmt.Printf("  • %s\n", n)
	}
}

func (s *shell) handleStats() {
	d := s.lm.Dashboard()
	fmt.Printf("Dashboard (%s):\n", d.Mode)
	for _, name := range []string{"students", "professors", "books", "journals", "borrowed", "available"} {
		if v, ok := d.Values[name]; ok {
			fmt.Printf("  %-12s %d\n", name, v)
		}
	}
}

func (s *shell) handleBackup(dir string) {
	def := filepath.Join(dir, library.BackupFileName(time.Now()))
	path, ok := s.ask(fmt.Sprintf("File [%s]: ", def))
	if !ok {
		return
	}
	if path == "" {
		path = def
	}
	b, err := writeBackupFile(s.ctx, s.lm, path)
	if err != nil {
		fmt.Printf("Error writing backup: %v\n", err)
		return
	}
	fmt.Printf("Backup written to %s (%d books, %d users, %d loans)\n", path, len(b.Books), len(b.Users), len(b.Loans))
}

func (s *shell) handleRestore() {
	path, ok := s.ask("Backup file: ")
	if !ok {
		return
	}
	confirm, ok := s.ask("This replaces the collections in the file. Continue? (yes/no): ")
	if !ok || !strings.EqualFold(confirm, "yes") {
		fmt.Println("Restore cancelled.")
		return
	}
	if err := restoreFile(s.ctx, s.lm, path); err != nil {
		fmt.Printf("Error restoring backup: %v\n", err)
		return
	}
	fmt.Printf("Restored from %s: %d books, %d users\n", path, len(s.lm.Books()), len(s.lm.Users()))
}

// truncateString shortens s to maxLength runes.
func truncateString(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	r := []rune(s)
	return string(r[:maxLength-3]) + "..."
}
