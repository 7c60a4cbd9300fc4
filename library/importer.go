package library

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

const maxImportRows = 5000

var (
	ErrImportNoData      = errors.New("spreadsheet has no data rows (first row is the header)")
	ErrImportTooManyRows = fmt.Errorf("spreadsheet exceeds %d data rows", maxImportRows)
	ErrImportBadHeader   = errors.New("spreadsheet header is missing a required column")
)

// RowError reports a spreadsheet row that could not be converted.
type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Reason) }

// Column aliases, matched after lower-casing and dropping spaces,
// underscores and hyphens.
var bookColumns = map[string][]string{
	"id":              {"id"},
	"code":            {"code", "الرقم", "الكود"},
	"inventoryNumber": {"inventorynumber", "inventory", "رقمالجرد"},
	"title":           {"title", "العنوان", "عنوانالكتاب"},
	"author":          {"author", "المؤلف"},
	"specialization":  {"specialization", "category", "التخصص"},
	"department":      {"department", "القسم"},
	"cabinet":         {"cabinet", "الخزانة", "الدولاب"},
	"bookShelfNumber": {"bookshelfnumber", "shelf", "رقمالرف"},
	"shelfOrder":      {"shelforder", "ترتيبالرف"},
	"copies":          {"copies", "النسخ", "عددالنسخ"},
	"remainingCopies": {"remainingcopies", "remaining", "المتبقي"},
	"editionYear":     {"editionyear", "edition", "سنةالطبعة"},
	"entryDate":       {"entrydate", "تاريخالإدخال"},
	"parts":           {"parts", "الأجزاء"},
	"price":           {"price", "السعر"},
}

var userColumns = map[string][]string{
	"id":         {"id", "الرقم", "رقمالمستخدم"},
	"name":       {"name", "الاسم"},
	"email":      {"email", "البريد", "البريدالإلكتروني"},
	"password":   {"password", "كلمةالمرور"},
	"role":       {"role", "الدور"},
	"status":     {"status", "الحالة"},
	"department": {"department", "القسم"},
	"joinDate":   {"joindate", "تاريخالانضمام"},
}

func headerKey(h string) string {
	h = strings.ToLower(norm.NFC.String(strings.TrimSpace(h)))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func indexHeader(header []string, columns map[string][]string) map[string]int {
	idx := make(map[string]int, len(columns))
	for field := range columns {
		idx[field] = -1
	}
	for i, h := range header {
		key := headerKey(h)
		for field, aliases := range columns {
			for _, a := range aliases {
				if key == a && idx[field] < 0 {
					idx[field] = i
				}
			}
		}
	}
	return idx
}

// sheetRows reads the first sheet and returns its header and data rows.
func sheetRows(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, ErrImportNoData
	}
	if len(rows)-1 > maxImportRows {
		return nil, nil, ErrImportTooManyRows
	}
	return rows[0], rows[1:], nil
}

type rowReader struct {
	idx map[string]int
	row []string
}

func (rr rowReader) str(field string) string {
	i := rr.idx[field]
	if i < 0 || i >= len(rr.row) {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(rr.row[i]))
}

func (rr rowReader) empty() bool {
	for _, c := range rr.row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (rr rowReader) integer(field string, def int) (int, error) {
	s := rr.str(field)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheets often store whole numbers as "2.0".
		d, derr := decimal.NewFromString(s)
		if derr != nil || !d.IsInteger() {
			return 0, fmt.Errorf("%s: %q is not a whole number", field, s)
		}
		n = int(d.IntPart())
	}
	return n, nil
}

// ParseBooksSheet converts the first sheet of an .xlsx workbook into books.
// The header row may list columns in any order; a title column and an id
// or code column are required. Copies default to 1 and remaining copies to
// the number of copies.
func ParseBooksSheet(r io.Reader) ([]Book, error) {
	header, rows, err := sheetRows(r)
	if err != nil {
		return nil, err
	}
	idx := indexHeader(header, bookColumns)
	if idx["title"] < 0 || (idx["id"] < 0 && idx["code"] < 0) {
		return nil, ErrImportBadHeader
	}

	var books []Book
	for i, row := range rows {
		rr := rowReader{idx: idx, row: row}
		if rr.empty() {
			continue
		}
		b, err := bookFromRow(rr)
		if err != nil {
			return nil, &RowError{Row: i + 2, Reason: err.Error()}
		}
		books = append(books, b)
	}
	if len(books) == 0 {
		return nil, ErrImportNoData
	}
	return books, nil
}

func bookFromRow(rr rowReader) (Book, error) {
	b := Book{
		ID:              rr.str("id"),
		Code:            rr.str("code"),
		InventoryNumber: rr.str("inventoryNumber"),
		Title:           rr.str("title"),
		Author:          rr.str("author"),
		Specialization:  rr.str("specialization"),
		Department:      rr.str("department"),
		Cabinet:         rr.str("cabinet"),
		BookShelfNumber: rr.str("bookShelfNumber"),
		ShelfOrder:      rr.str("shelfOrder"),
		EditionYear:     rr.str("editionYear"),
		EntryDate:       rr.str("entryDate"),
	}
	if b.ID == "" {
		b.ID = b.Code
	}
	if b.Code == "" {
		b.Code = b.ID
	}
	var err error
	if b.Copies, err = rr.integer("copies", 1); err != nil {
		return Book{}, err
	}
	if b.RemainingCopies, err = rr.integer("remainingCopies", b.Copies); err != nil {
		return Book{}, err
	}
	if b.Parts, err = rr.integer("parts", 0); err != nil {
		return Book{}, err
	}
	if s := rr.str("price"); s != "" {
		if b.Price, err = decimal.NewFromString(s); err != nil {
			return Book{}, fmt.Errorf("price: %q is not a number", s)
		}
	}
	if err := validateBook(b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// ParseUsersSheet converts the first sheet of an .xlsx workbook into users.
// id and name columns are required; role defaults to student.
func ParseUsersSheet(r io.Reader) ([]User, error) {
	header, rows, err := sheetRows(r)
	if err != nil {
		return nil, err
	}
	idx := indexHeader(header, userColumns)
	if idx["id"] < 0 || idx["name"] < 0 {
		return nil, ErrImportBadHeader
	}

	var users []User
	for i, row := range rows {
		rr := rowReader{idx: idx, row: row}
		if rr.empty() {
			continue
		}
		u := User{
			ID:         rr.str("id"),
			Name:       rr.str("name"),
			Email:      rr.str("email"),
			Password:   rr.str("password"),
			Role:       Role(strings.ToLower(rr.str("role"))),
			Status:     UserStatus(strings.ToLower(rr.str("status"))),
			Department: rr.str("department"),
			JoinDate:   rr.str("joinDate"),
		}
		if u.Role == "" {
			u.Role = RoleStudent
		}
		u, err := normalizeUser(u)
		if err != nil {
			return nil, &RowError{Row: i + 2, Reason: err.Error()}
		}
		users = append(users, u)
	}
	if len(users) == 0 {
		return nil, ErrImportNoData
	}
	return users, nil
}
