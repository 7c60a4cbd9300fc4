package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Backup is the exported snapshot of every collection.
type Backup struct {
	Books           []Book          `json:"books"`
	Users           []User          `json:"users"`
	Loans           []Loan          `json:"loans"`
	Settings        LibrarySettings `json:"settings"`
	Specializations []string        `json:"specializations"`
	Date            time.Time       `json:"date"`
}

// backupDocument is the restore-side view of a Backup; nil fields were
// absent (or null) in the document.
type backupDocument struct {
	Books           *[]Book          `json:"books"`
	Users           *[]User          `json:"users"`
	Loans           *[]Loan          `json:"loans"`
	Settings        *LibrarySettings `json:"settings"`
	Specializations *[]string        `json:"specializations"`
}

// BackupFileName is the download name for a backup taken at t.
func BackupFileName(t time.Time) string {
	return "library_backup_" + t.UTC().Format(time.DateOnly) + ".json"
}

// Export returns a verbatim copy of every collection.
func (lm *LibraryManager) Export() Backup {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.export()
}

func (lm *LibraryManager) export() Backup {
	return Backup{
		Books:           cloneAll(lm.cur.Books),
		Users:           cloneAll(lm.cur.Users),
		Loans:           cloneAll(lm.cur.Loans),
		Settings:        lm.cur.Settings.clone(),
		Specializations: cloneRecords(lm.cur.Specializations),
		Date:            lm.now().UTC(),
	}
}

// WriteBackup records the backup time in the settings and then writes the
// export to w as JSON. Nothing reaches w if the settings cannot be saved.
func (lm *LibraryManager) WriteBackup(ctx context.Context, w io.Writer) (Backup, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	b := lm.export()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(b); err != nil {
		return Backup{}, fmt.Errorf("encode backup: %w", err)
	}

	next := lm.cur
	stamp := b.Date
	next.Settings.LastBackupDate = &stamp
	if err := lm.commit(ctx, next, SlotSettings); err != nil {
		return Backup{}, err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return Backup{}, fmt.Errorf("write backup: %w", err)
	}
	lm.log.Info("backup written", zap.Time("date", b.Date), zap.Int("books", len(b.Books)))
	lm.notify("Backup created")
	return b, nil
}

func parseBackup(r io.Reader) (backupDocument, []string, error) {
	var doc backupDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return doc, nil, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}

	var slots []string
	if doc.Books != nil {
		if _, err := appendRecords([]Book{}, *doc.Books...); err != nil {
			return doc, nil, fmt.Errorf("%w: books: %v", ErrMalformedBackup, err)
		}
		for _, bk := range *doc.Books {
			if err := validateBook(bk); err != nil {
				return doc, nil, fmt.Errorf("%w: book %q: %w", ErrMalformedBackup, bk.ID, err)
			}
		}
		slots = append(slots, SlotBooks)
	}
	if doc.Users != nil {
		if _, err := appendRecords([]User{}, *doc.Users...); err != nil {
			return doc, nil, fmt.Errorf("%w: users: %v", ErrMalformedBackup, err)
		}
		slots = append(slots, SlotUsers)
	}
	if doc.Loans != nil {
		if _, err := appendRecords([]Loan{}, *doc.Loans...); err != nil {
			return doc, nil, fmt.Errorf("%w: loans: %v", ErrMalformedBackup, err)
		}
		slots = append(slots, SlotLoans)
	}
	if doc.Settings != nil {
		if err := doc.Settings.validate(); err != nil {
			return doc, nil, fmt.Errorf("%w: settings: %w", ErrMalformedBackup, err)
		}
		slots = append(slots, SlotSettings)
	}
	if doc.Specializations != nil {
		slots = append(slots, SlotSpecializations)
	}
	if len(slots) == 0 {
		return doc, nil, fmt.Errorf("%w: no collections in document", ErrMalformedBackup)
	}
	return doc, slots, nil
}

// Restore replaces every collection present in the backup read from r;
// collections missing from the document are left alone. The document is
// fully parsed and checked before anything is written, and all replaced
// slots are saved in one store write. Afterwards the manager reloads its
// whole state from the store and clears the activity feed.
func (lm *LibraryManager) Restore(ctx context.Context, r io.Reader) error {
	doc, slots, err := parseBackup(r)
	if err != nil {
		return err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	if doc.Books != nil {
		next.Books = *doc.Books
	}
	if doc.Users != nil {
		next.Users = *doc.Users
	}
	if doc.Loans != nil {
		next.Loans = *doc.Loans
	}
	if doc.Settings != nil {
		next.Settings = *doc.Settings
	}
	if doc.Specializations != nil {
		next.Specializations = *doc.Specializations
	}
	if err := lm.commit(ctx, next, slots...); err != nil {
		return err
	}
	if err := lm.reload(ctx); err != nil {
		return err
	}
	lm.feed.Reset()
	lm.log.Info("backup restored", zap.Strings("slots", slots))
	lm.notify("Backup restored")
	return nil
}
