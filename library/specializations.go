package library

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// mergeSpecializations appends names not already listed. Empty names are
// skipped.
func mergeSpecializations(list []string, names ...string) []string {
	out := cloneRecords(list)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Specializations returns the category list.
func (lm *LibraryManager) Specializations() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return cloneRecords(lm.cur.Specializations)
}

// AddSpecialization adds one category name.
func (lm *LibraryManager) AddSpecialization(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := (&Validator{}).Required("name", name).Err(); err != nil {
		return err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if slices.Contains(lm.cur.Specializations, name) {
		return fmt.Errorf("specialization %q: %w", name, ErrDuplicateID)
	}
	next := lm.cur
	next.Specializations = mergeSpecializations(lm.cur.Specializations, name)
	if err := lm.commit(ctx, next, SlotSpecializations); err != nil {
		return err
	}
	lm.notify("Specialization added: %s", name)
	return nil
}

// AddSpecializations adds every name not already listed; duplicates and
// blanks are skipped. It reports how many were added.
func (lm *LibraryManager) AddSpecializations(ctx context.Context, names []string) (int, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	next.Specializations = mergeSpecializations(lm.cur.Specializations, names...)
	added := len(next.Specializations) - len(lm.cur.Specializations)
	if added == 0 {
		return 0, nil
	}
	if err := lm.commit(ctx, next, SlotSpecializations); err != nil {
		return 0, err
	}
	lm.notify("%d specializations added", added)
	return added, nil
}

// RenameSpecialization renames oldName and rewrites every book filed under
// it, saving the list and the catalog together. Renaming onto an existing
// name merges the two entries. A name no longer listed but still carried by
// books is renamed too, and newName is added to the list. It returns the
// number of books moved.
func (lm *LibraryManager) RenameSpecialization(ctx context.Context, oldName, newName string) (int, error) {
	newName = strings.TrimSpace(newName)
	if err := (&Validator{}).Required("newName", newName).Err(); err != nil {
		return 0, err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	listed := slices.Contains(lm.cur.Specializations, oldName)
	filed := slices.ContainsFunc(lm.cur.Books, func(b Book) bool { return b.Specialization == oldName })
	if !listed && !filed {
		return 0, notFound("specialization", oldName)
	}
	if oldName == newName {
		return 0, nil
	}

	next := lm.cur
	if listed {
		next.Specializations = make([]string, 0, len(lm.cur.Specializations))
		for _, s := range lm.cur.Specializations {
			if s == oldName {
				s = newName
			}
			if slices.Contains(next.Specializations, s) {
				continue
			}
			next.Specializations = append(next.Specializations, s)
		}
	} else {
		next.Specializations = mergeSpecializations(lm.cur.Specializations, newName)
	}

	moved := 0
	next.Books = cloneRecords(lm.cur.Books)
	for i := range next.Books {
		if next.Books[i].Specialization == oldName {
			next.Books[i].Specialization = newName
			moved++
		}
	}
	if err := lm.commit(ctx, next, SlotSpecializations, SlotBooks); err != nil {
		return 0, err
	}
	lm.log.Info("specialization renamed",
		zap.String("from", oldName), zap.String("to", newName), zap.Int("books", moved))
	lm.notify("Specialization renamed: %s -> %s", oldName, newName)
	return moved, nil
}

// DeleteSpecialization removes name from the list only. Books keep the
// name; filters must tolerate categories that are no longer listed.
func (lm *LibraryManager) DeleteSpecialization(ctx context.Context, name string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	idx := slices.Index(lm.cur.Specializations, name)
	if idx < 0 {
		return notFound("specialization", name)
	}
	next := lm.cur
	next.Specializations = slices.Delete(cloneRecords(lm.cur.Specializations), idx, idx+1)
	if err := lm.commit(ctx, next, SlotSpecializations); err != nil {
		return err
	}
	lm.notify("Record deleted")
	return nil
}
