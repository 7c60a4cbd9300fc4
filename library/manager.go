package library

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultLoanDays is used when Issue is called without a duration.
const DefaultLoanDays = 14

// Options tunes a LibraryManager. The zero value is usable.
type Options struct {
	Logger           *zap.Logger
	Clock            func() time.Time
	FeedLimit        int
	LoanDurationDays int
	// JournalKeyword marks journal specializations for dashboard statistics.
	JournalKeyword string
}

// state is every collection the application owns.
type state struct {
	Books           []Book
	Users           []User
	Loans           []Loan
	Settings        LibrarySettings
	Specializations []string
}

func (s state) slot(key string) any {
	switch key {
	case SlotBooks:
		return s.Books
	case SlotUsers:
		return s.Users
	case SlotLoans:
		return s.Loans
	case SlotSettings:
		return s.Settings
	case SlotSpecializations:
		return s.Specializations
	}
	panic("library: unknown slot " + key)
}

// LibraryManager is the application-state container. It owns every
// collection; callers get copies and mutate only through its methods.
// Each mutation builds the next state, saves the touched slots in one
// store write, and only then makes the new state visible.
type LibraryManager struct {
	mu    sync.Mutex
	store Store
	cur   state

	log            *zap.Logger
	now            func() time.Time
	feed           *Feed
	loanDays       int
	journalKeyword string
}

// NewLibraryManager loads every collection from store, falling back to seed
// data for slots that were never written.
func NewLibraryManager(ctx context.Context, store Store, opts Options) (*LibraryManager, error) {
	lm := &LibraryManager{
		store:          store,
		log:            opts.Logger,
		now:            opts.Clock,
		feed:           NewFeed(opts.FeedLimit),
		loanDays:       opts.LoanDurationDays,
		journalKeyword: opts.JournalKeyword,
	}
	if lm.log == nil {
		lm.log = zap.NewNop()
	}
	if lm.now == nil {
		lm.now = time.Now
	}
	if lm.loanDays <= 0 {
		lm.loanDays = DefaultLoanDays
	}
	lm.loanDays = min(lm.loanDays, MaxLoanDays)
	if err := lm.Reload(ctx); err != nil {
		return nil, err
	}
	return lm, nil
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

// Reload discards in-memory state and reads every slot again.
func (lm *LibraryManager) Reload(ctx context.Context) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.reload(ctx)
}

func (lm *LibraryManager) reload(ctx context.Context) error {
	var (
		next state
		err  error
	)
	seed := SeedBooks()
	if next.Books, err = LoadSlot(ctx, lm.store, SlotBooks, seed, lm.log); err != nil {
		return err
	}
	if next.Users, err = LoadSlot(ctx, lm.store, SlotUsers, SeedUsers(), lm.log); err != nil {
		return err
	}
	if next.Loans, err = LoadSlot(ctx, lm.store, SlotLoans, []Loan{}, lm.log); err != nil {
		return err
	}
	if next.Settings, err = LoadSlot(ctx, lm.store, SlotSettings, DefaultSettings(), lm.log); err != nil {
		return err
	}
	if next.Specializations, err = LoadSlot(ctx, lm.store, SlotSpecializations, SeedSpecializations(seed), lm.log); err != nil {
		return err
	}
	lm.cur = next
	lm.log.Info("library state loaded",
		zap.Int("books", len(next.Books)),
		zap.Int("users", len(next.Users)),
		zap.Int("loans", len(next.Loans)),
		zap.Int("specializations", len(next.Specializations)),
	)
	return nil
}

// commit persists the given slots of next and installs next as current.
// Caller holds lm.mu.
func (lm *LibraryManager) commit(ctx context.Context, next state, slots ...string) error {
	values := make(map[string]any, len(slots))
	for _, k := range slots {
		values[k] = next.slot(k)
	}
	encoded, err := encodeSlots(values)
	if err != nil {
		return err
	}
	if err := lm.store.Save(ctx, encoded); err != nil {
		lm.log.Error("save failed", zap.Strings("slots", slots), zap.Error(err))
		return fmt.Errorf("save %s: %w", strings.Join(slots, ","), err)
	}
	lm.cur = next
	return nil
}

func (lm *LibraryManager) notify(format string, args ...any) {
	lm.feed.Push(fmt.Sprintf(format, args...))
}

// Notifications returns the recent-activity feed, newest first.
func (lm *LibraryManager) Notifications() []string { return lm.feed.Recent() }

// ------------------ Books ------------------

// Books returns a copy of the catalog.
func (lm *LibraryManager) Books() []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return cloneAll(lm.cur.Books)
}

// GetBook returns the book with id.
func (lm *LibraryManager) GetBook(id string) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	b, ok := findRecord(lm.cur.Books, id)
	if !ok {
		return Book{}, notFound("book", id)
	}
	return b.clone(), nil
}

func validateBook(b Book) error {
	v := &Validator{}
	return v.
		Required("id", b.ID).
		Required("title", b.Title).
		NonNegative("copies", b.Copies).
		NonNegative("remainingCopies", b.RemainingCopies).
		Custom("remainingCopies", b.RemainingCopies > b.Copies, "Must not exceed copies").
		NonNegative("parts", b.Parts).
		Custom("price", b.Price.IsNegative(), "Must not be negative").
		Err()
}

// AddBook appends one book and registers its specialization if new.
func (lm *LibraryManager) AddBook(ctx context.Context, b Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	var err error
	if next.Books, err = appendRecords(lm.cur.Books, b); err != nil {
		return err
	}
	next.Specializations = mergeSpecializations(lm.cur.Specializations, b.Specialization)
	if err := lm.commit(ctx, next, SlotBooks, SlotSpecializations); err != nil {
		return err
	}
	lm.log.Debug("book added", zap.String("book_id", b.ID))
	lm.notify("New book added: %s", b.Title)
	return nil
}

// AddBooks appends every book in one save. Nothing is added if any book is
// invalid or reuses an existing id.
func (lm *LibraryManager) AddBooks(ctx context.Context, books []Book) error {
	names := make([]string, 0, len(books))
	for i, b := range books {
		if err := validateBook(b); err != nil {
			return fmt.Errorf("book %d: %w", i+1, err)
		}
		names = append(names, b.Specialization)
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	var err error
	if next.Books, err = appendRecords(lm.cur.Books, books...); err != nil {
		return err
	}
	next.Specializations = mergeSpecializations(lm.cur.Specializations, names...)
	if err := lm.commit(ctx, next, SlotBooks, SlotSpecializations); err != nil {
		return err
	}
	lm.log.Info("books added", zap.Int("count", len(books)))
	lm.notify("%d books added", len(books))
	return nil
}

// UpdateBook replaces the book sharing b.ID.
func (lm *LibraryManager) UpdateBook(ctx context.Context, b Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	var ok bool
	if next.Books, ok = replaceRecord(lm.cur.Books, b); !ok {
		return notFound("book", b.ID)
	}
	if err := lm.commit(ctx, next, SlotBooks); err != nil {
		return err
	}
	lm.notify("Book updated: %s", b.Title)
	return nil
}

// DeleteBook removes a book. Books with copies still out cannot be deleted.
func (lm *LibraryManager) DeleteBook(ctx context.Context, id string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, l := range lm.cur.Loans {
		if l.BookID == id && l.Open() {
			return fmt.Errorf("book %q: %w", id, ErrActiveLoans)
		}
	}
	next := lm.cur
	var ok bool
	if next.Books, ok = removeRecord(lm.cur.Books, id); !ok {
		return notFound("book", id)
	}
	if err := lm.commit(ctx, next, SlotBooks); err != nil {
		return err
	}
	lm.log.Debug("book deleted", zap.String("book_id", id))
	lm.notify("Record deleted")
	return nil
}

// ------------------ Users ------------------

// Users returns a copy of all accounts.
func (lm *LibraryManager) Users() []User {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return cloneAll(lm.cur.Users)
}

// GetUser returns the user with id.
func (lm *LibraryManager) GetUser(id string) (User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	u, ok := findRecord(lm.cur.Users, id)
	if !ok {
		return User{}, notFound("user", id)
	}
	return u.clone(), nil
}

func normalizeUser(u User) (User, error) {
	if u.Status == "" {
		u.Status = UserActive
	}
	v := &Validator{}
	err := v.
		Required("id", u.ID).
		Required("name", u.Name).
		Custom("role", !u.Role.Valid(), "Must be one of: admin, professor, staff, student").
		OneOf("status", string(u.Status), string(UserActive), string(UserSuspended)).
		NonNegative("visits", u.Visits).
		Err()
	return u, err
}

// AddUser registers one account.
func (lm *LibraryManager) AddUser(ctx context.Context, u User) error {
	u, err := normalizeUser(u)
	if err != nil {
		return err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	if next.Users, err = appendRecords(lm.cur.Users, u); err != nil {
		return err
	}
	if err := lm.commit(ctx, next, SlotUsers); err != nil {
		return err
	}
	lm.notify("New user registered: %s", u.Name)
	return nil
}

// AddUsers registers every account in one save, or none of them.
func (lm *LibraryManager) AddUsers(ctx context.Context, users []User) error {
	normalized := make([]User, 0, len(users))
	for i, u := range users {
		u, err := normalizeUser(u)
		if err != nil {
			return fmt.Errorf("user %d: %w", i+1, err)
		}
		normalized = append(normalized, u)
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	var err error
	if next.Users, err = appendRecords(lm.cur.Users, normalized...); err != nil {
		return err
	}
	if err := lm.commit(ctx, next, SlotUsers); err != nil {
		return err
	}
	lm.log.Info("users added", zap.Int("count", len(users)))
	lm.notify("%d users added", len(users))
	return nil
}

// UpdateUser replaces the account sharing u.ID.
func (lm *LibraryManager) UpdateUser(ctx context.Context, u User) error {
	u, err := normalizeUser(u)
	if err != nil {
		return err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	var ok bool
	if next.Users, ok = replaceRecord(lm.cur.Users, u); !ok {
		return notFound("user", u.ID)
	}
	if err := lm.commit(ctx, next, SlotUsers); err != nil {
		return err
	}
	lm.notify("User updated: %s", u.Name)
	return nil
}

// DeleteUser removes an account. Users still holding copies cannot be deleted.
func (lm *LibraryManager) DeleteUser(ctx context.Context, id string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, l := range lm.cur.Loans {
		if l.UserID == id && l.Open() {
			return fmt.Errorf("user %q: %w", id, ErrActiveLoans)
		}
	}
	next := lm.cur
	var ok bool
	if next.Users, ok = removeRecord(lm.cur.Users, id); !ok {
		return notFound("user", id)
	}
	if err := lm.commit(ctx, next, SlotUsers); err != nil {
		return err
	}
	lm.log.Debug("user deleted", zap.String("user_id", id))
	lm.notify("Record deleted")
	return nil
}

// ------------------ Settings ------------------

// Settings returns the current settings.
func (lm *LibraryManager) Settings() LibrarySettings {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.cur.Settings.clone()
}

// UpdateSettings validates s and replaces the settings wholesale.
func (lm *LibraryManager) UpdateSettings(ctx context.Context, s LibrarySettings) error {
	if err := s.validate(); err != nil {
		return err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	next := lm.cur
	next.Settings = s
	if err := lm.commit(ctx, next, SlotSettings); err != nil {
		return err
	}
	lm.notify("Settings saved")
	return nil
}
