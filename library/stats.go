package library

import "strings"

// DefaultJournalKeyword marks periodicals in the seed catalog.
const DefaultJournalKeyword = "دوريات"

// Dashboard is what the dashboard shows: the mode in effect and every
// visible statistic by name.
type Dashboard struct {
	Mode   DashboardMode  `json:"mode"`
	Values map[string]int `json:"values"`
}

// ComputeStats counts the automatic dashboard statistics.
func (lm *LibraryManager) ComputeStats() DashboardStats {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.computeStats()
}

func (lm *LibraryManager) computeStats() DashboardStats {
	keyword := lm.journalKeyword
	if keyword == "" {
		keyword = DefaultJournalKeyword
	}
	var s DashboardStats
	for _, u := range lm.cur.Users {
		switch u.Role {
		case RoleStudent:
			s.Students++
		case RoleProfessor, RoleStaff:
			s.Professors++
		}
	}
	s.Books = len(lm.cur.Books)
	for _, b := range lm.cur.Books {
		if strings.Contains(b.Specialization, keyword) {
			s.Journals++
		}
		s.Available += b.RemainingCopies
	}
	for _, l := range lm.cur.Loans {
		if l.Open() {
			s.Borrowed++
		}
	}
	return s
}

// Dashboard returns the statistics for the configured mode, leaving out
// the hidden ones.
func (lm *LibraryManager) Dashboard() Dashboard {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	settings := lm.cur.Settings
	stats := settings.ManualStats
	if settings.DashboardMode != DashboardManual {
		stats = lm.computeStats()
	}
	vis := settings.VisibleStats
	values := make(map[string]int)
	add := func(name string, visible bool, v int) {
		if visible {
			values[name] = v
		}
	}
	add("students", vis.Students, stats.Students)
	add("books", vis.Books, stats.Books)
	add("journals", vis.Journals, stats.Journals)
	add("professors", vis.Professors, stats.Professors)
	add("borrowed", vis.Borrowed, stats.Borrowed)
	add("available", vis.Available, stats.Available)
	mode := settings.DashboardMode
	if mode != DashboardManual {
		mode = DashboardAuto
	}
	return Dashboard{Mode: mode, Values: values}
}
