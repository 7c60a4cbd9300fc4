package library

import "github.com/shopspring/decimal"

// SeedBooks is the catalog a fresh installation starts with.
func SeedBooks() []Book {
	return []Book{
		{
			ID: "1624", Code: "1624", InventoryNumber: "0.00",
			Title: "إدارة الأعمال وإدارة المستشفيات الجزء الأول", Author: "محمد عبد المنعم شعيب",
			Specialization: "إدارة صحية", Department: "العلوم الصحية",
			Cabinet: "F9", BookShelfNumber: "1", ShelfOrder: "رف 1",
			Copies: 2, RemainingCopies: 2, EditionYear: "2013", EntryDate: "2024-02-10",
			Parts: 0, Price: decimal.Zero,
		},
		{
			ID: "1625", Code: "1625", InventoryNumber: "0.00",
			Title: "الإدارة الصحية وإدارة المستشفيات الجزء الثاني", Author: "محمد عبد المنعم شعيب",
			Specialization: "إدارة صحية", Department: "العلوم الصحية",
			Cabinet: "F9", BookShelfNumber: "3", ShelfOrder: "رف 1",
			Copies: 2, RemainingCopies: 1, EditionYear: "2014", EntryDate: "2024-02-10",
			Parts: 0, Price: decimal.Zero,
		},
		{
			ID: "1626", Code: "1626", InventoryNumber: "0.00",
			Title: "قاموس المصطلحات الطبية الموحد", Author: "د. أحمد شفيق",
			Specialization: "قواميس ومعاجم", Department: "العلوم الصحية",
			Cabinet: "D1", BookShelfNumber: "5", ShelfOrder: "رف 2",
			Copies: 5, RemainingCopies: 5, EditionYear: "2020", EntryDate: "2024-01-15",
			Parts: 1, Price: decimal.NewFromInt(150),
		},
		{
			ID: "1627", Code: "1627", InventoryNumber: "0.00",
			Title: "مجلة البحوث الصحية - العدد 45", Author: "هيئة التحرير",
			Specialization: "دوريات علمية", Department: "الدوريات",
			Cabinet: "M1", BookShelfNumber: "12", ShelfOrder: "رف 3",
			Copies: 10, RemainingCopies: 10, EditionYear: "2024", EntryDate: "2024-03-01",
			Parts: 1, Price: decimal.NewFromInt(50),
		},
	}
}

// SeedUsers are the accounts a fresh installation starts with.
func SeedUsers() []User {
	return []User{
		{
			ID: "admin", Name: "المسؤول الرئيسي", Email: "admin@library.edu", Password: "admin",
			Role: RoleAdmin, Status: UserActive, JoinDate: "2023-01-01", Department: "الإدارة", Visits: 142,
		},
		{
			ID: "1001", Name: "أحمد محمد", Email: "student1@uni.edu", Password: "2002",
			Role: RoleStudent, Status: UserActive, JoinDate: "2023-09-01", Department: "علوم الحاسوب", Visits: 15,
		},
		{
			ID: "2001", Name: "د. سارة علي", Email: "dr.sara@uni.edu", Password: "4002",
			Role: RoleProfessor, Status: UserActive, JoinDate: "2022-01-15", Department: "العلوم الصحية", Visits: 45,
		},
	}
}

// DefaultSettings is the configuration used until settings are first saved.
func DefaultSettings() LibrarySettings {
	all := RolePermissions{Borrow: true, Search: true, Digital: true}
	return LibrarySettings{
		Name:               "المكتبة الجامعية المركزية",
		Institution:        "جامعة القاهرة",
		Email:              "library@university.edu.eg",
		Phone:              "02-12345678",
		CopyrightText:      "جميع الحقوق محفوظة © 2024",
		BackupIntervalDays: 7,
		DashboardMode:      DashboardAuto,
		VisibleStats: VisibleStats{
			Students: true, Books: true, Journals: true,
			Professors: true, Borrowed: true, Available: true,
		},
		PrivacyLevel:    PrivacyMedium,
		SecurityOptions: SecurityOptions{ActivityLog: true},
		Permissions:     Permissions{Student: all, Professor: all, Staff: all, Admin: all},
	}
}

// SeedSpecializations derives the category list from books, keeping first
// appearance order.
func SeedSpecializations(books []Book) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, b := range books {
		if _, ok := seen[b.Specialization]; ok || b.Specialization == "" {
			continue
		}
		seen[b.Specialization] = struct{}{}
		out = append(out, b.Specialization)
	}
	return out
}
