// Command import_books rebuilds the SQLite database from a catalog
// spreadsheet: the existing database files are removed, the seed accounts
// and settings are written, and every row of the sheet is added as a book.
//
// Usage: import_books <catalog.xlsx>
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"library-desk/config"
	"library-desk/library"
	"library-desk/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: import_books <catalog.xlsx>")
		os.Exit(2)
	}
	sheetPath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Clean up any existing database files
	fmt.Println("Cleaning up existing database files...")
	for _, file := range []string{cfg.DBPath, cfg.DBPath + "-shm", cfg.DBPath + "-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}
	fmt.Println("Database cleanup complete.")

	f, err := os.Open(filepath.Clean(sheetPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening spreadsheet: %v\n", err)
		os.Exit(1)
	}
	books, err := library.ParseBooksSheet(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading spreadsheet: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := library.NewDatabase(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	manager, err := library.NewLibraryManager(ctx, db, library.Options{Logger: log.Named("library")})
	if err != nil {
		db.Close()
		fmt.Fprintf(os.Stderr, "Error loading library: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	// A fresh database starts from the seed catalog; the spreadsheet
	// replaces it.
	empty := strings.NewReader(`{"books":[],"specializations":[]}`)
	if err := manager.Restore(ctx, empty); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing seed catalog: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Importing %d books from %s...\n", len(books), sheetPath)
	successCount, errorCount := 0, 0
	for _, b := range books {
		fmt.Printf("Importing: %s by %s... ", b.Title, b.Author)
		if err := manager.AddBook(ctx, b); err != nil {
			fmt.Printf("ERROR - %v\n", err)
			log.Debug("book skipped", zap.String("book_id", b.ID), zap.Error(err))
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %s)\n", b.ID)
		successCount++
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nImported books:")
		fmt.Printf("%-8s %-50s %-30s\n", "ID", "Title", "Author")
		fmt.Println(strings.Repeat("-", 90))
		for _, book := range manager.Books() {
			fmt.Printf("%-8s %-50s %-30s\n", book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30))
		}
		fmt.Printf("\nSpecializations: %s\n", strings.Join(manager.Specializations(), ", "))
	}
}

func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
