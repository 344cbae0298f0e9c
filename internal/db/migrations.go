package db

import (
	"fmt"

	"gorm.io/gorm"
)

type checkConstraint struct {
	name string
	expr string
}

// Row-level guards mirroring the service validation rules, Postgres only;
// sqlite cannot add constraints to an existing table
var bookChecks = []checkConstraint{
	{name: "chk_books_isbn_length", expr: "char_length(isbn) = 13"},
	{name: "chk_books_title_length", expr: "char_length(title) BETWEEN 1 AND 255"},
	{name: "chk_books_author_length", expr: "char_length(author) BETWEEN 1 AND 255"},
	{name: "chk_books_genre_length", expr: "char_length(genre) BETWEEN 1 AND 100"},
	{name: "chk_books_publication_year", expr: "publication_year >= 1000"},
}

// RunMigrations creates or updates the books table
func RunMigrations(db *DB) error {
	if err := db.AutoMigrate(&Book{}); err != nil {
		return err
	}

	if db.Dialector.Name() == DriverPostgres {
		if err := createChecks(db.DB); err != nil {
			return err
		}
	}

	return nil
}

func createChecks(db *gorm.DB) error {
	for _, c := range bookChecks {
		if db.Migrator().HasConstraint(&Book{}, c.name) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE books ADD CONSTRAINT %s CHECK (%s)", c.name, c.expr)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}
	return nil
}
