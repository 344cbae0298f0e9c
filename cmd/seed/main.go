// Command seed inserts a small set of sample books. Records go through the
// book service, so they obey the same validation as API writes.
package main

import (
	"context"
	"flag"

	"github.com/ErickPolzin/Crud/internal/catalog"
	"github.com/ErickPolzin/Crud/internal/config"
	"github.com/ErickPolzin/Crud/internal/db"
	"github.com/ErickPolzin/Crud/internal/repo"
	"github.com/ErickPolzin/Crud/pkg/logger"
	"go.uber.org/zap"
)

type sample struct {
	title, author, isbn, genre string
	year                       catalog.Year
}

var samples = []sample{
	{"Dune", "Frank Herbert", "9780441013593", "Science Fiction", 1965},
	{"The Left Hand of Darkness", "Ursula K. Le Guin", "9780441478125", "Science Fiction", 1969},
	{"Neuromancer", "William Gibson", "9780441569595", "Cyberpunk", 1984},
	{"The Hobbit", "J. R. R. Tolkien", "9780547928227", "Fantasy", 1937},
	{"Beloved", "Toni Morrison", "9781400033416", "Literary Fiction", 1987},
	{"The Name of the Rose", "Umberto Eco", "9780156001311", "Mystery", 1980},
	{"Pride and Prejudice", "Jane Austen", "9780141439518", "Romance", 1813},
	{"Things Fall Apart", "Chinua Achebe", "9780385474542", "Literary Fiction", 1958},
	{"The Remains of the Day", "Kazuo Ishiguro", "9780679731726", "Literary Fiction", 1989},
	{"Foundation", "Isaac Asimov", "9780553293357", "Science Fiction", 1951},
	{"A Wizard of Earthsea", "Ursula K. Le Guin", "9780547773742", "Fantasy", 1968},
	{"The Master and Margarita", "Mikhail Bulgakov", "9780141180144", "Classic", 1967},
}

func (s sample) input() catalog.Input {
	return catalog.Input{
		Title:           &s.title,
		Author:          &s.author,
		ISBN:            &s.isbn,
		PublicationYear: &s.year,
		Genre:           &s.genre,
	}
}

func main() {
	force := flag.Bool("force", false, "insert even when the table already has rows")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewLogger(cfg.ServiceName+"-seed", cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	database, err := db.Connect(cfg.DBDriver, cfg.DBDSN, db.DefaultOptions())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	service := catalog.NewService(repo.NewBookRepository(database, log, cfg.StoreTimeout), nil, log)
	ctx := context.Background()

	existing, err := service.Stats(ctx)
	if err != nil {
		log.Fatal("Failed to count books", zap.Error(err))
	}
	if existing > 0 && !*force {
		log.Info("Books table not empty, skipping seed", zap.Int64("books", existing))
		return
	}

	inserted := 0
	for _, s := range samples {
		book, err := service.Create(ctx, s.input())
		if err != nil {
			log.Error("Failed to seed book", zap.String("title", s.title), zap.Error(err))
			continue
		}
		log.Debug("Seeded book", zap.Int64("id", book.ID), zap.String("title", book.Title))
		inserted++
	}

	log.Info("Seed complete", zap.Int("inserted", inserted), zap.Int("total", len(samples)))
}
