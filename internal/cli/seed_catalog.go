package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
)

// SeedCatalogCommand loads books into the catalog from a JSON file.
type SeedCatalogCommand struct {
	FilePath     string
	DatabasePath string
	DryRun       bool
	Verbose      bool
}

// seedBook is the JSON shape of one catalog entry in the seed file.
type seedBook struct {
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	ISBN            *string `json:"isbn,omitempty"`
	Genre           string  `json:"genre,omitempty"`
	PublicationYear int     `json:"publication_year,omitempty"`
	Description     string  `json:"description,omitempty"`
	TotalCopies     int     `json:"total_copies"`
}

// NewSeedCatalogCommand creates a new SeedCatalogCommand.
func NewSeedCatalogCommand() *SeedCatalogCommand {
	return &SeedCatalogCommand{}
}

// ParseFlags parses command line flags.
func (cmd *SeedCatalogCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed-catalog", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to a JSON file with an array of books (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be added without making changes")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed-catalog -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load books into the catalog from a JSON file.\n\n")
		fmt.Fprintf(os.Stderr, "The file holds an array of objects with title, author, and optionally\n")
		fmt.Fprintf(os.Stderr, "isbn, genre, publication_year, description, total_copies.\n")
		fmt.Fprintf(os.Stderr, "Books whose ISBN already exists in the catalog are skipped.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s seed-catalog -file ./catalog.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s seed-catalog -file ./catalog.json -dry-run -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		fs.Usage()
		return fmt.Errorf("required flag -file not provided")
	}

	return nil
}

// Run executes the seed command.
func (cmd *SeedCatalogCommand) Run() error {
	fmt.Println("Catalog Seed")
	fmt.Println("============")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	data, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seeds []seedBook
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(seeds) == 0 {
		fmt.Println("No books found in seed file")
		return nil
	}

	fmt.Printf("Found %d books in %s\n", len(seeds), cmd.FilePath)

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := books.NewRepository(db.DB)

	added, skipped, failed := 0, 0, 0
	for _, seed := range seeds {
		if seed.Title == "" || seed.Author == "" {
			if cmd.Verbose {
				fmt.Printf("  skipping entry without title or author: %+v\n", seed)
			}
			failed++
			continue
		}

		if seed.ISBN != nil && *seed.ISBN != "" {
			if _, err := repo.GetByISBN(*seed.ISBN); err == nil {
				if cmd.Verbose {
					fmt.Printf("  skipping %q: ISBN %s already in catalog\n", seed.Title, *seed.ISBN)
				}
				skipped++
				continue
			}
		}

		if cmd.DryRun {
			fmt.Printf("  would add %q by %s (%d copies)\n", seed.Title, seed.Author, seed.TotalCopies)
			added++
			continue
		}

		book := entities.Book{
			Title:           seed.Title,
			Author:          seed.Author,
			ISBN:            seed.ISBN,
			Genre:           seed.Genre,
			PublicationYear: seed.PublicationYear,
			Description:     seed.Description,
			TotalCopies:     seed.TotalCopies,
		}
		if err := repo.Create(&book); err != nil {
			fmt.Printf("  failed to add %q: %v\n", seed.Title, err)
			failed++
			continue
		}
		if cmd.Verbose {
			fmt.Printf("  added %q by %s (%d copies)\n", book.Title, book.Author, book.TotalCopies)
		}
		added++
	}

	fmt.Printf("\nDone: %d added, %d skipped, %d failed\n", added, skipped, failed)
	return nil
}
