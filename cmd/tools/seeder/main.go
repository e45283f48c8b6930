package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/aranya-labs/backend-vastra/internal/catalog"
)

// Seeds the catalog from a directory of raw product JSON documents. Each file
// goes through the same normalization as the admin import endpoint, so legacy
// export shapes (string prices, category objects, single-image fields) load
// without preprocessing.
func main() {
	dir := flag.String("dir", "seed/products", "directory of product JSON documents")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	repo := catalog.Repo{DB: pool}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("Failed to read seed directory %s: %v", *dir, err)
	}

	var seeded, skipped int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(*dir, entry.Name())
		doc, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		product, err := catalog.NormalizeDoc(doc)
		if err != nil {
			log.Printf("Skipping %s: %v", entry.Name(), err)
			skipped++
			continue
		}
		if err := repo.Upsert(ctx, product); err != nil {
			log.Fatalf("Failed to upsert %s (%s): %v", product.Slug, entry.Name(), err)
		}
		log.Printf("Seeded %s (%s)", product.Name, product.Slug)
		seeded++
	}

	log.Printf("Seeding completed: %d products, %d skipped", seeded, skipped)
}
