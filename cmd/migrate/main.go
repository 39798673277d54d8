// ABOUTME: Migration utility copying the CRM snapshot between persistence backends.
// ABOUTME: Provides dry-run and backup capabilities for safe backend switches.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/harperreed/funnel/db"
	"github.com/harperreed/funnel/store"
)

func main() {
	from := flag.String("from", "", "Source location as kind:path, e.g. json:crm.json (required)")
	to := flag.String("to", "", "Destination location as kind:path, e.g. sqlite:crm.db (required)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Back up an existing json destination before overwriting it")
	force := flag.Bool("force", false, "Overwrite a destination that already holds data")
	flag.Parse()

	if *from == "" || *to == "" {
		log.Fatal("Error: -from and -to flags are required")
	}

	if err := migrate(context.Background(), *from, *to, *dryRun, *backup, *force); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migration completed successfully")
}

func migrate(ctx context.Context, from, to string, dryRun, createBackup, force bool) error {
	srcKind, srcPath := db.ParseLocation(from)
	dstKind, dstPath := db.ParseLocation(to)
	if srcKind == dstKind && srcPath == dstPath {
		return fmt.Errorf("source and destination are the same: %s", from)
	}

	src, err := db.Open(srcKind, srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	snap, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}
	// Stage labels and empty collections are written in canonical form.
	snap = store.FromSnapshot(snap).Snapshot()

	log.Printf("Source %s:%s holds %d contact(s), %d lead(s), %d campaign(s), %d document(s)",
		srcKind, srcPath, len(snap.Contacts), len(snap.Leads), len(snap.Campaigns), len(snap.Documents))

	if dryRun {
		log.Printf("[DRY RUN] Would write %d entities to %s:%s", snap.Len(), dstKind, dstPath)
		return nil
	}

	if createBackup && dstKind == db.KindJSON {
		if err := backupFile(dstPath); err != nil {
			return err
		}
	}

	dst, err := db.Open(dstKind, dstPath)
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}
	defer func() { _ = dst.Close() }()

	existing, err := dst.Load(ctx)
	if err != nil && !errors.Is(err, db.ErrCorruptSnapshot) {
		return fmt.Errorf("failed to inspect destination: %w", err)
	}
	if existing != nil && existing.Len() > 0 && !force {
		return fmt.Errorf("destination already holds %d entities (use -force to overwrite)", existing.Len())
	}

	if err := dst.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to write destination: %w", err)
	}
	log.Printf("Wrote %d entities to %s:%s", snap.Len(), dstKind, dstPath)
	return nil
}

func backupFile(path string) error {
	input, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read destination: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	log.Printf("Creating backup: %s", backupPath)
	if err := os.WriteFile(backupPath, input, 0600); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	return nil
}
