package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/narrateapp/narrate-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/narrate/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	highlightCount := 0
	highlightsWithNotes := 0
	byColor := make(map[string]int)
	byBook := make(map[string]int)
	docCount := 0
	checkpointCount := 0

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			switch {
			case strings.HasPrefix(key, "hl:idx:"):
				// Index entries carry no value worth decoding.
			case strings.HasPrefix(key, "hl:"):
				highlightCount++
				err := item.Value(func(val []byte) error {
					var h domain.Highlight
					if err := json.Unmarshal(val, &h); err != nil {
						fmt.Printf("  ! undecodable highlight at %s: %v\n", key, err)
						return nil
					}
					byColor[string(h.Color)]++
					byBook[h.BookID]++
					if h.Note != nil {
						highlightsWithNotes++
					}
					return nil
				})
				if err != nil {
					return err
				}
			case strings.HasPrefix(key, "doc:"):
				docCount++
			case strings.HasPrefix(key, "ckpt:"):
				checkpointCount++
				err := item.Value(func(val []byte) error {
					var c domain.Checkpoint
					if err := json.Unmarshal(val, &c); err != nil {
						return nil
					}
					fmt.Printf("  checkpoint %s -> block %d\n", c.BookID, c.BlockIndex)
					return nil
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}

	fmt.Println()
	fmt.Printf("Highlights:  %d (%d with notes)\n", highlightCount, highlightsWithNotes)
	for color, n := range byColor {
		fmt.Printf("  %-8s %d\n", color, n)
	}
	fmt.Printf("Books:       %d\n", len(byBook))
	for bookID, n := range byBook {
		fmt.Printf("  %-12s %d highlights\n", bookID, n)
	}
	fmt.Printf("Documents:   %d cached\n", docCount)
	fmt.Printf("Checkpoints: %d\n", checkpointCount)
}
