// Seeds a development database with a cached document, a handful of
// highlights and a reading checkpoint so the API has something to serve
// without the content service running.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/narrateapp/narrate-server/internal/domain"
	"github.com/narrateapp/narrate-server/internal/id"
	"github.com/narrateapp/narrate-server/internal/segment"
	"github.com/narrateapp/narrate-server/internal/store"
)

const seedBookID = "bk-seed"

const seedText = `# The Lighthouse Keeper

The lamp had burned for forty years without pause, and Marit intended to keep it that way.

Every evening she climbed the hundred and twelve steps, trimmed the wick, and polished the lens until the beam could be seen from the shipping lanes.

## A Visitor

The boat arrived on a Tuesday, which was unusual, because nothing arrived on Tuesdays.

Its single passenger carried no luggage, only a letter with a broken seal and her name on the front.`

type seedHighlight struct {
	text       string
	start, end int
	block      int
	color      domain.HighlightColor
	note       string
}

var seedHighlights = []seedHighlight{
	{text: "burned for forty years without pause", start: 13, end: 49, block: 1, color: domain.ColorYellow, note: "opening image"},
	{text: "hundred and twelve steps", start: 30, end: 54, block: 2, color: domain.ColorBlue, note: ""},
	{text: "nothing arrived on Tuesdays", start: 58, end: 85, block: 4, color: domain.ColorGreen, note: "repetition setup"},
}

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/narrate/db")
	}

	st, err := store.New(dbPath, nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	blocks := segment.Segment(seedText)
	doc := domain.NewDocument(seedBookID, seedText, blocks)
	if err := st.PutDocument(ctx, doc); err != nil {
		log.Fatalf("Failed to cache document: %v", err)
	}
	fmt.Printf("Cached document %s with %d blocks\n", seedBookID, len(blocks))

	for _, sh := range seedHighlights {
		highlightID, err := id.Generate("hl")
		if err != nil {
			log.Fatalf("Failed to generate ID: %v", err)
		}

		h := domain.NewHighlight(highlightID, seedBookID, sh.text, sh.start, sh.end, sh.block, sh.color)
		if sh.note != "" {
			h.SetNote(sh.note)
		}

		if err := st.CreateHighlight(ctx, h); err != nil {
			log.Fatalf("Failed to create highlight: %v", err)
		}
		fmt.Printf("Created highlight %s on block %d (%s)\n", highlightID, sh.block, sh.color)
	}

	if err := st.UpsertCheckpoint(ctx, domain.NewCheckpoint(seedBookID, 2)); err != nil {
		log.Fatalf("Failed to save checkpoint: %v", err)
	}
	fmt.Println("Saved checkpoint at block 2")
}
