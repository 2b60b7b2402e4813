// Command gengames loads synthetic play-by-play data into the sqlite store
// so a batch run has something to chew on.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/okian/tempo/internal/adapters/store"
	"github.com/okian/tempo/internal/testgames"
	"github.com/okian/tempo/pkg/logger"
)

func main() {
	dbPath := flag.String("db", "tempo.db", "sqlite database path")
	games := flag.Int("games", 100, "number of games to generate")
	seed := flag.Int64("seed", 1, "generator seed")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	ctx := context.Background()

	db, err := store.New(*dbPath)
	if err != nil {
		log.Error(ctx, "opening store failed", logger.String("db", *dbPath), logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	gen := testgames.New(*seed)
	total := 0
	for _, g := range gen.Games(*games) {
		if err := db.InsertRawEvents(ctx, g.Raw); err != nil {
			log.Error(ctx, "inserting events failed", logger.String("gameID", g.GameID), logger.Error(err))
			os.Exit(1)
		}
		total += len(g.Raw)
	}
	log.Info(ctx, "synthetic games loaded",
		logger.Int("games", *games),
		logger.Int("events", total),
		logger.Int64("seed", *seed),
	)
}
