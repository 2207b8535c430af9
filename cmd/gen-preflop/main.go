// Command gen-preflop regenerates the embedded preflop showdown table.
//
// For each of the 169 starting-hand classes it plays a representative
// combination against every possible opponent holding over random boards.
// A class's showdown percentage is the share of opponent holdings it beats
// more than half of the time.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerrating/internal/deck"
	"github.com/lox/pokerrating/internal/fileutil"
	"github.com/lox/pokerrating/internal/randutil"
)

type CLI struct {
	Output  string `short:"o" default:"internal/equity/preflop_showdown.txt" help:"Output file"`
	Boards  int    `default:"200" help:"Random boards per matchup"`
	Seed    int64  `default:"1" help:"Deterministic RNG seed"`
	Workers int    `default:"0" help:"Parallel workers (0 = GOMAXPROCS)"`
	Debug   bool   `help:"Log every class"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("gen-preflop"),
		kong.Description("Generate the preflop showdown percentage table"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(cli.Run())
}

func (c *CLI) Run() error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "gen-preflop",
	})
	if c.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if c.Boards < 1 {
		return fmt.Errorf("boards must be positive: %d", c.Boards)
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	logger.Info("Generating preflop table", "boards", c.Boards, "seed", c.Seed, "workers", workers)

	values, err := generate(context.Background(), c.Boards, c.Seed, workers, logger)
	if err != nil {
		return err
	}
	data := render(values)
	if err := fileutil.WriteFileAtomic(c.Output, []byte(data), 0o644); err != nil {
		return err
	}
	logger.Info("Wrote preflop table", "file", c.Output, "combos", strings.Count(data, "\n"), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// generate evaluates every starting-hand class in parallel
func generate(ctx context.Context, boards int, seed int64, workers int, logger *log.Logger) (map[deck.StartingHand]float64, error) {
	classes := deck.StartingHands()
	results := make([]float64, len(classes))
	var done atomic.Int32

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, class := range classes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = showdown(class, boards, randutil.Stream(seed, i))
			n := done.Add(1)
			logger.Debug("Class evaluated", "class", class, "showdown", fmt.Sprintf("%.2f", results[i]))
			if n%20 == 0 {
				logger.Info("Progress", "done", n, "total", len(classes))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	values := make(map[deck.StartingHand]float64, len(classes))
	for i, class := range classes {
		values[class] = results[i]
	}
	return values, nil
}

// render expands class values to all 1,326 combinations as "c1 c2 pct" lines
func render(values map[deck.StartingHand]float64) string {
	var sb strings.Builder
	cards := deck.All()
	for j := range cards {
		for i := 0; i < j; i++ {
			hi, lo := cards[j], cards[i]
			fmt.Fprintf(&sb, "%s %s %.2f\n", hi, lo, values[deck.HandClass(hi, lo)])
		}
	}
	return sb.String()
}
