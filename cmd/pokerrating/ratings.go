package main

import (
	"context"
	"encoding/json"
	"os"
)

// RatingCmd prints a stored rating document
type RatingCmd struct {
	App  string `required:"" help:"Application ID"`
	User string `required:"" help:"User ID"`
}

func (c *RatingCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.GetRatingDoc(ctx, c.App, c.User)
	if err != nil {
		return err
	}
	return printJSON(doc)
}

// ResetCmd replaces a rating and clears its history and statistics
type ResetCmd struct {
	App    string `required:"" help:"Application ID"`
	User   string `required:"" help:"User ID"`
	Rating int64  `default:"10000" help:"New rating"`
}

func (c *ResetCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.ResetRating(ctx, c.App, c.User, c.Rating)
	if err != nil {
		return err
	}
	logger.Info().Str("user_id", c.User).Int64("rating", doc.Rating).Msg("Rating reset")
	return printJSON(doc)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
