package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/lox/pokerrating/cmd/pokerrating/shared"
	"github.com/lox/pokerrating/internal/hand"
	"github.com/lox/pokerrating/internal/rules"
)

// RateCmd rates a hand without touching the store
type RateCmd struct {
	File      string `arg:"" type:"existingfile" help:"Hand file, JSON or text notation"`
	OracleURL string `name:"oracle-url" help:"Holdem calculator base URL, overrides the config file"`
	NoColor   bool   `name:"no-color" help:"Disable colored output"`
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	positiveStyle = cellStyle.Foreground(lipgloss.Color("#96CEB4"))
	negativeStyle = cellStyle.Foreground(lipgloss.Color("#FF6B6B"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
)

func (c *RateCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	if c.OracleURL != "" {
		cfg.Oracle.URL = c.OracleURL
	}
	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	h, err := readHand(data)
	if err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}

	ctx, cancel := shared.SignalContext(context.Background(), logger)
	defer cancel()

	cache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	eng, err := newEngine(cfg, logger, cache)
	if err != nil {
		return err
	}
	res, err := eng.Execute(ctx, h)
	if err != nil {
		return err
	}
	return renderDecisions(os.Stdout, h, res.Decisions)
}

// readHand accepts a JSON GameHand or the text notation
func readHand(data []byte) (*hand.GameHand, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var h hand.GameHand
		if err := json.Unmarshal(trimmed, &h); err != nil {
			return nil, fmt.Errorf("decode hand: %w", err)
		}
		return &h, nil
	}
	h, err := hand.ParseText(string(trimmed))
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func renderDecisions(w io.Writer, h *hand.GameHand, decisions []rules.Decision) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ROUND", "TURN", "PLAYER", "ACTION", "RULE", "DECISION", "WIN%", "SHOWDOWN%", "POINTS").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 8 && row < len(decisions) && decisions[row].RatingChange > 0:
				return positiveStyle
			case col == 8 && row < len(decisions) && decisions[row].RatingChange < 0:
				return negativeStyle
			}
			return cellStyle
		})

	for _, d := range decisions {
		t.Row(
			d.Index.Round.String(),
			strconv.Itoa(d.Index.Turn),
			d.UserID(),
			d.Bet.Type.String(),
			d.RuleName,
			d.Name,
			fmt.Sprintf("%.2f", d.Win),
			fmt.Sprintf("%.2f", d.Showdown),
			strconv.FormatInt(d.RatingChange, 10),
		)
	}

	if _, err := fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Session %s (%s)", h.SessionID, h.ApplicationID))); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}

	sums := rules.Sum(decisions)
	for _, u := range slices.Sorted(maps.Keys(sums)) {
		style := lipgloss.NewStyle()
		if sums[u] > 0 {
			style = style.Foreground(positiveStyle.GetForeground())
		} else if sums[u] < 0 {
			style = style.Foreground(negativeStyle.GetForeground())
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", u, style.Render(strconv.FormatInt(sums[u], 10))); err != nil {
			return err
		}
	}
	return nil
}
