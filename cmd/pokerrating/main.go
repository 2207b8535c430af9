package main

import (
	"github.com/alecthomas/kong"

	"github.com/lox/pokerrating/internal/config"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	Config  string `short:"c" default:"${config_file}" type:"path" help:"HCL configuration file"`
	Debug   bool   `help:"Enable debug logging"`
	LogJSON bool   `name:"log-json" help:"Log JSON instead of console output"`
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the rating REST API"`
	Rate    RateCmd          `cmd:"" help:"Rate a hand file against the oracle without storing it"`
	Rating  RatingCmd        `cmd:"" help:"Print a stored rating document"`
	Reset   ResetCmd         `cmd:"" help:"Reset a stored rating"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokerrating"),
		kong.Description("Poker decision rating service"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":     version,
			"config_file": config.DefaultFile,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
