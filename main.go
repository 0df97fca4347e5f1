package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/altsrc-dev/altsrc/altsource"
	"github.com/altsrc-dev/altsrc/internal"
	"github.com/altsrc-dev/altsrc/serve"
	"github.com/altsrc-dev/altsrc/update"
)

type validateCmd struct {
	File string `arg:"positional,env:ALTSRC_FILE" help:"source JSON to validate"`
}

type updateCmd struct {
	Config string `arg:"-c,--config" default:"altsrc.yml" help:"update config file"`
	Hashes bool   `arg:"--hashes" help:"also fill in missing sha256 digests"`
}

type hashesCmd struct {
	File  string `arg:"positional,env:ALTSRC_FILE" help:"source JSON to update"`
	All   bool   `arg:"--all" help:"check every version, not just the newest"`
	Force bool   `arg:"--force" help:"recompute digests that are already set"`
}

type serveCmd struct {
	File string        `arg:"positional,env:ALTSRC_FILE" help:"source JSON to serve"`
	Addr string        `arg:"-a,--addr" default:"127.0.0.1:8081"`
	TTL  time.Duration `arg:"--ttl" default:"30s" help:"how long the served copy is cached"`
}

type args struct {
	Validate *validateCmd `arg:"subcommand:validate" help:"check a source file and report every problem"`
	Update   *updateCmd   `arg:"subcommand:update" help:"pull new builds from the configured upstreams"`
	Hashes   *hashesCmd   `arg:"subcommand:hashes" help:"fill in missing sha256 digests"`
	Serve    *serveCmd    `arg:"subcommand:serve" help:"preview the source over HTTP"`
	LogLevel string       `arg:"--log-level" default:"info"`
}

func (args) Description() string {
	return "altsrc creates and maintains AltStore source files"
}

func main() {
	_ = godotenv.Load()

	var parsed args
	parser := arg.MustParse(&parsed)
	internal.InitLogging(parsed.LogLevel)

	var err error
	switch {
	case parsed.Validate != nil:
		err = runValidate(parsed.Validate)
	case parsed.Update != nil:
		err = runUpdate(parsed.Update)
	case parsed.Hashes != nil:
		err = runHashes(parsed.Hashes)
	case parsed.Serve != nil:
		err = runServe(parsed.Serve)
	default:
		parser.Fail("a subcommand is required")
	}
	if err != nil {
		internal.Logger.Fatal().Err(err).Msg("Command failed")
	}
}

func runValidate(cmd *validateCmd) error {
	src, err := altsource.Load(cmd.File)
	if err != nil {
		return err
	}

	issues := src.Validate()
	for _, issue := range issues {
		fmt.Println(issue)
	}
	if len(issues) > 0 {
		internal.Logger.Error().Int("issues", len(issues)).Str("file", cmd.File).Msg("Source is not valid")
		os.Exit(1)
	}
	internal.Logger.Info().Str("file", cmd.File).Msg("Source is valid")
	return nil
}

func runUpdate(cmd *updateCmd) error {
	cfg, err := update.LoadConfig(cmd.Config)
	if err != nil {
		return err
	}

	src, err := altsource.Load(cfg.Source)
	if err != nil {
		return err
	}

	mgr := update.NewManager(src)
	ctx := context.Background()
	mgr.Apply(ctx, cfg)
	if cmd.Hashes {
		mgr.UpdateHashes(ctx, true, false)
	}

	return src.Save(cfg.Source)
}

func runHashes(cmd *hashesCmd) error {
	src, err := altsource.Load(cmd.File)
	if err != nil {
		return err
	}

	mgr := update.NewManager(src)
	mgr.UpdateHashes(context.Background(), !cmd.All, cmd.Force)

	return src.Save(cmd.File)
}

func runServe(cmd *serveCmd) error {
	internal.Logger.Info().Str("addr", cmd.Addr).Str("file", cmd.File).Msg("Serving source")
	return serve.NewServer(cmd.File, cmd.TTL).Run(cmd.Addr)
}
