// Command ovpnbot hands out OpenVPN client configurations over Telegram.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/deixis/ovpnbot"
	"github.com/deixis/ovpnbot/internal/bot"
	"github.com/deixis/ovpnbot/internal/config"
	botmcp "github.com/deixis/ovpnbot/internal/mcp"
	"github.com/deixis/ovpnbot/internal/provision"
	"github.com/deixis/ovpnbot/internal/runner"
	"github.com/deixis/ovpnbot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	log.SetPrefix("ovpnbot: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "serve":
		err = serveMain(args)
	case "mcp":
		err = mcpMain(args)
	case "status":
		err = statusMain(args)
	case "add":
		err = addMain(args)
	case "version":
		fmt.Println(ovpnbot.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "ovpnbot: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: ovpnbot <command> [flags]

Commands:
  serve       Run the Telegram bot
  mcp         Start the MCP server on stdio
  status      Print the VPN server status
  add         Create a client and write its configuration
  version     Print the version
  help        Show this help

Settings come from BOT_TOKEN, WORKING_DIR, SCRIPT_PATH and SECRET_CODE,
optionally via a .env file, plus an optional YAML file (WORKING_DIR/.ovpnbot).

Use "ovpnbot <command> -h" for command-specific flags.`)
}

// configFlags registers the flags shared by every command that loads
// the configuration.
func configFlags(fs *flag.FlagSet) *config.Options {
	opts := &config.Options{}
	fs.StringVar(&opts.EnvFile, "env", "", "path to a .env file (default .env)")
	fs.StringVar(&opts.ConfigFile, "config", "", "path to the YAML config file")
	return opts
}

// --- serve ---

func serveMain(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	opts := configFlags(fs)
	_ = fs.Parse(args)

	cfg, prov, err := setup(*opts, true)
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("connecting to Telegram: %w", err)
	}
	api.Debug = cfg.Debug
	log.Printf("authorized as @%s", api.Self.UserName)

	if cfg.SecretCode == "" {
		log.Printf("warning: %s is not set, server status is disabled", config.EnvSecretCode)
	}

	sessions := session.NewStore(cfg.SessionCapacity(), cfg.SessionTTL())
	b := bot.New(api, prov, sessions, cfg.SecretCode)
	if err := b.RegisterCommands(); err != nil {
		log.Printf("warning: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	log.Printf("serving (script %s, working dir %s)", cfg.ScriptPath, cfg.WorkingDir)
	err = b.Run(ctx, updates)
	if errors.Is(err, context.Canceled) {
		log.Printf("shutting down (%d pending conversations dropped)", sessions.Len())
		return nil
	}
	return err
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	opts := configFlags(fs)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(botmcp.Instructions)
		return nil
	}

	_, prov, err := setup(*opts, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return botmcp.NewServer(prov).Run(ctx, &mcpsdk.StdioTransport{})
}

// --- status ---

func statusMain(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	opts := configFlags(fs)
	_ = fs.Parse(args)

	_, prov, err := setup(*opts, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := prov.ServerStatus(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	fmt.Print(out)
	return nil
}

// --- add ---

func addMain(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	opts := configFlags(fs)
	output := fs.String("o", "", "write the configuration to this file instead of stdout")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ovpnbot add [flags] <client-name>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	name := fs.Arg(0)

	_, prov, err := setup(*opts, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	art, err := prov.ProvisionClient(ctx, name)
	if err != nil {
		prov.Discard(name)
		return fmt.Errorf("add: %w", err)
	}
	defer func() { _ = art.Remove() }()

	data, err := art.Read()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	if *output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*output, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", *output, err)
	}
	log.Printf("wrote %s", *output)
	return nil
}

// --- shared ---

// setup loads and validates the configuration and builds the provisioner
// every command shares.
func setup(opts config.Options, requireToken bool) (*config.Config, *provision.Provisioner, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(requireToken); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	r := &runner.Runner{
		Program:   cfg.ScriptPath,
		WorkDir:   cfg.WorkingDir,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
	}

	return cfg, &provision.Provisioner{
		Runner:    r,
		WorkDir:   cfg.WorkingDir,
		Extension: cfg.Extension(),
		Fallbacks: cfg.Fallbacks(),
		Serialize: cfg.Serialize(),
	}, nil
}
