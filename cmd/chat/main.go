// Command chat is a single-vendor LLM chat playground served over the web,
// Telegram or the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"llm-chat-playground/internal/adapter/memory"
	"llm-chat-playground/internal/adapter/provider"
	"llm-chat-playground/internal/adapter/telegram"
	"llm-chat-playground/internal/adapter/tui"
	"llm-chat-playground/internal/adapter/web"
	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/usecase/chat"
)

const sweepInterval = time.Minute

type cmdWeb struct {
	Addr string `help:"Listen address, overrides HTTP_ADDR."`
}

type cmdTelegram struct{}

type cmdTUI struct{}

type cmdVendors struct{}

type cli struct {
	Vendor  string `short:"v" help:"Vendor to chat with (openai, anthropic, deepseek, gemini), overrides CHAT_VENDOR."`
	EnvFile string `name:"env-file" default:".env" help:"Path of the .env file to load."`

	Web      cmdWeb      `cmd:"" default:"1" help:"Serve the chat page and its JSON/WebSocket API."`
	Telegram cmdTelegram `cmd:"" help:"Run the chat as a Telegram bot."`
	TUI      cmdTUI      `cmd:"" name:"tui" help:"Chat in the terminal."`
	Vendors  cmdVendors  `cmd:"" help:"List the configured vendors."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("chat stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("chat"),
		kong.Description("Single-vendor LLM chat playground."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// The flag wins over both the environment and the .env file, since
	// godotenv never overrides variables that are already set.
	if c.Vendor != "" {
		if err := os.Setenv("CHAT_VENDOR", c.Vendor); err != nil {
			return err
		}
	}

	cfg, err := config.Load(c.EnvFile)
	if err != nil {
		return err
	}

	command := kctx.Command()
	setupLogging(command, cfg.LogLevel, stdout)

	if command == "vendors" {
		return listVendors(stdout, cfg)
	}

	store := memory.NewStore(cfg.SessionIdleTTL)
	if sweepsIdleSessions(command) {
		go store.Run(ctx, sweepInterval)
	}

	svc := connect(ctx, store, cfg.Selected())

	switch command {
	case "web":
		addr := cfg.HTTPAddr
		if c.Web.Addr != "" {
			addr = c.Web.Addr
		}
		return web.NewServer(svc, cfg).ListenAndServe(ctx, addr)
	case "telegram":
		bot, err := telegram.NewBot(cfg, svc)
		if err != nil {
			return err
		}
		if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		slog.Info("shutdown")
		return nil
	case "tui":
		return tui.Run(ctx, svc)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// sweepsIdleSessions reports whether the front-end's sessions end by going
// idle. Only browser sessions do: their cookie expires after the idle TTL.
// The terminal conversation lives as long as the program, and Telegram
// chats last until /stop.
func sweepsIdleSessions(command string) bool {
	return command == "web"
}

// connect opens the selected vendor. A failed initialization still yields a
// service, one that reports the failure and refuses every exchange.
func connect(ctx context.Context, store *memory.Store, vendor config.VendorConfig) *chat.Service {
	client, err := provider.Open(ctx, vendor)
	if err != nil {
		slog.Error("vendor not connected", "vendor", vendor.Name, "error", err)
		return chat.NewDisconnectedService(store, vendor, err)
	}
	return chat.NewService(store, client, vendor)
}

// setupLogging installs the JSON logger. The terminal UI owns the screen,
// so its logs are dropped.
func setupLogging(command string, level slog.Level, stdout io.Writer) {
	var out io.Writer = stdout
	if command == "tui" {
		out = io.Discard
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
}

func listVendors(w io.Writer, cfg config.Config) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VENDOR\tMODEL\tKEY\tSELECTED")
	for _, name := range cfg.VendorNames() {
		v := cfg.Vendors[name]
		key := "missing (" + v.KeyEnv + ")"
		if v.APIKey != "" {
			key = "set"
		}
		selected := ""
		if name == cfg.Vendor {
			selected = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, v.Model, key, selected)
	}
	return tw.Flush()
}
