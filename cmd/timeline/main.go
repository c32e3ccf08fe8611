// Command timeline reads and posts to the authenticated home timeline from a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	twitter "github.com/anatolykoptev/go-timeline"
	"github.com/anatolykoptev/go-timeline/captcha"
	"github.com/anatolykoptev/go-timeline/metrics"
	"github.com/anatolykoptev/go-timeline/store"
	"github.com/anatolykoptev/go-timeline/timeline"
)

const usage = `usage: timeline [flags] <command>

commands:
  home           show cached tweets, then the fresh home timeline
  more [pages]   refresh, then load N older pages (default 1)
  post <text>    publish a tweet
  shell          interactive: r refresh, m more, p <text> post, q quit

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	fset := flag.NewFlagSet("timeline", flag.ContinueOnError)
	fset.SetOutput(out)
	fset.Usage = func() {
		fmt.Fprint(out, usage)
		fset.PrintDefaults()
	}
	configPath := fset.String("config", defaultConfigPath(), "YAML config file")
	dbPath := fset.String("db", "", "SQLite cache file (overrides config)")
	limit := fset.Int("limit", 0, "cached tweets shown at startup")
	verbose := fset.Bool("v", false, "debug logging to stderr")
	metricsAddr := fset.String("metrics-addr", "", "serve Prometheus metrics on this address")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() == 0 {
		fset.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	if *dbPath != "" {
		cfg.DB = *dbPath
	}
	if *limit > 0 {
		cfg.RecentLimit = *limit
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	logs := setupLogging(cfg.LogFile, *verbose)
	defer logs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, cfg, fset.Args(), in, out); err != nil {
		slog.Error("command failed", slog.String("command", fset.Arg(0)), slog.Any("error", err))
		fmt.Fprintln(out, "error:", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, cfg config, args []string, in io.Reader, out io.Writer) error {
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr)
		defer srv.Close()
	}

	st, err := store.Open(ctx, store.Config{Path: cfg.DB})
	if err != nil {
		return err
	}
	defer st.Close()

	accounts := twitter.ParseAccounts(cfg.Accounts)
	if len(accounts) == 0 {
		return errors.New("no accounts: set accounts in the config file or TIMELINE_ACCOUNTS")
	}
	clientCfg := twitter.ClientConfig{
		Accounts:     accounts,
		DefaultProxy: cfg.Proxy,
		PageSize:     cfg.PageSize,
		Sessions:     st,
		MetricsHook:  metrics.RecordAPICall,
	}
	if cfg.CapsolverKey != "" {
		clientCfg.CaptchaSolver = captcha.NewCapsolver(cfg.CapsolverKey)
	}
	client, err := twitter.NewClient(ctx, clientCfg)
	if err != nil {
		return err
	}

	queue := store.NewQueue(0)
	defer queue.Close()

	ctl, err := timeline.New(timeline.Config{
		Client:      client,
		Cache:       st,
		Queue:       queue,
		Renderer:    newTermRenderer(out),
		RecentLimit: cfg.RecentLimit,
	})
	if err != nil {
		return err
	}
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ctl.Run(loopCtx)

	switch cmd, rest := args[0], args[1:]; cmd {
	case "home":
		return ctl.Start(ctx)
	case "more":
		pages := 1
		if len(rest) > 0 {
			if pages, err = strconv.Atoi(rest[0]); err != nil || pages < 1 {
				return fmt.Errorf("invalid page count %q", rest[0])
			}
		}
		if err := ctl.Refresh(ctx); err != nil {
			return err
		}
		for range pages {
			if err := ctl.LoadMore(ctx); err != nil {
				return err
			}
		}
		return nil
	case "post":
		_, err := ctl.Compose(ctx, strings.Join(rest, " "))
		return err
	case "shell":
		return shell(ctx, ctl, in, out)
	}
	return fmt.Errorf("unknown command %q", args[0])
}

// shell runs the interactive loop. Operation errors are printed, not fatal.
func shell(ctx context.Context, ctl *timeline.Controller, in io.Reader, out io.Writer) error {
	if err := ctl.Start(ctx); err != nil {
		fmt.Fprintln(out, "refresh failed:", err)
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		var err error
		switch cmd {
		case "":
			continue
		case "r":
			err = ctl.Refresh(ctx)
		case "m":
			err = ctl.LoadMore(ctx)
		case "p":
			_, err = ctl.Compose(ctx, arg)
		case "q":
			return nil
		default:
			fmt.Fprintln(out, "commands: r, m, p <text>, q")
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server failed", slog.String("addr", addr), slog.Any("error", err))
		}
	}()
	slog.Info("serving metrics", slog.String("addr", addr))
	return srv
}
