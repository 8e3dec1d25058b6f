package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dianpeng/metricql/api"
	"github.com/dianpeng/metricql/engine"
	"github.com/dianpeng/metricql/exec"
	"github.com/dianpeng/metricql/metricdb"
	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func oops(stage string, err error) {
	fmt.Fprintf(os.Stderr, "ERROR [%s] %s\n", stage, err)
	os.Exit(-1)
}

func readStdin() string {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		oops("read sql", err)
	}
	return string(data)
}

var configFile string

var rootCmd = &cobra.Command{
	Use:           "metricql",
	Short:         "SQL-like queries over a metric store, executed as awk programs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read a query from STDIN and print its results",
	Args:  cobra.NoArgs,
	RunE:  runQuery,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	pf.String("data-dir", "metricql-data", "directory of the metric store")
	pf.Bool("in-memory", false, "keep the metric store in memory only")
	pf.String("log-level", "info", "one of debug, info, warn, error")
	pf.String("log-format", "logfmt", "one of logfmt, json")

	qf := queryCmd.Flags()
	qf.Bool("explain", false, "print the plan of every statement instead of running it")
	qf.String("output", "", "specify path to save output file, default write to STDOUT")
	qf.Bool("no-color", false, "disable colored output")

	serveCmd.Flags().String("listen", ":8080", "address of the HTTP API")

	rootCmd.AddCommand(queryCmd, serveCmd)
}

func setup(cmd *cobra.Command) (*Config, log.Logger, *metricdb.Repository, error) {
	v, err := newViper(cmd.Flags(), configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := loadConfig(v)
	logger := stderrLogger(cfg)

	repo, err := metricdb.Open(metricdb.Options{
		Dir:      cfg.DataDir,
		InMemory: cfg.InMemory,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, repo, nil
}

func runQuery(cmd *cobra.Command, _ []string) error {
	_, logger, repo, err := setup(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	explain, _ := cmd.Flags().GetBool("explain")
	output, _ := cmd.Flags().GetString("output")
	noColor, _ := cmd.Flags().GetBool("no-color")

	var out io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
		noColor = true
	}

	eng := engine.New(metricdb.Tables(repo), logger, nil)
	text := readStdin()

	if explain {
		dump, err := eng.Explain(text)
		if err != nil {
			return err
		}
		return printExplain(out, dump, noColor)
	}

	results, err := eng.Run(cmd.Context(), text)
	if err != nil {
		return err
	}

	f := exec.DefaultFormat()
	f.NoColor = noColor
	for _, res := range results {
		if err := f.Write(out, res); err != nil {
			return err
		}
	}
	return nil
}

func printExplain(w io.Writer, dump string, noColor bool) error {
	header := color.New(color.FgMagenta, color.Bold)
	if noColor {
		header.DisableColor()
	}
	for _, line := range strings.Split(strings.TrimSuffix(dump, "\n"), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "##>") {
			line = header.Sprint(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, repo, err := setup(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng := engine.New(metricdb.Tables(repo), logger, engine.NewMetrics(reg))
	handler := api.NewHandler(repo, eng, logger, api.NewMetrics(reg))

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: api.NewRouter(handler, reg),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "listening", "addr", cfg.Listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		level.Info(logger).Log("msg", "received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		oops(rootCmd.Name(), err)
	}
}
