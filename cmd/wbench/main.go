// Command wbench executes SQL statements against a SQL Gateway from the
// command line: it splits the input script, runs each statement through the
// execution coordinator, and prints the materialized results.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avichaym/flinksql-workbench/executor"
	"github.com/avichaym/flinksql-workbench/gateway"
	"github.com/avichaym/flinksql-workbench/logging"
	"github.com/avichaym/flinksql-workbench/session"
)

func main() {
	gatewayURL := flag.String("gateway", envOr("WBENCH_GATEWAY_URL", "http://localhost:8083"), "SQL gateway base URL")
	logLevel := flag.String("log-level", envOr("WBENCH_LOG_LEVEL", "INFO"), "log level (DEBUG, INFO, WARN, ERROR)")
	debugMode := flag.Bool("debug", false, "log raw gateway traffic")
	scriptFile := flag.String("file", "", "SQL script file; reads stdin when neither -file nor arguments are given")
	sessionProps := flag.String("session-properties", os.Getenv("WBENCH_SESSION_PROPERTIES"), "session properties as key=value pairs separated by commas")
	flag.Parse()

	statements, err := loadStatements(*scriptFile, flag.Args())
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	if len(statements) == 0 {
		printWarning("no statements to execute")
		os.Exit(0)
	}

	logger := logging.New(logging.ParseLevel(*logLevel), os.Stderr)

	gwOpts := gateway.DefaultOptions()
	gwOpts.BaseURL = *gatewayURL
	gwOpts.DebugMode = *debugMode
	gw, err := gateway.NewRestClient(gwOpts, logger)
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	sessions := session.NewCoordinator(gw, session.Options{
		Properties: parseProperties(*sessionProps),
		Logger:     logger,
	})

	execOpts := executor.DefaultOptions()
	execOpts.Logger = logger
	execOpts.DebugMode = *debugMode
	coord := executor.NewCoordinator(gw, sessions, execOpts)

	// Ctrl-C cancels whatever is in flight, then tears the session down.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		coord.CancelAll(cleanupCtx)
	}()

	exitCode := 0
	for i, stmt := range statements {
		printHeader(fmt.Sprintf("[%d/%d] %s", i+1, len(statements), firstLine(stmt)))

		start := time.Now()
		result, err := coord.Execute(ctx, stmt)
		if err != nil {
			printError(err.Error())
			exitCode = 1
			break
		}

		snap := result.Snapshot
		fmt.Println(renderResultTable(snap))
		for _, diag := range snap.Diagnostics {
			printWarning(diag)
		}
		printSuccess(fmt.Sprintf("%s in %s", describeOutcome(snap), time.Since(start).Round(time.Millisecond)))
		fmt.Println()

		if result.Outcome == executor.OutcomeCancelled {
			break
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	coord.CloseSession(closeCtx)

	printMuted(fmt.Sprintf("%d execution(s) recorded in history", len(coord.History())))
	os.Exit(exitCode)
}

// loadStatements reads the script from a file, the arguments, or stdin.
func loadStatements(file string, args []string) ([]string, error) {
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("cannot read script file: %w", err)
		}
		return SplitStatements(string(raw)), nil
	}
	if len(args) > 0 {
		return SplitStatements(strings.Join(args, " ")), nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("cannot read stdin: %w", err)
	}
	return SplitStatements(string(raw)), nil
}

// parseProperties parses "key=value,key=value" into a map.
func parseProperties(raw string) map[string]string {
	props := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return props
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx] + " …"
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
