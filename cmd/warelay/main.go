package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/mattjoyce/warelay/internal/config"
	"github.com/mattjoyce/warelay/internal/doctor"
	"github.com/mattjoyce/warelay/internal/forward"
	"github.com/mattjoyce/warelay/internal/log"
	"github.com/mattjoyce/warelay/internal/webhook"
	"gopkg.in/yaml.v3"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const defaultEnvFile = ".env"

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	// Bare invocation starts the relay, like `node server.js`.
	if len(cliArgs) < 1 {
		return runStart(nil)
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	case "start":
		if hasHelpFlag(args) {
			printStartHelp()
			return 0
		}
		return runStart(args)
	case "config":
		return runConfigNoun(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: warelay version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("warelay %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalizedBuildTime, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalizedBuildTime
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`warelay - WhatsApp Cloud API to Camunda webhook relay

Usage:
  warelay [command] [flags]

Commands:
  start             Run the relay in the foreground (default)
  config check      Validate configuration and report risky settings
  config show       Print the effective configuration, secrets masked
  version           Show version information
  help              Show this help message

Environment:
  PORT, WA_VERIFY_TOKEN, WA_APP_SECRET, CAMUNDA_WEBHOOK_URL,
  CAMUNDA_BASIC_USER, CAMUNDA_BASIC_PASS, LOG_LEVEL, LOG_FORMAT,
  WEBHOOK_PATH, FORWARD_TIMEOUT, MAX_BODY_SIZE

Values from .env are used when the variable is not set in the process.
`)
}

func printStartHelp() {
	fmt.Println("Usage: warelay start [--config <file>] [--env-file <file>]")
	fmt.Println("Start the relay in the foreground. Stops on SIGINT or SIGTERM.")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: warelay config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, show")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: warelay config check [--config <file>] [--env-file <file>] [--json] [--strict]")
	fmt.Println("Exit codes: 0 valid, 1 invalid, 2 warnings with --strict.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: warelay config show [--config <file>] [--env-file <file>] [--json]")
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}

	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML configuration file")
	envFile := fs.String("env-file", defaultEnvFile, "Path to dotenv file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	strict := fs.Bool("strict", false, "Exit non-zero on warnings")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	// Unvalidated, so the report lists every problem rather than the first.
	cfg, err := config.LoadUnvalidated(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if *strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML configuration file")
	envFile := fs.String("env-file", defaultEnvFile, "Path to dotenv file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	redacted := cfg.Redacted()
	if *jsonOut {
		data, _ := json.MarshalIndent(redacted, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(redacted)
		fmt.Print(string(data))
	}
	return 0
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML configuration file")
	envFile := fs.String("env-file", defaultEnvFile, "Path to dotenv file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("warelay starting", "version", version, "config_fingerprint", cfg.Fingerprint())

	for _, w := range doctor.New(cfg).Validate().Warnings {
		logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhook", "error", err)
		return 1
	}

	forwarder := forward.New(forward.Config{
		URL:       cfg.Forward.URL,
		Username:  cfg.Forward.Username,
		Password:  cfg.Forward.Password,
		Timeout:   cfg.Forward.Timeout,
		UserAgent: "warelay/" + currentVersionInfo().Version,
	})

	server := webhook.New(webhookConfig, forwarder, log.WithComponent("webhook"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
	}()

	logger.Info("warelay running (press Ctrl+C to stop)",
		"listen", webhookConfig.Listen,
		"path", webhookConfig.Path,
		"health", webhook.HealthPath,
	)

	return awaitShutdown(logger, cancel, sigCh, errCh, done)
}

// awaitShutdown blocks until a signal or a component failure. After a
// signal it waits for the server to finish and reports a failed shutdown
// as exit code 1.
func awaitShutdown(logger *slog.Logger, cancel context.CancelFunc, sigCh <-chan os.Signal, errCh <-chan error, done <-chan struct{}) int {
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		<-done
		select {
		case err := <-errCh:
			logger.Error("shutdown failed", "error", err)
			return 1
		default:
		}
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("warelay stopped")
	return 0
}
