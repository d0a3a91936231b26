package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	webfetch "github.com/web-fetch/web-fetch"
)

var (
	// CLI flags
	methodFlag         string
	modeFlag           string
	redirectFlag       string
	headerFlags        []string
	bodyFlag           string
	preflightFlag      bool
	localOnlyFlag      bool
	configFlag         string
	verbosityTraceFlag bool

	// this is set by goreleaser
	version string
)

var rootCmd = &cobra.Command{
	Use:   "web-fetch <url>",
	Short: "Fetch a URL the way a browser's network layer would",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&methodFlag, "method", "X", "GET", "Request method")
	rootCmd.Flags().StringVar(&modeFlag, "mode", "no-cors", "Request mode: no-cors, same-origin, cors, navigate")
	rootCmd.Flags().StringVar(&redirectFlag, "redirect", "follow", "Redirect mode: follow, error, manual")
	rootCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	rootCmd.Flags().StringVarP(&bodyFlag, "data", "d", "", "Request body")
	rootCmd.Flags().BoolVar(&preflightFlag, "preflight", false, "Force a CORS preflight")
	rootCmd.Flags().BoolVar(&localOnlyFlag, "local-only", false, "Refuse non-local URLs")
	rootCmd.Flags().StringVar(&configFlag, "config", "", "YAML config file")
	rootCmd.Flags().BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")

	if version == "" {
		version = "DEV"
	}
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	logLevel := zerolog.WarnLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).
		Output(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Str("version", version).Logger()

	var config Config
	if configFlag != "" {
		var err error
		if config, err = getConfig(configFlag); err != nil {
			return fmt.Errorf("cannot read config: %w", err)
		}
	}

	u, err := url.Parse(args[0])
	if err != nil {
		return fmt.Errorf("cannot parse url: %w", err)
	}

	req := webfetch.NewRequest(u, webfetch.OriginFromURL(u))
	req.Mode, err = parseMode(modeFlag)
	if err != nil {
		return err
	}
	redirectMode, err := parseRedirect(redirectFlag)
	if err != nil {
		return err
	}
	req.SetRedirectMode(redirectMode)
	req.SetMethod(strings.ToUpper(methodFlag))
	req.UseCORSPreflight = preflightFlag
	req.LocalURLsOnly = localOnlyFlag
	if bodyFlag != "" {
		req.Body = []byte(bodyFlag)
	}
	for name, value := range config.Headers {
		req.Headers.Set(name, value)
	}
	for _, h := range headerFlags {
		name, value, found := strings.Cut(h, ":")
		if !found {
			return fmt.Errorf("malformed header %q, want 'Name: value'", h)
		}
		req.Headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	fetcher := webfetch.New(webfetch.Config{UserAgent: config.UserAgent})
	res := fetcher.FetchSync(context.Background(), req)
	return printResponse(res)
}

func parseMode(s string) (webfetch.RequestMode, error) {
	switch s {
	case "no-cors":
		return webfetch.ModeNoCORS, nil
	case "same-origin":
		return webfetch.ModeSameOrigin, nil
	case "cors":
		return webfetch.ModeCORS, nil
	case "navigate":
		return webfetch.ModeNavigate, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func parseRedirect(s string) (webfetch.RedirectMode, error) {
	switch s {
	case "follow":
		return webfetch.RedirectFollow, nil
	case "error":
		return webfetch.RedirectError, nil
	case "manual":
		return webfetch.RedirectManual, nil
	}
	return 0, fmt.Errorf("unknown redirect mode %q", s)
}

func printResponse(res *webfetch.Response) error {
	if res.IsNetworkError() {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "network error")
		os.Exit(1)
	}

	statusColor := color.New(color.FgGreen, color.Bold)
	switch {
	case res.StatusCode >= 500:
		statusColor = color.New(color.FgRed, color.Bold)
	case res.StatusCode >= 400:
		statusColor = color.New(color.FgYellow, color.Bold)
	case res.StatusCode >= 300:
		statusColor = color.New(color.FgCyan, color.Bold)
	case res.StatusCode == 0:
		// opaque responses suppress the status line
		statusColor = color.New(color.Faint)
	}
	statusColor.Printf("%d %s", res.StatusCode, res.StatusText)
	color.New(color.Faint).Printf("  (%s)\n", res.Type)

	names := make([]string, 0, len(res.Headers))
	for name := range res.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	keyColor := color.New(color.FgCyan)
	for _, name := range names {
		for _, value := range res.Headers.Values(name) {
			keyColor.Printf("%s", name)
			fmt.Printf(": %s\n", value)
		}
	}

	if body := res.Body.Bytes(); len(body) > 0 {
		fmt.Println()
		os.Stdout.Write(body)
		if body[len(body)-1] != '\n' {
			fmt.Println()
		}
	}
	return nil
}
