package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	crf "github.com/crf-service/crf-sdk-go/sdk"
	"github.com/crf-service/crf-sdk-go/sdk/config"
	"github.com/crf-service/crf-sdk-go/sdk/interceptors"
	"github.com/crf-service/crf-sdk-go/sdk/request"
)

// Version information set during build
var (
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:          "crfreq",
	Short:        "Send requests to the CRF service",
	Version:      fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage: true,
}

var getCmd = newCallCmd("get", "Send a GET request", "GET")
var postCmd = newCallCmd("post", "Send a POST request", "POST")
var requestCmd = newCallCmd("request", "Send a request with any method", "")

func newCallCmd(use, short, method string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          use + " <path>",
		Short:        short,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := method
			if m == "" {
				var err error
				if m, err = cmd.Flags().GetString("method"); err != nil {
					return fmt.Errorf("failed to parse --method flag: %w", err)
				}
			}
			return runCall(cmd, m, args[0])
		},
	}
	cmd.Flags().StringArrayP("header", "H", nil, "request header as key:value (repeatable)")
	cmd.Flags().StringArrayP("data", "d", nil, "payload field as key=value (repeatable, repeated keys become arrays)")
	cmd.Flags().Bool("form", false, "send the payload form-encoded instead of JSON")
	cmd.Flags().String("raw", "", "raw request body, overrides --data")
	if method == "" {
		cmd.Flags().StringP("method", "X", "GET", "HTTP method")
	}
	return cmd
}

func runCall(cmd *cobra.Command, method, path string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(cfg, verbose)

	opts := []crf.SDKOption{crf.WithConfig(cfg), crf.WithLogger(logger)}
	if verbose {
		opts = append(opts, crf.WithInterceptor(interceptors.NewLogger(interceptors.LoggerOptions{
			Logger:       logger,
			LogBasicInfo: true,
			LogHeaders:   true,
			LogBody:      true,
			SkipHeaders:  []string{"Authorization"},
		})))
	}
	sdk, err := crf.NewSDK(opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	call, err := buildCall(cmd, method, path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := sdk.Request.Request(ctx, call)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	out, err := render(result)
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to parse --config flag: %w", err)
	}
	v := config.New()
	for flag, key := range map[string]string{"base-url": "base_url", "timeout": "timeout", "token": "token"} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, err
			}
		}
	}
	cfg, err := config.LoadWith(v, path)
	if err != nil {
		return cfg, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

func buildCall(cmd *cobra.Command, method, path string) (request.Config, error) {
	headerFlags, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		return request.Config{}, fmt.Errorf("failed to parse --header flag: %w", err)
	}
	dataFlags, err := cmd.Flags().GetStringArray("data")
	if err != nil {
		return request.Config{}, fmt.Errorf("failed to parse --data flag: %w", err)
	}
	form, _ := cmd.Flags().GetBool("form")
	raw, _ := cmd.Flags().GetString("raw")

	headers, err := parseHeaders(headerFlags)
	if err != nil {
		return request.Config{}, err
	}
	call := request.Config{
		URL:     path,
		Method:  method,
		Headers: headers,
	}
	if form {
		call.DataType = request.DataTypeForm
	}
	if raw != "" {
		call.Data = raw
		return call, nil
	}
	data, err := parseData(dataFlags)
	if err != nil {
		return request.Config{}, err
	}
	if data != nil {
		call.Data = data
	}
	return call, nil
}

func newLogger(cfg config.Config, verbose bool) zerolog.Logger {
	level := cfg.Level()
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("base-url", "", "service base URL")
	rootCmd.PersistentFlags().Duration("timeout", 0, "request timeout")
	rootCmd.PersistentFlags().String("token", "", "bearer token")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log requests and responses")

	rootCmd.AddCommand(getCmd, postCmd, requestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
