package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/digkill/resumegate/internal/client"
	"github.com/digkill/resumegate/internal/clientcache"
)

type globalOptions struct {
	server    string
	cachePath string
	timeout   time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "resumectl",
		Short:         "resumectl - command line client for the resume generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("RESUMEGATE_URL", "http://localhost:8080"), "Base URL of the service")
	root.PersistentFlags().StringVar(&opts.cachePath, "cache", defaultCachePath(), "Path to the local entitlement cache")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "Request timeout")

	root.AddCommand(
		newVerifyCmd(opts),
		newGenerateCmd(opts),
		newCreditsCmd(opts),
		newClearCmd(opts),
		newPackagesCmd(),
	)
	return root
}

func (o *globalOptions) openCache() (*clientcache.Cache, error) {
	return clientcache.Load(o.cachePath)
}

func (o *globalOptions) openClient() (*client.Client, error) {
	cache, err := o.openCache()
	if err != nil {
		return nil, err
	}
	return client.New(o.server, cache, o.timeout), nil
}

func defaultCachePath() string {
	if p := os.Getenv("RESUMEGATE_CACHE"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".resumegate.json"
	}
	return filepath.Join(dir, "resumegate", "cache.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
