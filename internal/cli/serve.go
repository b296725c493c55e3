package cli

import (
	"fmt"

	"talentrank/internal/engine"
	"talentrank/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for candidate ranking and matching",
	Long: `Start an HTTP server that provides REST API endpoints for candidate
ranking, matching, duplicate scanning and feature extraction.

Available endpoints:
- POST /rank: Rank candidates against a job description
- POST /match: Match one candidate against a job description
- POST /duplicates: Scan the candidate pool for duplicates
- POST /extract: Extract features from candidate or job text
- GET /health: Engine health (remote tier, caches, pool)
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --cert-file and --key-file to serve TLS; both must be set`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")

	// Bind flags to viper config keys
	bindFlag := func(key, flagName string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	bindFlag("server.port", "port")
	bindFlag("server.host", "host")
	bindFlag("server.certFile", "cert-file")
	bindFlag("server.keyFile", "key-file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		CertFile:       cfg.Server.CertFile,
		KeyFile:        cfg.Server.KeyFile,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, eng, serverCfg, logger).Start()
}
