package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghax-org/dtoken/internal/acme"
	"github.com/ghax-org/dtoken/internal/auth"
	"github.com/ghax-org/dtoken/internal/codec"
	"github.com/ghax-org/dtoken/internal/config"
	"github.com/ghax-org/dtoken/internal/db"
	"github.com/ghax-org/dtoken/internal/logging"
	"github.com/ghax-org/dtoken/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveFlags struct {
	configPath string
	httpPort   int
	httpsPort  int
	apiPort    int
	dbPath     string
	lbHeader   string
	apiSecret  string
	tlsCert    string
	tlsKey     string
	acmeDomain string
	acmeEmail  string
	acmeStage  bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the token-issuing HTTP server and API",
	Long: `Run two listeners: an HTTP server that mints a token for every request
it sees (returned in the X-Dtoken response header), and a JSON API for
explicit encoding and browsing the issued-token log.

TLS modes for the token listener:
  --tls-cert + --tls-key      manual certificates
  --acme-domain               automatic certificates via Let's Encrypt
  (neither)                   plain HTTP`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringVar(&serveFlags.configPath, "config", os.Getenv("DTOKEN_CONFIG"), "path to YAML config file")
	f.IntVar(&serveFlags.httpPort, "http-port", 0, "HTTP port for the token listener")
	f.IntVar(&serveFlags.httpsPort, "https-port", 0, "HTTPS port for the token listener")
	f.IntVar(&serveFlags.apiPort, "api-port", 0, "API port")
	f.StringVar(&serveFlags.dbPath, "db", "", "issued-token database path")
	f.StringVar(&serveFlags.lbHeader, "lb-header", "", "trusted header carrying the load balancer address")
	f.StringVar(&serveFlags.apiSecret, "api-secret", "", "bearer secret guarding the API")
	f.StringVar(&serveFlags.tlsCert, "tls-cert", "", "path to TLS certificate file (manual TLS mode)")
	f.StringVar(&serveFlags.tlsKey, "tls-key", "", "path to TLS key file (manual TLS mode)")
	f.StringVar(&serveFlags.acmeDomain, "acme-domain", "", "domain for automatic TLS via ACME")
	f.StringVar(&serveFlags.acmeEmail, "acme-email", "", "email for Let's Encrypt notifications")
	f.BoolVar(&serveFlags.acmeStage, "acme-staging", false, "use Let's Encrypt staging CA")
}

// applyServeFlags lays explicitly set flags over the loaded configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("http-port") {
		cfg.HTTPPort = serveFlags.httpPort
	}
	if cmd.Flags().Changed("https-port") {
		cfg.HTTPSPort = serveFlags.httpsPort
	}
	if cmd.Flags().Changed("api-port") {
		cfg.APIPort = serveFlags.apiPort
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = serveFlags.dbPath
	}
	if cmd.Flags().Changed("lb-header") {
		cfg.LBHeader = serveFlags.lbHeader
	}
	if cmd.Flags().Changed("api-secret") {
		cfg.APISecret = serveFlags.apiSecret
	}
	if cmd.Flags().Changed("tls-cert") {
		cfg.TLSCertFile = serveFlags.tlsCert
	}
	if cmd.Flags().Changed("tls-key") {
		cfg.TLSKeyFile = serveFlags.tlsKey
	}
	if cmd.Flags().Changed("acme-domain") {
		cfg.ACMEDomain = serveFlags.acmeDomain
	}
	if cmd.Flags().Changed("acme-email") {
		cfg.ACMEEmail = serveFlags.acmeEmail
	}
	if cmd.Flags().Changed("acme-staging") {
		cfg.ACMEStaging = serveFlags.acmeStage
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveFlags.configPath)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	issuer := &server.TokenIssuer{
		DB:       database,
		Schema:   codec.V0,
		LBHeader: cfg.LBHeader,
		Logger:   logger.Named("http"),
	}

	apiSrv := &server.APIServer{
		DB:     database,
		Schema: codec.V0,
		Logger: logger.Named("api"),
	}
	if cfg.APISecret != "" {
		apiSrv.SecretHash = auth.HashSecret(cfg.APISecret)
	}

	httpSrv := server.NewManagedServer("http",
		fmt.Sprintf(":%d", cfg.HTTPPort), issuer.Handler(), nil, logger.Named("http"))
	logger.Info("starting http server", logging.Port(cfg.HTTPPort))
	httpSrv.Start()
	if err := httpSrv.WaitForStartup(500 * time.Millisecond); err != nil {
		return err
	}

	apiManaged := server.NewManagedServer("api",
		fmt.Sprintf(":%d", cfg.APIPort), apiSrv.Handler(), nil, logger.Named("api"))
	logger.Info("starting api server", logging.Port(cfg.APIPort))
	apiManaged.Start()
	if err := apiManaged.WaitForStartup(500 * time.Millisecond); err != nil {
		return err
	}

	// TLS modes: manual certificates, ACME, or no HTTPS listener.
	manualTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	acmeMode := !manualTLS && cfg.ACMEDomain != ""

	var httpsSrv *server.ManagedServer
	switch {
	case manualTLS:
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}}
		httpsSrv = server.NewManagedServer("https",
			fmt.Sprintf(":%d", cfg.HTTPSPort), issuer.Handler(), tlsConfig, logger.Named("https"))
		logger.Info("starting https server", logging.Port(cfg.HTTPSPort), logging.TLSMode("manual"))
	case acmeMode:
		manager := acme.NewManager(cfg.ACMEDomain, cfg.ACMEEmail, database,
			cfg.ACMEStaging, logger.Named("certmagic"))

		logger.Info("starting acme certificate acquisition",
			zap.String("domain", cfg.ACMEDomain), zap.Bool("staging", cfg.ACMEStaging))
		if err := manager.Manage(context.Background()); err != nil {
			return fmt.Errorf("ACME certificate acquisition: %w", err)
		}
		logger.Info("acme certificate obtained", zap.String("domain", cfg.ACMEDomain))

		httpsSrv = server.NewManagedServer("https",
			fmt.Sprintf(":%d", cfg.HTTPSPort), issuer.Handler(), manager.TLSConfig(), logger.Named("https"))
		logger.Info("starting https server", logging.Port(cfg.HTTPSPort), logging.TLSMode("acme"))
	default:
		logger.Info("https disabled", zap.String("reason", "no TLS certificates or ACME domain configured"))
	}

	if httpsSrv != nil {
		httpsSrv.Start()
		if err := httpsSrv.WaitForStartup(500 * time.Millisecond); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if httpsSrv != nil {
		httpsSrv.Shutdown(ctx)
	}
	httpSrv.Shutdown(ctx)
	apiManaged.Shutdown(ctx)

	return nil
}
