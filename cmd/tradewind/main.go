package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/tradewind-lab/tradewind/internal/bot"
	"github.com/tradewind-lab/tradewind/internal/config"
	"github.com/tradewind-lab/tradewind/internal/control"
	"github.com/tradewind-lab/tradewind/internal/marketdata"
	"github.com/tradewind-lab/tradewind/internal/storage"
	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/internal/venue"
	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

// stack is the fully wired process: everything a command needs.
type stack struct {
	cfg     config.Config
	logger  *logger.Logger
	store   storage.Store
	gateway *marketdata.Gateway
	chain   *venue.Chain
	manager *bot.Manager
	service *control.Service
}

func (s *stack) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("store close failed")
	}

	_ = s.logger.Sync()
}

func buildStack(configPath string) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	l, err := logger.NewLoggerWithOptions(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	gateway, err := buildGateway(cfg, l)
	if err != nil {
		return nil, err
	}

	chain, err := buildChain(cfg, gateway, l)
	if err != nil {
		return nil, err
	}

	balances, err := buildBalances(cfg, gateway)
	if err != nil {
		return nil, err
	}

	factory := func(botCfg types.BotConfig) (*bot.Engine, error) {
		return bot.NewEngine(botCfg, gateway, chain, balances, store, l)
	}

	manager := bot.NewManager(bot.NewRegistry(), factory, store, l)
	service := control.NewService(manager, store, chain, l)

	return &stack{
		cfg:     cfg,
		logger:  l,
		store:   store,
		gateway: gateway,
		chain:   chain,
		manager: manager,
		service: service,
	}, nil
}

func buildGateway(cfg config.Config, l *logger.Logger) (*marketdata.Gateway, error) {
	providers := make([]marketdata.Provider, 0, len(cfg.Providers.Order))

	for _, name := range cfg.Providers.Order {
		switch name {
		case "binance":
			providers = append(providers, marketdata.NewBinanceProvider(
				cfg.Venues.BinanceAPIKey, cfg.Venues.BinanceAPISecret))
		case "coingecko":
			providers = append(providers, marketdata.NewCoinGeckoProvider())
		default:
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown provider %q", name)
		}
	}

	return marketdata.NewGateway(providers, l, marketdata.WithPriceTTL(cfg.Providers.PriceTTL))
}

func buildChain(cfg config.Config, gateway *marketdata.Gateway, l *logger.Logger) (*venue.Chain, error) {
	if err := cfg.CredentialCheck(); err != nil {
		return nil, err
	}

	var signer venue.TransactionSigner

	if cfg.Venues.SigningKey != "" {
		s, err := venue.NewLocalSigner("tradewind", cfg.Venues.SigningKey)
		if err != nil {
			return nil, err
		}

		signer = s
	}

	venues := make([]venue.ExecutionVenue, 0, len(cfg.Venues.Order))

	for _, name := range cfg.Venues.Order {
		switch name {
		case "jupiter":
			venues = append(venues, venue.NewJupiterVenue(cfg.Venues.JupiterURL, cfg.Venues.SolanaRPCURL, signer))
		case "raydium":
			venues = append(venues, venue.NewRaydiumVenue(cfg.Venues.RaydiumURL, cfg.Venues.SolanaRPCURL, signer))
		case "exchange":
			ex, err := venue.NewExchangeVenue(cfg.Venues.BinanceAPIKey, cfg.Venues.BinanceAPISecret, signer)
			if err != nil {
				return nil, err
			}

			venues = append(venues, ex)
		case "direct":
			venues = append(venues, venue.NewDirectVenue(gateway.LastKnownPrice, signer, nil))
		default:
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown venue %q", name)
		}
	}

	return venue.NewChain(venues, l)
}

// buildBalances picks the balance source the configured venues imply:
// the exchange account when the exchange venue is in play, otherwise
// the direct venue's simulated wallet.
func buildBalances(cfg config.Config, gateway *marketdata.Gateway) (venue.BalanceSource, error) {
	for _, name := range cfg.Venues.Order {
		if name == "exchange" {
			ex, err := venue.NewExchangeVenue(cfg.Venues.BinanceAPIKey, cfg.Venues.BinanceAPISecret, nil)
			if err != nil {
				return nil, err
			}

			return ex, nil
		}
	}

	var signer venue.TransactionSigner

	if cfg.Venues.SigningKey != "" {
		s, err := venue.NewLocalSigner("tradewind", cfg.Venues.SigningKey)
		if err != nil {
			return nil, err
		}

		signer = s
	}

	return venue.NewDirectVenue(gateway.LastKnownPrice, signer, nil), nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	st, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.manager.RestoreFromStorage(ctx); err != nil {
		return err
	}

	monitor := bot.NewHealthMonitor(st.manager, st.logger, st.cfg.MonitorInterval)
	if err := monitor.Start(ctx); err != nil {
		return err
	}

	st.logger.Info("tradewind running, waiting for signals")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	st.logger.Info("shutting down")
	monitor.Stop()
	st.manager.ShutdownAll(context.WithoutCancel(ctx))

	return nil
}

func configureAction(ctx context.Context, cmd *cli.Command) error {
	st, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := os.ReadFile(cmd.String("file"))
	if err != nil {
		return fmt.Errorf("read bot config: %w", err)
	}

	botCfg := types.DefaultBotConfig(cmd.String("user"))
	if err := yaml.Unmarshal(data, &botCfg); err != nil {
		return fmt.Errorf("parse bot config: %w", err)
	}

	if err := st.service.SaveConfig(ctx, botCfg); err != nil {
		return err
	}

	fmt.Printf("configuration saved for %s\n", botCfg.UserID)

	return nil
}

func startAction(ctx context.Context, cmd *cli.Command) error {
	st, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer st.Close()

	userID := cmd.String("user")

	if err := st.store.SetConfigActive(ctx, userID, true); err != nil {
		return err
	}

	fmt.Printf("bot for %s marked active; the run daemon picks it up on restore\n", userID)

	return nil
}

func stopAction(ctx context.Context, cmd *cli.Command) error {
	st, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer st.Close()

	userID := cmd.String("user")

	if err := st.store.SetConfigActive(ctx, userID, false); err != nil {
		return err
	}

	fmt.Printf("bot for %s marked inactive\n", userID)

	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	st, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer st.Close()

	status, err := st.service.GetStatus(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	return printYAML(status)
}

func logsAction(ctx context.Context, cmd *cli.Command) error {
	st, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.service.GetLogs(ctx, cmd.String("user"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return printYAML(entries)
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	st, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer st.Close()

	trades, err := st.service.GetTradeHistory(ctx, cmd.String("user"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return printYAML(trades)
}

func testTradeAction(ctx context.Context, cmd *cli.Command) error {
	st, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer st.Close()

	side := types.Side(strings.ToUpper(cmd.String("side")))
	if side != types.SideBuy && side != types.SideSell {
		return errors.Newf(errors.ErrCodeInvalidParameter, "side must be buy or sell, got %q", cmd.String("side"))
	}

	result, err := st.service.TestTransaction(ctx, cmd.String("user"), side, cmd.Float("amount"))
	if err != nil {
		return err
	}

	return printYAML(result)
}

func printYAML(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	fmt.Print(string(out))

	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the process config file",
		Sources: cli.EnvVars("TRADEWIND_CONFIG"),
	}
	userFlag := &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "User the bot belongs to",
		Required: true,
	}
	limitFlag := &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Maximum number of entries to show",
		Value:   50,
	}

	cmd := &cli.Command{
		Name:  "tradewind",
		Usage: "Unattended signal and execution engine",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the engine: restore active bots and keep them alive",
				Flags:  []cli.Flag{configFlag},
				Action: runAction,
			},
			{
				Name:   "configure",
				Usage:  "Save a bot configuration from a yaml file",
				Flags:  []cli.Flag{configFlag, userFlag, &cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Bot config yaml", Required: true}},
				Action: configureAction,
			},
			{
				Name:   "start",
				Usage:  "Mark a bot active so the daemon runs it",
				Flags:  []cli.Flag{configFlag, userFlag},
				Action: startAction,
			},
			{
				Name:   "stop",
				Usage:  "Mark a bot inactive",
				Flags:  []cli.Flag{configFlag, userFlag},
				Action: stopAction,
			},
			{
				Name:   "status",
				Usage:  "Show a bot's current status",
				Flags:  []cli.Flag{configFlag, userFlag},
				Action: statusAction,
			},
			{
				Name:   "logs",
				Usage:  "Show a bot's log entries, newest first",
				Flags:  []cli.Flag{configFlag, userFlag, limitFlag},
				Action: logsAction,
			},
			{
				Name:   "history",
				Usage:  "Show a bot's trade history, newest first",
				Flags:  []cli.Flag{configFlag, userFlag, limitFlag},
				Action: historyAction,
			},
			{
				Name:  "test-trade",
				Usage: "Push one order through the venue chain outside the signal path",
				Flags: []cli.Flag{
					configFlag,
					userFlag,
					&cli.StringFlag{Name: "side", Usage: "buy or sell", Required: true},
					&cli.FloatFlag{Name: "amount", Usage: "Amount in the input asset", Required: true},
				},
				Action: testTradeAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
