package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"planc/internal/app"
	"planc/internal/config"
	"planc/internal/gateway/binance"
	"planc/internal/logger"
	"planc/internal/lot"
	"planc/internal/pkg/symbol"
	"planc/internal/position"

	"github.com/spf13/cobra"
)

const envConfigPath = "PLANC_CONFIG"

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "planc",
		Short:         "PLANC - market breadth driven USDT perpetual futures engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv(envConfigPath), "config file path (yaml)")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(newRunCmd(loadConfig, &cfgPath))
	root.AddCommand(newLedgerCmd(loadConfig))
	root.AddCommand(newRulesCmd(loadConfig))
	return root
}

func newRunCmd(loadConfig func() (*config.Config, error), cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the engine and the control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger.Infof("✓ 配置加载成功（环境=%s，symbol=%s）", cfg.App.Env, cfg.Market.Symbol)
			a, err := app.NewApp(cfg, *cfgPath)
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := a.Run(ctx); err != nil {
				return fmt.Errorf("运行失败: %w", err)
			}
			return nil
		},
	}
}

func newLedgerCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print local ledger totals and recent trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			trades, err := position.NewTradeLog(cfg.Ledger.TradesPath)
			if err != nil {
				return err
			}
			ledger := position.NewLedger(nil, trades, nil, nil)
			recent, err := ledger.RecentTrades(limit)
			if err != nil {
				return err
			}
			printLedger(cmd.OutOrStdout(), ledger.Summary(0), recent)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of recent trades to show")
	return cmd
}

func printLedger(w io.Writer, s position.Summary, trades []position.Trade) {
	fmt.Fprintf(w, "trades:      %d\n", s.Trades)
	fmt.Fprintf(w, "total pnl:   %.4f USDT\n", s.LocalTotal)
	fmt.Fprintf(w, "today pnl:   %.4f USDT\n", s.LocalToday)
	if len(trades) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSYMBOL\tQTY\tENTRY\tEXIT\tPNL")
	for _, t := range trades {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\t%.4f\n",
			t.Time.Format(time.DateTime), t.Symbol, t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL)
	}
	_ = tw.Flush()
}

func newRulesCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var usd, price float64
	cmd := &cobra.Command{
		Use:   "rules SYMBOL",
		Short: "Print lot rules for a symbol, optionally normalizing an order size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sym := symbol.Normalize(args[0])
			if sym == "" {
				return fmt.Errorf("invalid symbol %q", args[0])
			}
			ex, err := binance.New(binance.Config{
				RESTBaseURL: cfg.Exchange.RESTBaseURL,
				Testnet:     cfg.Exchange.Testnet,
				HTTPTimeout: time.Duration(cfg.Exchange.HTTPTimeoutSeconds) * time.Second,
			})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rules, err := lot.NewCache(ex, lot.DefaultTTL).Rules(ctx, sym)
			if err != nil {
				return fmt.Errorf("load rules %s: %w", sym, err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "symbol:       %s\n", rules.Symbol)
			fmt.Fprintf(w, "step size:    %s\n", rules.StepSize)
			fmt.Fprintf(w, "decimals:     %d\n", rules.QuantityDecimals)
			fmt.Fprintf(w, "min qty:      %s\n", rules.MinQty)
			fmt.Fprintf(w, "min notional: %s\n", rules.MinNotional)
			if usd > 0 && price > 0 {
				q := lot.NormalizeFloat(usd/price, price, rules, nil)
				fmt.Fprintf(w, "order %.2f USDT @ %s -> qty %s\n", usd, strings.TrimRight(fmt.Sprintf("%.8f", price), "0"), q.Text)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&usd, "usd", 0, "order notional in USDT to normalize")
	cmd.Flags().Float64Var(&price, "price", 0, "price used for normalization")
	return cmd
}
