// Command blackamber runs the wallet state reconciliation daemon. It polls
// the external native wallet engine, merges its answers with a local sqlite
// cache, and publishes a locally-consistent view of balance, history, and
// sync progress.
//
// Usage:
//
//	blackamber --config config.yaml
//	blackamber --engine /path/to/engine --datadir ~/.blackamber
//	blackamber setup   (interactive first-run wizard)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/config"
	"github.com/z-bitcoinz/blackamber/internal/domain"
	"github.com/z-bitcoinz/blackamber/internal/engine"
	"github.com/z-bitcoinz/blackamber/internal/lightwallet"
	"github.com/z-bitcoinz/blackamber/internal/services/balance"
	"github.com/z-bitcoinz/blackamber/internal/services/heights"
	"github.com/z-bitcoinz/blackamber/internal/services/history"
	"github.com/z-bitcoinz/blackamber/internal/services/pending"
	"github.com/z-bitcoinz/blackamber/internal/services/syncmon"
	"github.com/z-bitcoinz/blackamber/internal/setup"
	"github.com/z-bitcoinz/blackamber/internal/storage/balancelog"
	"github.com/z-bitcoinz/blackamber/internal/storage/txstore"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = os.Args[:1]
	}

	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(conf.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}

	store, err := txstore.Open(conf.DBPath, logger)
	if err != nil {
		logger.Fatal("failed to open transaction store", zap.Error(err))
	}
	defer store.Close()

	journal, err := balancelog.NewJournal(conf.JournalDir)
	if err != nil {
		logger.Fatal("failed to open balance journal", zap.Error(err))
	}
	defer journal.Close()

	executor := lightwallet.NewProcessExecutor(conf.EngineBin, conf.DataDir)
	client := lightwallet.NewClient(executor, conf.CommandTimeout, conf.SyncTimeout, logger)

	heightCache := heights.NewCache(client, conf.HeightTTL, logger)
	balances := balance.NewReconciler(client, journal, logger)
	txs := history.NewReconciler(client, heightCache, store, logger)
	pendingTracker := pending.NewTracker(0, logger)
	syncMonitor := syncmon.NewMonitor(client, conf.StallThreshold, logger)

	eng := engine.New(client, balances, txs, pendingTracker, syncMonitor, engine.Config{
		FastInterval: conf.FastInterval,
		SlowInterval: conf.SlowInterval,
		MinFastGap:   conf.MinFastGap,
		SettleDelay:  conf.SettleDelay,
	}, engine.Callbacks{
		BalanceUpdated: func(b domain.ClassifiedBalance) {
			logger.Info("balance updated",
				zap.String("total", b.Total().String()),
				zap.String("spendable", b.Spendable().String()),
				zap.String("incoming", b.Incoming().String()),
				zap.String("change", b.Change().String()))
		},
		TransactionsUpdated: func(txs []domain.Transaction) {
			logger.Info("transaction list updated", zap.Int("count", len(txs)))
		},
		AddressesUpdated: func(addrs lightwallet.AddressMap) {
			logger.Debug("address map updated",
				zap.Int("transparent", len(addrs.Transparent)),
				zap.Int("shielded", len(addrs.Shielded)))
		},
		InfoUpdated: func(info lightwallet.NodeInfo) {
			logger.Debug("node info updated", zap.Uint64("height", info.Height))
		},
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("reconciliation loop failed", zap.Error(err))
	}
}
