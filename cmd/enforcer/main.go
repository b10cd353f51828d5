package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/shard-integrity-enforcer/alerts"
	"github.com/ruteri/shard-integrity-enforcer/api/baithandler"
	"github.com/ruteri/shard-integrity-enforcer/api/statushandler"
	"github.com/ruteri/shard-integrity-enforcer/cmd/flags"
	"github.com/ruteri/shard-integrity-enforcer/enforcer"
	"github.com/ruteri/shard-integrity-enforcer/entropysink"
	"github.com/ruteri/shard-integrity-enforcer/httpserver"
	"github.com/ruteri/shard-integrity-enforcer/interfaces"
	"github.com/ruteri/shard-integrity-enforcer/probe"
	"github.com/ruteri/shard-integrity-enforcer/shardvault"
	"github.com/urfave/cli/v2"
)

var EnforcerServiceLogFlag = flags.LogServiceFlagFn("shard-enforcer")

var BaitComplexityFlag = &cli.IntFlag{
	Name:  "bait-complexity",
	Value: 3,
	Usage: "complexity level of bait payload traps (1-5)",
}

func main() {
	app := &cli.App{
		Name:  "shard-enforcer",
		Usage: "Monitor key shard integrity and destroy compromised material",
		Flags: append([]cli.Flag{flags.ManifestFlag, flags.ListenAddrFlag, BaitComplexityFlag, EnforcerServiceLogFlag}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			manifestPath := cCtx.String(flags.ManifestFlag.Name)
			listenAddr := cCtx.String(flags.ListenAddrFlag.Name)
			baitComplexity := cCtx.Int(BaitComplexityFlag.Name)

			// Setup logger
			logger := flags.SetupLogger(cCtx)

			logger.Info("Loading shard manifest", "path", manifestPath)
			manifest, err := enforcer.LoadManifest(manifestPath)
			if err != nil {
				logger.Error("Failed to load manifest", "err", err)
				return err
			}

			// Resolve every manifest shard into a vault; replicated
			// locations become a single multi-backend vault.
			factory := shardvault.NewFactory(logger)
			monitored := make([]enforcer.MonitoredShard, 0, len(manifest.Shards))
			for _, shard := range manifest.Shards {
				vault, err := factory.CreateMultiVault(shard.Locations)
				if err != nil {
					logger.Error("Failed to create shard vault", "err", err, "shard", shard.ID)
					return err
				}
				monitored = append(monitored, enforcer.MonitoredShard{
					ID:    interfaces.ShardID(shard.ID),
					Vault: vault,
				})
			}

			enf, err := enforcer.New(logger, manifest.Config(), probe.NewAutoProbe(logger), monitored)
			if err != nil {
				logger.Error("Failed to create enforcer", "err", err)
				return err
			}

			// Alert sinks: structured logs always, journal and webhook
			// per manifest.
			enf.RegisterAlertSink(alerts.NewLogSink(logger))

			var journal *alerts.Journal
			if manifest.Sinks.JournalPath != "" {
				journal, err = alerts.NewJournal(manifest.Sinks.JournalPath, logger)
				if err != nil {
					logger.Error("Failed to open alert journal", "err", err)
					return err
				}
				enf.RegisterAlertSink(journal)
			}
			if manifest.Sinks.WebhookURL != "" {
				enf.RegisterAlertSink(alerts.NewWebhookSink(manifest.Sinks.WebhookURL, 10*time.Second, logger))
			}

			if watchPaths := manifest.WatchPaths(); len(watchPaths) > 0 {
				logger.Info("Tamper watch enabled", "paths", len(watchPaths))
				enf.EnableTamperWatch(watchPaths)
			}

			server, err := httpserver.New(
				flags.ConfigureServer(cCtx, logger, listenAddr),
				enf.Metrics(),
				statushandler.NewHandler(enf, logger),
				baithandler.NewHandler(entropysink.New(0.25, baitComplexity), 0, logger),
			)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()
			enf.Start()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Enforcer is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			// Stop enforcement before draining HTTP so the journal sees
			// no writes after it is closed.
			enf.Stop()
			server.Shutdown()
			if journal != nil {
				if err := journal.Close(); err != nil {
					logger.Error("Failed to close alert journal", "err", err)
				}
			}
			logger.Info("Enforcer shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
