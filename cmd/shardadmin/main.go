package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/shard-integrity-enforcer/api/statushandler"
	"github.com/ruteri/shard-integrity-enforcer/cmd/flags"
	"github.com/ruteri/shard-integrity-enforcer/entropy"
	"github.com/ruteri/shard-integrity-enforcer/entropysink"
	"github.com/ruteri/shard-integrity-enforcer/sealing"
	"github.com/ruteri/shard-integrity-enforcer/sharding"
	"github.com/ruteri/shard-integrity-enforcer/shardvault"
	"github.com/urfave/cli/v2"
)

var flagSecretFile *cli.StringFlag = &cli.StringFlag{
	Name:  "secret-file",
	Value: "secret.bin",
	Usage: "Path to the secret key material",
}
var flagShardDir *cli.StringFlag = &cli.StringFlag{
	Name:  "shard-dir",
	Value: ".",
	Usage: "Directory to write shard files into",
}
var flagShardFiles *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "shard-file",
	Usage: "Path to a shard file, repeatable",
}
var flagThreshold *cli.IntFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: 3,
	Usage: "Number of shards required to reconstruct the secret",
}
var flagShares *cli.IntFlag = &cli.IntFlag{
	Name:  "shares",
	Value: 5,
	Usage: "Total number of shards to produce",
}
var flagDifficulty *cli.IntFlag = &cli.IntFlag{
	Name:  "difficulty",
	Value: sharding.DefaultDifficulty,
	Usage: "Timelock seal difficulty; sealing and verification cost 2^difficulty hashes",
}
var flagOutFile *cli.StringFlag = &cli.StringFlag{
	Name:  "out-file",
	Usage: "Output file path",
}
var flagDecoySize *cli.IntFlag = &cli.IntFlag{
	Name:  "size",
	Value: 4096,
	Usage: "Decoy payload size in bytes before poisoning",
}
var flagComplexity *cli.IntFlag = &cli.IntFlag{
	Name:  "complexity",
	Value: 3,
	Usage: "Complexity level of the embedded trap (1-5)",
}
var flagPoisonRatio *cli.Float64Flag = &cli.Float64Flag{
	Name:  "poison-ratio",
	Value: 0.25,
	Usage: "Trap size relative to the payload size",
}
var flagAlertLimit *cli.IntFlag = &cli.IntFlag{
	Name:  "limit",
	Value: 20,
	Usage: "Maximum number of alerts to fetch",
}
var flagCustodianDomains *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "custodian-domain",
	Usage: "Custodian domain publishing SRV delivery records, repeatable",
}
var flagCustodianKeys *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "custodian-key",
	Usage: "Path to a custodian public key PEM, repeatable, paired with resolved endpoints by position",
}
var flagDNSServer *cli.StringFlag = &cli.StringFlag{
	Name:  "dns-server",
	Usage: "DNS server for custodian SRV lookups",
}
var flagIPFSAddr *cli.StringFlag = &cli.StringFlag{
	Name:  "ipfs-addr",
	Usage: "IPFS API address to also publish the decoy to (e.g. localhost:5001)",
}
var flagInFile *cli.StringFlag = &cli.StringFlag{
	Name:  "in-file",
	Usage: "Payload file to poison instead of a random template",
}
var flagSealJSON *cli.BoolFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "Treat the input as a JSON array of weight values instead of raw bytes",
}

func readShardFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no shard files given")
	}

	shards := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		shards = append(shards, strings.TrimSpace(string(data)))
	}
	return shards, nil
}

func main() {
	app := &cli.App{
		Name:           "shardadmin",
		Usage:          "Administer key shards and the running enforcer",
		DefaultCommand: "status",
		Flags:          append([]cli.Flag{flags.EnforcerAddrFlag, flags.LogServiceFlagFn("shardadmin")}, flags.CommonFlags...),
		Commands: []*cli.Command{
			&cli.Command{
				Name:  "split",
				Usage: "Split a secret into sealed, threshold-recoverable shards",
				Flags: []cli.Flag{
					flagSecretFile,
					flagShardDir,
					flagThreshold,
					flagShares,
					flagDifficulty,
				},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					secret, err := os.ReadFile(cCtx.String(flagSecretFile.Name))
					if err != nil {
						return err
					}

					sharder, err := sharding.NewSharder(logger, cCtx.Int(flagThreshold.Name), cCtx.Int(flagShares.Name), uint(cCtx.Int(flagDifficulty.Name)))
					if err != nil {
						return err
					}

					shards, err := sharder.Split(secret)
					sharding.Wipe(secret)
					if err != nil {
						return err
					}

					if err := sharder.CheckShardQuality(shards); err != nil {
						return err
					}

					dir := cCtx.String(flagShardDir.Name)
					for i, shard := range shards {
						path := filepath.Join(dir, fmt.Sprintf("shard_%d.hex", i+1))
						if err := os.WriteFile(path, []byte(shard), 0600); err != nil {
							return err
						}
						fmt.Println(path)
					}
					return nil
				},
			},
			&cli.Command{
				Name:  "recombine",
				Usage: "Reconstruct a secret from shard files",
				Flags: []cli.Flag{
					flagShardFiles,
					flagSecretFile,
					flagThreshold,
					flagDifficulty,
				},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					shards, err := readShardFiles(cCtx.StringSlice(flagShardFiles.Name))
					if err != nil {
						return err
					}

					threshold := cCtx.Int(flagThreshold.Name)
					sharder, err := sharding.NewSharder(logger, threshold, max(threshold, len(shards)), uint(cCtx.Int(flagDifficulty.Name)))
					if err != nil {
						return err
					}

					secret, err := sharder.Recombine(shards)
					if err != nil {
						return err
					}

					outFile := cCtx.String(flagSecretFile.Name)
					err = os.WriteFile(outFile, secret, 0600)
					sharding.Wipe(secret)
					if err != nil {
						return err
					}

					fmt.Println(outFile)
					return nil
				},
			},
			&cli.Command{
				Name:  "verify",
				Usage: "Verify shard seals and quality without reconstructing",
				Flags: []cli.Flag{
					flagShardFiles,
					flagThreshold,
					flagDifficulty,
				},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					paths := cCtx.StringSlice(flagShardFiles.Name)
					shards, err := readShardFiles(paths)
					if err != nil {
						return err
					}

					threshold := cCtx.Int(flagThreshold.Name)
					sharder, err := sharding.NewSharder(logger, threshold, max(threshold, len(shards)), uint(cCtx.Int(flagDifficulty.Name)))
					if err != nil {
						return err
					}

					for i, shard := range shards {
						if err := sharder.VerifySeal(shard); err != nil {
							return fmt.Errorf("%s: %w", paths[i], err)
						}
						fmt.Printf("%s: seal ok\n", paths[i])
					}

					if err := sharder.CheckShardQuality(shards); err != nil {
						return err
					}

					fmt.Println("all shards ok")
					return nil
				},
			},
			&cli.Command{
				Name:  "inspect",
				Usage: "Measure entropy, regularities and markers of files",
				Flags: []cli.Flag{
					flagShardFiles,
				},
				Action: func(cCtx *cli.Context) error {
					for _, path := range cCtx.StringSlice(flagShardFiles.Name) {
						data, err := os.ReadFile(path)
						if err != nil {
							return err
						}

						fmt.Printf("%s: %d bytes entropy=%.4f regularities=%v marker=%v fingerprint=%s\n",
							path,
							len(data),
							entropy.Shannon(data),
							entropy.DetectRegularities(data),
							entropysink.ContainsMarker(data),
							shardvault.FingerprintHex(data),
						)
					}
					return nil
				},
			},
			&cli.Command{
				Name:  "decoy",
				Usage: "Generate a poisoned decoy shard file",
				Flags: []cli.Flag{
					flagOutFile,
					flagDecoySize,
					flagComplexity,
					flagPoisonRatio,
					flagIPFSAddr,
					flagInFile,
				},
				Action: func(cCtx *cli.Context) error {
					var template []byte
					if inFile := cCtx.String(flagInFile.Name); inFile != "" {
						data, err := os.ReadFile(inFile)
						if err != nil {
							return err
						}
						template = data
					} else {
						template = make([]byte, cCtx.Int(flagDecoySize.Name))
						if _, err := rand.Read(template); err != nil {
							return fmt.Errorf("failed to generate decoy template: %w", err)
						}
					}

					sink := entropysink.New(cCtx.Float64(flagPoisonRatio.Name), cCtx.Int(flagComplexity.Name))
					payload := sink.Poison(template)

					outFile := cCtx.String(flagOutFile.Name)
					if outFile == "" {
						outFile = "decoy_shard.bin"
					}

					// Decoys are meant to be found, so no restrictive mode.
					if err := os.WriteFile(outFile, payload, 0644); err != nil {
						return err
					}

					fmt.Printf("%s: %d bytes\n", outFile, len(payload))

					// Poisoning is deterministic, so the published copy is
					// byte-identical to the local file.
					if ipfsAddr := cCtx.String(flagIPFSAddr.Name); ipfsAddr != "" {
						logger := flags.SetupLogger(cCtx)
						publisher := entropysink.NewIPFSPublisher(ipfsAddr, sink, logger)
						cid, err := publisher.Publish(template)
						if err != nil {
							return err
						}
						fmt.Println(cid)
					}
					return nil
				},
			},
			&cli.Command{
				Name:  "seal",
				Usage: "One-way seal shard material for decommissioning evidence",
				Flags: []cli.Flag{
					flagSecretFile,
					flagOutFile,
					flagSealJSON,
				},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					inFile := cCtx.String(flagSecretFile.Name)
					data, err := os.ReadFile(inFile)
					if err != nil {
						return err
					}

					sealer, err := sealing.NewCKKSSealer(logger)
					if err != nil {
						return err
					}

					var sealed string
					if cCtx.Bool(flagSealJSON.Name) {
						var values []float64
						if err := json.Unmarshal(data, &values); err != nil {
							return fmt.Errorf("failed to parse %s as a weight array: %w", inFile, err)
						}
						sealed, err = sealer.Seal(values)
					} else {
						sealed, err = sealer.SealBytes(data)
					}
					sharding.Wipe(data)
					if err != nil {
						return err
					}

					outFile := cCtx.String(flagOutFile.Name)
					if outFile == "" {
						outFile = inFile + ".sealed"
					}

					if err := os.WriteFile(outFile, []byte(sealed), 0600); err != nil {
						return err
					}

					fmt.Println(outFile)
					return nil
				},
			},
			&cli.Command{
				Name:  "status",
				Usage: "Fetch the enforcement loop status",
				Action: func(cCtx *cli.Context) error {
					client := statushandler.NewClient(cCtx.String(flags.EnforcerAddrFlag.Name))
					status, err := client.Status(context.Background())
					if err != nil {
						return err
					}

					out, err := json.MarshalIndent(status, "", "  ")
					if err != nil {
						return err
					}

					fmt.Println(string(out))
					return nil
				},
			},
			&cli.Command{
				Name:  "check",
				Usage: "Trigger an enforcement cycle now",
				Action: func(cCtx *cli.Context) error {
					client := statushandler.NewClient(cCtx.String(flags.EnforcerAddrFlag.Name))
					if err := client.TriggerCheck(context.Background()); err != nil {
						return err
					}

					fmt.Println("check completed")
					return nil
				},
			},
			&cli.Command{
				Name:  "alerts",
				Usage: "Fetch recorded alerts, newest first",
				Flags: []cli.Flag{
					flagAlertLimit,
				},
				Action: func(cCtx *cli.Context) error {
					client := statushandler.NewClient(cCtx.String(flags.EnforcerAddrFlag.Name))
					alerts, err := client.Alerts(context.Background(), cCtx.Int(flagAlertLimit.Name))
					if err != nil {
						return err
					}

					out, err := json.MarshalIndent(alerts, "", "  ")
					if err != nil {
						return err
					}

					fmt.Println(string(out))
					return nil
				},
			},
			&cli.Command{
				Name:  "dispatch",
				Usage: "Deliver shards to custodians resolved over DNS",
				Flags: []cli.Flag{
					flagShardFiles,
					flagCustodianDomains,
					flagCustodianKeys,
					flagDNSServer,
				},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					shards, err := readShardFiles(cCtx.StringSlice(flagShardFiles.Name))
					if err != nil {
						return err
					}

					resolver := sharding.NewCustodianResolver(logger, cCtx.String(flagDNSServer.Name))
					endpoints, err := resolver.ResolveEndpoints(cCtx.StringSlice(flagCustodianDomains.Name))
					if err != nil {
						return err
					}

					keyFiles := cCtx.StringSlice(flagCustodianKeys.Name)
					custodians := make([]sharding.Custodian, 0, len(endpoints))
					for i, endpoint := range endpoints {
						if i >= len(keyFiles) {
							break
						}
						pem, err := os.ReadFile(keyFiles[i])
						if err != nil {
							return err
						}
						custodians = append(custodians, sharding.Custodian{
							Endpoint:     endpoint,
							PublicKeyPEM: pem,
						})
					}

					return sharding.NewDispatcher(logger).Dispatch(context.Background(), custodians, shards)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
