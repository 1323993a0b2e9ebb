// Command intentd starts an intents settlement node.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solvernet/intentd/config"
	"github.com/solvernet/intentd/crypto/certgen"
	"github.com/solvernet/intentd/engine"
	"github.com/solvernet/intentd/events"
	"github.com/solvernet/intentd/indexer"
	"github.com/solvernet/intentd/rpc"
	"github.com/solvernet/intentd/storage"
	"github.com/solvernet/intentd/wallet"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "intentd",
		Short:         "intents settlement node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to config file")
	root.AddCommand(runCmd(), genKeyCmd(), genCertsCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "start the settlement node",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return fmt.Errorf("mkdir data dir: %w", err)
			}
			db, err := storage.NewLevelDB(cfg.DataDir + "/ledger")
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			wrapped, err := cfg.WrappedToken()
			if err != nil {
				return err
			}
			store := storage.NewLedgerStore(db, storage.LedgerParams{
				VerifyingContract:  cfg.VerifyingContract,
				WrappedNativeToken: wrapped,
				FeeRate:            cfg.FeeRate(),
				FeeCollector:       cfg.FeeCollector,
			})
			if err := store.ApplyGenesis(cfg.Genesis.Alloc); err != nil {
				return fmt.Errorf("genesis: %w", err)
			}

			emitter := events.NewEmitter()
			idx := indexer.New(db, emitter)
			eng := engine.NewEngine(store, engine.WithEmitter(emitter))

			tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
			if err != nil {
				return fmt.Errorf("tls: %w", err)
			}
			if tlsCfg != nil {
				log.Println("mTLS enabled for RPC")
			}

			handler := rpc.NewHandler(eng, store, idx)
			server := rpc.NewServer(cfg.ListenAddr, handler, cfg.AuthToken, tlsCfg)
			if err := server.Start(); err != nil {
				return fmt.Errorf("rpc start: %w", err)
			}
			defer server.Stop()
			log.Printf("RPC listening on %s (verifying contract %s)", cfg.ListenAddr, cfg.VerifyingContract)
			if cfg.AuthToken != "" {
				log.Println("RPC Bearer token authentication enabled")
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Println("Shutting down...")
			return nil
		},
	}
}

func genKeyCmd() *cobra.Command {
	var keyPath string
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "generate a signing key and keystore file",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Keystore password comes from the environment, not CLI flags
			// (flags leak via ps).
			password := os.Getenv("INTENTD_PASSWORD")
			if password == "" {
				log.Println("WARNING: INTENTD_PASSWORD not set, keystore will use an empty password")
			}
			w, err := wallet.Generate()
			if err != nil {
				return err
			}
			if err := wallet.SaveKey(keyPath, password, w.PrivKey()); err != nil {
				return err
			}
			fmt.Printf("Generated key. Account id: %s\n", w.AccountID())
			fmt.Printf("Saved to: %s\n", keyPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "out", "intentd.key", "keystore output path")
	return cmd
}

func genCertsCmd() *cobra.Command {
	var dir, name string
	cmd := &cobra.Command{
		Use:   "gencerts",
		Short: "generate CA and node TLS certificates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := certgen.GenerateAll(dir, name, nil); err != nil {
				return err
			}
			fmt.Printf("Certificates generated in %s for %q\n", dir, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "certs", "output directory")
	cmd.Flags().StringVar(&name, "name", "intentd", "certificate common name")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.Load("")
		}
		return nil, err
	}
	return cfg, nil
}
