// famhostd serves a reference host over gRPC. It owns the agent identity,
// the registered buckets and the block store; fam and other bridge clients
// connect to it with hostrpc.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"fam.dev/fam/config"
	"fam.dev/fam/host/hostrpc"
	"fam.dev/fam/host/refhost"
	"fam.dev/fam/internal/logging"
	"fam.dev/fam/keys"
	"fam.dev/fam/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut io.Writer) int {
	fs := pflag.NewFlagSet("famhostd", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "config file (default $"+config.EnvVar+", else built-in defaults)")
	listen := fs.String("listen", "", "listen address (overrides host.listen)")
	keyName := fs.String("key-name", "", "agent key name (overrides identity.key_name)")
	scheme := fs.String("key-scheme", keys.SchemeEd25519, "scheme for a newly created agent key (ed25519|dilithium3)")
	openCmd := fs.String("open-cmd", "", "command run with the URL for OpenExternalURL (default: log only)")
	printID := fs.Bool("print-id", false, "print the agent DID and exit")
	exportPath := fs.String("export-on-exit", "", "write a block bundle of every bucket's snapshot history here on shutdown")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if fs.Changed("listen") {
		cfg.Host.Listen = *listen
	}
	if fs.Changed("key-name") {
		cfg.Identity.KeyName = *keyName
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	log, err := logging.New(errOut, level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	ks, err := keys.New(cfg.Identity.KeyDir)
	if err != nil {
		log.Error("key store", "err", err)
		return 1
	}
	agent, created, err := ks.LoadOrCreate(cfg.Identity.KeyName, *scheme)
	if err != nil {
		log.Error("load agent key", "name", cfg.Identity.KeyName, "err", err)
		return 1
	}
	if created {
		log.Info("created agent key", "name", cfg.Identity.KeyName, "did", agent.DID().String())
	}
	if *printID {
		fmt.Fprintln(os.Stdout, agent.DID())
		return 0
	}

	blocks, err := cfg.Store.Open()
	if err != nil {
		log.Error("open store", "err", err)
		return 1
	}
	defer func() {
		if err := store.Close(blocks); err != nil {
			log.Error("close store", "err", err)
		}
	}()

	h, err := refhost.New(agent,
		refhost.WithStore(blocks),
		refhost.WithLogger(log),
		refhost.WithShareTTL(cfg.Host.ShareTTL),
		refhost.WithURLOpener(urlOpener(*openCmd)),
	)
	if err != nil {
		log.Error("host", "err", err)
		return 1
	}

	lis, err := net.Listen("tcp", cfg.Host.Listen)
	if err != nil {
		log.Error("listen", "addr", cfg.Host.Listen, "err", err)
		return 1
	}
	defer lis.Close()

	var opts []grpc.ServerOption
	if cfg.Host.MaxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.Host.MaxMsgBytes), grpc.MaxSendMsgSize(cfg.Host.MaxMsgBytes))
	}
	s := grpc.NewServer(opts...)
	hostrpc.RegisterHostServer(s, &hostrpc.Server{Host: h})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		s.GracefulStop()
	}()

	log.Info("listening", "addr", lis.Addr().String(), "agent", agent.DID().String())
	if err := s.Serve(lis); err != nil {
		log.Error("serve", "err", err)
		return 1
	}
	if *exportPath != "" {
		if err := exportBundle(h, *exportPath); err != nil {
			log.Error("export", "path", *exportPath, "err", err)
			return 1
		}
		log.Info("exported snapshots", "path", *exportPath)
	}
	return 0
}

func exportBundle(h *refhost.Host, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := h.Export(f); err != nil {
		return err
	}
	return f.Close()
}

func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv(config.EnvVar) != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

// urlOpener runs command with the URL as its only argument. An empty command
// yields nil, which makes the host log the URL instead.
func urlOpener(command string) func(string) error {
	if command == "" {
		return nil
	}
	return func(url string) error {
		cmd := exec.Command(command, url)
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
		if err := cmd.Start(); err != nil {
			return err
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}
