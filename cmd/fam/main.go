// fam is a command-line front end for the bridge. It talks to a famhostd
// over gRPC for bucket and content calls and works offline for link and
// delegation inspection.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"fam.dev/fam/bridge"
	"fam.dev/fam/config"
	"fam.dev/fam/delegation"
	"fam.dev/fam/did"
	"fam.dev/fam/host/hostrpc"
	"fam.dev/fam/internal/logging"
	"fam.dev/fam/link"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "id":
		return cmdID(args[1:], out, errOut)
	case "buckets":
		return cmdBuckets(args[1:], out, errOut)
	case "bucket":
		return cmdBucket(args[1:], out, errOut)
	case "root":
		return cmdRoot(args[1:], out, errOut)
	case "ls":
		return cmdEntries(args[1:], out, errOut)
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "del":
		return cmdDel(args[1:], out, errOut)
	case "share":
		return cmdShare(args[1:], out, errOut)
	case "open":
		return cmdOpen(args[1:], out, errOut)
	case "link":
		return cmdLink(args[1:], out, errOut)
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "fam: bucket and delegation client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  fam id")
	fmt.Fprintln(w, "  fam buckets")
	fmt.Fprintln(w, "  fam bucket add <archive-file>")
	fmt.Fprintln(w, "  fam bucket remove <bucket-did>")
	fmt.Fprintln(w, "  fam root <bucket-did>")
	fmt.Fprintln(w, "  fam ls <bucket-did> [--page N] [--size N] [--prefix p] [--gt k] [--gte k] [--lt k] [--lte k]")
	fmt.Fprintln(w, "  fam put <bucket-did> <key> <cid>")
	fmt.Fprintln(w, "  fam del <bucket-did> <key>")
	fmt.Fprintln(w, "  fam share <bucket-did> <audience-did> --out <archive-file>")
	fmt.Fprintln(w, "  fam open <url>")
	fmt.Fprintln(w, "  fam link <file>")
	fmt.Fprintln(w, "  fam inspect <archive-file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Connection flags (all host commands):")
	fmt.Fprintln(w, "  --config <fam.yaml>  (default: $FAM_CONFIG, else built-in defaults)")
	fmt.Fprintln(w, "  --target <host:port> --timeout <duration> --verbose")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - link prints the CIDv1 raw sha2-256 of the file bytes")
	fmt.Fprintln(w, "  - inspect extracts and verifies a delegation archive without a host")
	fmt.Fprintln(w, "  - exit status 3 marks a failure worth retrying (idempotent call not delivered)")
}

// connection holds the flags shared by every command that needs a host.
type connection struct {
	configPath string
	target     string
	timeout    time.Duration
	verbose    bool
}

func (c *connection) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default $"+config.EnvVar+")")
	fs.StringVar(&c.target, "target", "", "famhostd gRPC address (overrides host.target)")
	fs.DurationVar(&c.timeout, "timeout", 0, "per-call timeout (overrides host.call_timeout)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log every call to stderr")
}

func (c *connection) load(fs *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case c.configPath != "":
		cfg, err = config.LoadFile(c.configPath)
	case os.Getenv(config.EnvVar) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if fs.Changed("target") {
		cfg.Host.Target = c.target
	}
	if fs.Changed("timeout") {
		cfg.Host.CallTimeout = c.timeout
	}
	return cfg, nil
}

// open dials the host and returns a bridge client plus its closer.
func (c *connection) open(fs *pflag.FlagSet, errOut io.Writer) (*bridge.Client, func() error, error) {
	cfg, err := c.load(fs)
	if err != nil {
		return nil, nil, err
	}
	var log *slog.Logger
	if c.verbose {
		log, err = logging.New(errOut, slog.LevelDebug, cfg.Log.Format)
		if err != nil {
			return nil, nil, err
		}
	}
	rpc, err := hostrpc.Dial(cfg.Host.Target, hostrpc.DialOptions{
		Timeout:     cfg.Host.DialTimeout,
		MaxMsgBytes: cfg.Host.MaxMsgBytes,
	})
	if err != nil {
		return nil, nil, err
	}
	rpc.Timeout = cfg.Host.CallTimeout
	return bridge.New(rpc, bridge.WithLogger(log)), rpc.Close, nil
}

func newFlagSet(name string, errOut io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	return fs
}

// withClient parses args, requires nargs positionals and runs f against a
// connected client.
func withClient(fs *pflag.FlagSet, args []string, nargs int, usage string, errOut io.Writer, f func(ctx context.Context, c *bridge.Client, args []string) int) int {
	return withCheckedClient(fs, args, nargs, usage, errOut, nil, f)
}

// withCheckedClient is withClient with a flag check that runs before dialing.
// A check error is a usage error.
func withCheckedClient(fs *pflag.FlagSet, args []string, nargs int, usage string, errOut io.Writer, check func() error, f func(ctx context.Context, c *bridge.Client, args []string) int) int {
	var conn connection
	conn.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != nargs {
		fmt.Fprintln(errOut, "usage: "+usage)
		return 2
	}
	if check != nil {
		if err := check(); err != nil {
			fmt.Fprintf(errOut, "%v\nusage: %s\n", err, usage)
			return 2
		}
	}
	client, closeFn, err := conn.open(fs, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "connect: %v\n", err)
		return 1
	}
	defer closeFn()
	return f(context.Background(), client, fs.Args())
}

// fail prints err and picks the exit status.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "%v\n", err)
	if bridge.Retryable(err) {
		return 3
	}
	return 1
}

func parseDID(errOut io.Writer, what, text string) (did.DID, bool) {
	id, err := did.Parse(text)
	if err != nil {
		fmt.Fprintf(errOut, "invalid %s: %v\n", what, err)
		return did.Undef, false
	}
	return id, true
}

func cmdID(args []string, out io.Writer, errOut io.Writer) int {
	return withClient(newFlagSet("id", errOut), args, 0, "fam id", errOut, func(ctx context.Context, c *bridge.Client, _ []string) int {
		signer, err := c.ID(ctx)
		if err != nil {
			return fail(errOut, err)
		}
		_, _ = fmt.Fprintln(out, signer.DID())
		return 0
	})
}

func cmdBuckets(args []string, out io.Writer, errOut io.Writer) int {
	return withClient(newFlagSet("buckets", errOut), args, 0, "fam buckets", errOut, func(ctx context.Context, c *bridge.Client, _ []string) int {
		dir, err := c.Buckets(ctx)
		if err != nil {
			return fail(errOut, err)
		}
		for _, b := range dir.All() {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.ID, b.Proof.Link())
		}
		return 0
	})
}

func cmdBucket(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: fam bucket <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: add, remove")
		return 2
	}
	switch args[0] {
	case "add":
		return withClient(newFlagSet("bucket add", errOut), args[1:], 1, "fam bucket add <archive-file>", errOut, func(ctx context.Context, c *bridge.Client, args []string) int {
			proof, code := readArchive(errOut, args[0])
			if code != 0 {
				return code
			}
			id, err := c.AddBucket(ctx, proof)
			if err != nil {
				return fail(errOut, err)
			}
			_, _ = fmt.Fprintln(out, id)
			return 0
		})
	case "remove":
		return withClient(newFlagSet("bucket remove", errOut), args[1:], 1, "fam bucket remove <bucket-did>", errOut, func(ctx context.Context, c *bridge.Client, args []string) int {
			id, ok := parseDID(errOut, "bucket", args[0])
			if !ok {
				return 2
			}
			if err := c.RemoveBucket(ctx, id); err != nil {
				return fail(errOut, err)
			}
			return 0
		})
	default:
		fmt.Fprintf(errOut, "unknown bucket subcommand: %s\n", args[0])
		return 2
	}
}

func cmdRoot(args []string, out io.Writer, errOut io.Writer) int {
	return withClient(newFlagSet("root", errOut), args, 1, "fam root <bucket-did>", errOut, func(ctx context.Context, c *bridge.Client, args []string) int {
		id, ok := parseDID(errOut, "bucket", args[0])
		if !ok {
			return 2
		}
		root, err := c.Root(ctx, id)
		if err != nil {
			return fail(errOut, err)
		}
		_, _ = fmt.Fprintln(out, root)
		return 0
	})
}

func cmdEntries(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("ls", errOut)
	page := fs.Int("page", 0, "zero-based page")
	size := fs.Int("size", 0, "page size, at least 1 (host default when unset)")
	prefix := fs.String("prefix", "", "only keys with this prefix")
	gt := fs.String("gt", "", "only keys after this key")
	gte := fs.String("gte", "", "only keys at or after this key")
	lt := fs.String("lt", "", "only keys before this key")
	lte := fs.String("lte", "", "only keys at or before this key")

	check := func() error {
		if *page < 0 {
			return fmt.Errorf("--page must not be negative, got %d", *page)
		}
		if fs.Changed("size") && *size < 1 {
			return fmt.Errorf("--size must be at least 1, got %d", *size)
		}
		return nil
	}

	return withCheckedClient(fs, args, 1, "fam ls <bucket-did> [flags]", errOut, check, func(ctx context.Context, c *bridge.Client, args []string) int {
		id, ok := parseDID(errOut, "bucket", args[0])
		if !ok {
			return 2
		}
		opts := []bridge.EntriesOption{bridge.WithPage(*page)}
		if fs.Changed("size") {
			opts = append(opts, bridge.WithSize(*size))
		}
		if fs.Changed("prefix") {
			opts = append(opts, bridge.WithPrefix(*prefix))
		}
		if fs.Changed("gt") {
			opts = append(opts, bridge.WithGreaterThan(*gt))
		}
		if fs.Changed("gte") {
			opts = append(opts, bridge.WithGreaterThanOrEqual(*gte))
		}
		if fs.Changed("lt") {
			opts = append(opts, bridge.WithLessThan(*lt))
		}
		if fs.Changed("lte") {
			opts = append(opts, bridge.WithLessThanOrEqual(*lte))
		}
		entries, err := c.Entries(ctx, id, opts...)
		if err != nil {
			return fail(errOut, err)
		}
		for _, e := range entries {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", e.Key, e.Value)
		}
		return 0
	})
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	return withClient(newFlagSet("put", errOut), args, 3, "fam put <bucket-did> <key> <cid>", errOut, func(ctx context.Context, c *bridge.Client, args []string) int {
		id, ok := parseDID(errOut, "bucket", args[0])
		if !ok {
			return 2
		}
		value, err := link.Parse(args[2])
		if err != nil {
			fmt.Fprintf(errOut, "invalid cid: %v\n", err)
			return 2
		}
		root, err := c.Put(ctx, id, args[1], value)
		if err != nil {
			return fail(errOut, err)
		}
		_, _ = fmt.Fprintln(out, root)
		return 0
	})
}

func cmdDel(args []string, out io.Writer, errOut io.Writer) int {
	return withClient(newFlagSet("del", errOut), args, 2, "fam del <bucket-did> <key>", errOut, func(ctx context.Context, c *bridge.Client, args []string) int {
		id, ok := parseDID(errOut, "bucket", args[0])
		if !ok {
			return 2
		}
		root, err := c.Del(ctx, id, args[1])
		if err != nil {
			return fail(errOut, err)
		}
		_, _ = fmt.Fprintln(out, root)
		return 0
	})
}

func cmdShare(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("share", errOut)
	outPath := fs.String("out", "", "write the delegation archive here (required)")
	return withClient(fs, args, 2, "fam share <bucket-did> <audience-did> --out <archive-file>", errOut, func(ctx context.Context, c *bridge.Client, args []string) int {
		if *outPath == "" {
			fmt.Fprintln(errOut, "missing --out")
			return 2
		}
		bucket, ok := parseDID(errOut, "bucket", args[0])
		if !ok {
			return 2
		}
		audience, ok := parseDID(errOut, "audience", args[1])
		if !ok {
			return 2
		}
		d, err := c.ShareBucket(ctx, bucket, audience)
		if err != nil {
			return fail(errOut, err)
		}
		archive, err := delegation.Archive(d)
		if err != nil {
			fmt.Fprintf(errOut, "archive: %v\n", err)
			return 1
		}
		if err := os.WriteFile(*outPath, archive, 0o600); err != nil {
			fmt.Fprintf(errOut, "write %s: %v\n", *outPath, err)
			return 1
		}
		_, _ = fmt.Fprintln(out, d.Link())
		return 0
	})
}

func cmdOpen(args []string, _ io.Writer, errOut io.Writer) int {
	return withClient(newFlagSet("open", errOut), args, 1, "fam open <url>", errOut, func(ctx context.Context, c *bridge.Client, args []string) int {
		c.OpenExternalURL(ctx, args[0])
		return 0
	})
}

func cmdLink(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("link", errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: fam link <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, link.SumRaw(b))
	return 0
}

func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("inspect", errOut)
	noVerify := fs.Bool("no-verify", false, "skip signature and time checks")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: fam inspect [--no-verify] <archive-file>")
		return 2
	}
	d, code := readArchive(errOut, fs.Arg(0))
	if code != 0 {
		return code
	}
	printDelegation(out, d, "")
	if *noVerify {
		return 0
	}
	if err := delegation.Verify(d); err != nil {
		fmt.Fprintf(errOut, "verify: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func readArchive(errOut io.Writer, path string) (delegation.Delegation, int) {
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read: %v\n", err)
		return delegation.Delegation{}, 1
	}
	d, err := delegation.Extract(b)
	if err != nil {
		var derr *delegation.Error
		if errors.As(err, &derr) {
			fmt.Fprintf(errOut, "invalid archive [%s]: %v\n", derr.RuleID, err)
		} else {
			fmt.Fprintf(errOut, "invalid archive: %v\n", err)
		}
		return delegation.Delegation{}, 1
	}
	return d, 0
}

func printDelegation(w io.Writer, d delegation.Delegation, indent string) {
	fmt.Fprintf(w, "%slink: %s\n", indent, d.Link())
	fmt.Fprintf(w, "%sissuer: %s\n", indent, d.Issuer())
	fmt.Fprintf(w, "%saudience: %s\n", indent, d.Audience())
	for _, c := range d.Capabilities() {
		fmt.Fprintf(w, "%scan: %s with: %s\n", indent, c.Can, c.With)
	}
	if exp, ok := d.Expiration(); ok {
		fmt.Fprintf(w, "%sexpires: %s\n", indent, exp.UTC().Format(time.RFC3339))
	}
	if nbf, ok := d.NotBefore(); ok {
		fmt.Fprintf(w, "%snot-before: %s\n", indent, nbf.UTC().Format(time.RFC3339))
	}
	if n := d.Nonce(); n != "" {
		fmt.Fprintf(w, "%snonce: %s\n", indent, n)
	}
	fmt.Fprintf(w, "%ssignature: %s\n", indent, d.Signature().Algorithm())
	for _, p := range d.Proofs() {
		fmt.Fprintf(w, "%sproof:\n", indent)
		printDelegation(w, p, indent+strings.Repeat(" ", 2))
	}
}
