// Package lsp implements a language server for MediaWiki wikitext.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"
	"src.mwls.dev/pkg/config"
	"src.mwls.dev/pkg/logutil"
	"src.mwls.dev/pkg/pipeline"
	"src.mwls.dev/pkg/prog"
	"src.mwls.dev/pkg/session"
	"src.mwls.dev/pkg/store"
	"src.mwls.dev/pkg/sys"
)

// Program is the language server subprogram. It also handles -compile-seed.
var Program prog.Program = program{}

type program struct{}

func (program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if len(args) > 0 {
		return prog.BadUsage("arguments are not supported")
	}
	file := config.DefaultFile()
	if f.Config != "" {
		var err error
		file, err = config.Load(f.Config)
		if err != nil {
			return err
		}
	}
	seed := file.Seed
	if f.Seed != "" {
		seed = f.Seed
	}
	if f.CompileSeed != "" {
		return compileSeed(seed, f.CompileSeed)
	}

	if f.Verbose && f.Log == "" {
		// Stdout carries the protocol; stderr is free for logs.
		logutil.SetOutput(fds[2])
	}
	if sys.IsATTY(fds[0]) {
		fmt.Fprintln(fds[2], "mwls: stdin is a terminal; mwls speaks the language server protocol and is normally started by an editor")
	}

	st := store.New()
	dups, err := loadSeed(st, seed)
	if err != nil {
		return err
	}
	if dups != nil {
		fmt.Fprintln(fds[2], "Warning:", dups)
	}
	logger.Printf("seeded %d transclusion names", st.Len(store.Transclusions))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsAddr := file.MetricsAddr
	if f.MetricsAddr != "" {
		metricsAddr = f.MetricsAddr
	}
	if metricsAddr != "" {
		stop, err := serveMetrics(metricsAddr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	opts := session.Options{
		Pipeline: pipeline.Options{
			AnalyzeDelay: file.AnalyzeDelay,
			Metrics:      pipeline.NewMetrics(reg),
		},
		Settings: file.Settings,
		Verbose:  f.Verbose,
	}
	if d := file.SyncDelay; d > 0 {
		opts.Pipeline.SyncDelay = func(int) time.Duration { return d }
	}
	registry := session.NewRegistry(st)
	defer registry.CloseAll()
	err = Serve(context.Background(), transport{fds[0], fds[1]},
		registry, Config{Session: opts, Verbose: f.Verbose})
	if errors.Is(err, ErrNoShutdown) {
		// LSP prescribes exit status 1 when exit comes without shutdown.
		return prog.Exit(1)
	}
	return err
}

// Loads the built-in seed, then the seed file if any. Names defined more than
// once are reported in dups.
func loadSeed(st *store.Store, path string) (dups, err error) {
	builtin, err := store.BuiltinSeed()
	if err != nil {
		return nil, err
	}
	var recs []store.SeedRecord
	if path != "" {
		recs, err = store.ReadSeedFile(path)
		if err != nil {
			return nil, err
		}
	}
	return errors.Join(st.LoadSeed(builtin), st.LoadSeed(recs)), nil
}

// Writes the seed file at src, or the built-in seed if src is empty, to a
// seed database.
func compileSeed(src, dst string) error {
	var recs []store.SeedRecord
	var err error
	if src == "" {
		recs, err = store.BuiltinSeed()
	} else {
		recs, err = store.ReadSeedFile(src)
	}
	if err != nil {
		return err
	}
	return store.WriteSeedDB(dst, recs)
}

// Serves metrics of reg on addr until stop is called.
func serveMetrics(addr string, reg *prometheus.Registry) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	var wg conc.WaitGroup
	wg.Go(func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server: %v", err)
		}
	})
	logger.Printf("serving metrics on %s", ln.Addr())
	return func() {
		srv.Close()
		wg.Wait()
	}, nil
}

type transport struct{ in, out *os.File }

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}
