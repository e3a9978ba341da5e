// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command koru loads assets through the asset loader and reports
// what every load produced. Without arguments it loads everything
// found under the configured asset root or archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/devblok/koruasset/asset"
	"github.com/devblok/koruasset/core"
	"github.com/devblok/koruasset/loaders"
	"github.com/devblok/koruasset/model"
)

var (
	configFile = flag.String("config", "", "YAML configuration file")
	envFile    = flag.String("env", ".env", "Environment file to read before KORU_* variables")
	timeout    = flag.Duration("timeout", time.Minute, "Give up on loads that take longer")
	verbose    = flag.Bool("v", false, "Log scheduling events")
)

func main() {
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(names []string) error {
	cfg, err := core.LoadConfiguration(*configFile, *envFile)
	if err != nil {
		return err
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := core.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	src, files, closer, err := core.OpenSource(cfg.Assets)
	if err != nil {
		return err
	}
	defer closer.Close()

	if len(names) > 0 {
		files = files[:0]
		for _, n := range names {
			files = append(files, core.AssetFile{Name: n, Kind: loaders.KindForPath(n)})
		}
	}

	loader := asset.New(cfg.AssetLoader(logger))
	if err := loaders.Register(loader, src); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	failed, err := load(ctx, loader, logger, cfg.Assets, files)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"assets":  len(files),
		"failed":  failed,
		"workers": loader.Workers(),
		"took":    time.Since(start).Round(time.Millisecond),
	}).Info("done")
	if failed > 0 {
		return fmt.Errorf("%d of %d assets failed to load", failed, len(files))
	}
	return nil
}

// load runs every file through loader and counts the failed loads.
// When ctx ends first the loader is abandoned with QuickExit.
func load(ctx context.Context, loader *asset.AssetLoader, logger log.FieldLogger, assets core.AssetsConfiguration, files []core.AssetFile) (int, error) {
	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		f := f
		future := loader.Load(f.Kind, f.Name)
		g.Go(func() error {
			a, err := future.Wait(gctx)
			if gctx.Err() != nil && !future.Ready() {
				return gctx.Err()
			}
			flog := logger.WithFields(log.Fields{
				"asset":    f.Name,
				"kind":     f.Kind,
				"location": assets.Location(f.Name),
			})
			if err != nil {
				failed.Add(1)
				flog.WithError(err).Error("load failed")
				return nil
			}
			flog.Info(describe(a))
			if r, ok := a.(asset.Releasable); ok {
				r.Release()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Warn("giving up on pending loads")
		loader.QuickExit()
		return int(failed.Load()), err
	}
	loader.StopRunning()
	loader.Wait()
	return int(failed.Load()), nil
}

func describe(a asset.Asset) string {
	switch v := a.(type) {
	case []byte:
		return fmt.Sprintf("blob of %d bytes", len(v))
	case *model.Texture:
		return fmt.Sprintf("texture %dx%d, row pitch %d", v.Width, v.Height, v.RowPitch)
	case *model.ColladaObject:
		return fmt.Sprintf("mesh %q with %d vertices (%d bytes) and %d textures",
			v.Name(), len(v.Vertices()), model.VertexBufferSize(v), len(v.Textures()))
	case *loaders.Bundle:
		return fmt.Sprintf("bundle %q with %d files", v.Name, len(v.Files))
	default:
		return fmt.Sprintf("%T", v)
	}
}
