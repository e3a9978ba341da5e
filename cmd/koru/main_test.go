// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/koruasset/asset"
	"github.com/devblok/koruasset/core"
)

func assetsDir(c *qt.C, files map[string]string) string {
	dir := c.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(p), 0o755), qt.IsNil)
		c.Assert(os.WriteFile(p, []byte(content), 0o644), qt.IsNil)
	}
	return dir
}

func setupEnv(c *qt.C, root string) {
	c.Setenv(core.EnvAssetsRoot, root)
	c.Setenv(core.EnvAssetArchive, "")
	c.Setenv(core.EnvWorkers, "")
	c.Setenv(core.EnvLogLevel, "error")
	c.Setenv(core.EnvLogFormat, "")
	c.Patch(configFile, "")
	c.Patch(envFile, filepath.Join(c.TempDir(), "missing.env"))
	c.Patch(timeout, time.Minute)
}

func TestRunReportsFailedLoads(t *testing.T) {
	c := qt.New(t)
	setupEnv(c, assetsDir(c, map[string]string{
		"shaders/basic.vert":  "void main() {}",
		"textures/broken.png": "not a png",
	}))

	c.Assert(run(nil), qt.ErrorMatches, "1 of 2 assets failed to load")
	c.Assert(run([]string{"shaders/basic.vert"}), qt.IsNil)
	c.Assert(run([]string{"shaders/missing.vert"}), qt.ErrorMatches, "1 of 1 assets failed to load")
}

func TestRunConfigurationError(t *testing.T) {
	c := qt.New(t)
	setupEnv(c, assetsDir(c, nil))
	c.Setenv(core.EnvWorkers, "none")

	c.Assert(run(nil), qt.ErrorIs, core.ErrConfiguration)
}

type blockingTask chan struct{}

func (b blockingTask) Run() ([]byte, error) {
	<-b
	return nil, nil
}

func TestLoadGivesUpAfterTimeout(t *testing.T) {
	c := qt.New(t)
	logger, hook := test.NewNullLogger()
	loader := asset.New(asset.Configuration{Workers: 1, Logger: logger})

	block := make(blockingTask)
	defer close(block)
	loader.RegisterLoader("stuck", func(_ *asset.AssetLoader, _ string) asset.Loader {
		var job *asset.Awaitable[[]byte]
		return asset.LoaderFunc(func(lc *asset.Context) asset.Step {
			if job == nil {
				job = asset.Start[[]byte](lc, block)
				return lc.Await()
			}
			data, err := job.Result()
			if err != nil {
				return asset.Fail(err)
			}
			return asset.Done(data)
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	failed, err := load(ctx, loader, logger, core.AssetsConfiguration{Root: "."}, []core.AssetFile{
		{Name: "a", Kind: "stuck"},
	})
	c.Assert(err, qt.ErrorIs, context.DeadlineExceeded)
	c.Assert(failed, qt.Equals, 0)
	var gaveUp bool
	for _, e := range hook.AllEntries() {
		gaveUp = gaveUp || e.Message == "giving up on pending loads"
	}
	c.Assert(gaveUp, qt.IsTrue)

	// the loader was stopped on the way out
	_, err = loader.Load("stuck", "b").Result()
	c.Assert(err, qt.ErrorIs, asset.ErrStopped)
}
