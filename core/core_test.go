package core_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/koruasset/core"
	"github.com/devblok/koruasset/loaders"
	"github.com/devblok/koruasset/utility/kar"
)

func clearEnv(c *qt.C) {
	for _, key := range []string{core.EnvWorkers, core.EnvAssetsRoot, core.EnvAssetArchive, core.EnvLogLevel, core.EnvLogFormat} {
		c.Setenv(key, "")
	}
}

func writeFile(c *qt.C, dir, name, content string) string {
	p := filepath.Join(dir, filepath.FromSlash(name))
	c.Assert(os.MkdirAll(filepath.Dir(p), 0o755), qt.IsNil)
	c.Assert(os.WriteFile(p, []byte(content), 0o644), qt.IsNil)
	return p
}

func TestDefaultConfiguration(t *testing.T) {
	c := qt.New(t)
	cfg, err := core.DefaultConfiguration()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, core.Configuration{
		Loader: core.LoaderConfiguration{Workers: 4},
		Assets: core.AssetsConfiguration{Root: "./assets"},
		Log:    core.LogConfiguration{Level: "info", Format: "text"},
	})
	c.Assert(cfg.Validate(), qt.IsNil)
}

func TestConfigurationPrecedence(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)
	dir := c.TempDir()
	path := writeFile(c, dir, "koru.yaml", "loader:\n  workers: 8\nlog:\n  level: debug\n")

	cfg, err := core.LoadConfiguration(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Loader.Workers, qt.Equals, 8)
	c.Assert(cfg.Log.Level, qt.Equals, "debug")
	c.Assert(cfg.Log.Format, qt.Equals, "text")
	c.Assert(cfg.Assets.Root, qt.Equals, "./assets")

	c.Setenv(core.EnvWorkers, "2")
	c.Setenv(core.EnvLogFormat, "json")
	cfg, err = core.LoadConfiguration(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Loader.Workers, qt.Equals, 2)
	c.Assert(cfg.Log.Level, qt.Equals, "debug")
	c.Assert(cfg.Log.Format, qt.Equals, "json")
}

func TestConfigurationEnvFile(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)
	dir := c.TempDir()
	envFile := writeFile(c, dir, "koru.env", "KORU_ASSETS_ARCHIVE=assets.kar\n")
	// env files never override variables that are already set
	os.Unsetenv(core.EnvAssetArchive)

	cfg, err := core.LoadConfiguration("", filepath.Join(dir, "missing.env"), envFile)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Assets.Archive, qt.Equals, "assets.kar")
}

func TestConfigurationErrors(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)
	dir := c.TempDir()

	_, err := core.LoadConfiguration(filepath.Join(dir, "nope.yaml"))
	c.Assert(os.IsNotExist(err), qt.IsTrue)

	bad := writeFile(c, dir, "bad.yaml", "loader: [1, 2")
	_, err = core.LoadConfiguration(bad)
	c.Assert(err, qt.ErrorIs, core.ErrConfiguration)

	c.Setenv(core.EnvWorkers, "many")
	_, err = core.LoadConfiguration("")
	c.Assert(err, qt.ErrorIs, core.ErrConfiguration)

	c.Setenv(core.EnvWorkers, "0")
	c.Setenv(core.EnvLogFormat, "xml")
	_, err = core.LoadConfiguration("")
	c.Assert(err, qt.ErrorIs, core.ErrConfiguration)
	c.Assert(err, qt.ErrorMatches, `(?s).*loader.workers must be positive.*log.format "xml".*`)
}

func TestNewLogger(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	logger, err := core.NewLogger(core.LogConfiguration{Level: "warn", Format: "json"}, &buf)
	c.Assert(err, qt.IsNil)
	c.Assert(logger.GetLevel(), qt.Equals, log.WarnLevel)

	logger.Info("hidden")
	logger.WithField("kind", "mesh").Warn("shown")

	var entry map[string]interface{}
	c.Assert(json.Unmarshal(buf.Bytes(), &entry), qt.IsNil)
	c.Assert(entry["msg"], qt.Equals, "shown")
	c.Assert(entry["kind"], qt.Equals, "mesh")

	_, err = core.NewLogger(core.LogConfiguration{Level: "loud"}, &buf)
	c.Assert(err, qt.Not(qt.IsNil))
	_, err = core.NewLogger(core.LogConfiguration{Level: "info", Format: "xml"}, &buf)
	c.Assert(err, qt.ErrorIs, core.ErrConfiguration)
}

func TestDiscoverAssets(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	writeFile(c, dir, "textures/stone.png", "x")
	writeFile(c, dir, "models/tri.dae", "x")
	writeFile(c, dir, "level.yaml", "x")
	writeFile(c, dir, "shaders/basic.vert", "x")
	writeFile(c, dir, ".git/config", "x")
	writeFile(c, dir, ".hidden", "x")

	files, err := core.DiscoverAssets(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(files, qt.DeepEquals, []core.AssetFile{
		{Name: "level.yaml", Kind: loaders.KindBundle},
		{Name: "models/tri.dae", Kind: loaders.KindMesh},
		{Name: "shaders/basic.vert", Kind: loaders.KindBlob},
		{Name: "textures/stone.png", Kind: loaders.KindTexture},
	})

	_, err = core.DiscoverAssets(filepath.Join(dir, "missing"))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestOpenSource(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	writeFile(c, dir, "root/shaders/basic.vert", "void main() {}")

	src, files, closer, err := core.OpenSource(core.AssetsConfiguration{Root: filepath.Join(dir, "root")})
	c.Assert(err, qt.IsNil)
	c.Assert(files, qt.HasLen, 1)
	data, err := src.ReadAll("shaders/basic.vert")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "void main() {}")
	c.Assert(closer.Close(), qt.IsNil)

	b, err := kar.NewBuilder(kar.Header{})
	c.Assert(err, qt.IsNil)
	defer b.Close()
	c.Assert(b.Add("models/tri.dae", strings.NewReader("<COLLADA/>")), qt.IsNil)
	archive, err := os.Create(filepath.Join(dir, "assets.kar"))
	c.Assert(err, qt.IsNil)
	_, err = b.WriteTo(archive)
	c.Assert(err, qt.IsNil)
	c.Assert(archive.Close(), qt.IsNil)

	cfg := core.AssetsConfiguration{Root: "ignored", Archive: archive.Name()}
	src, files, closer, err = core.OpenSource(cfg)
	c.Assert(err, qt.IsNil)
	defer closer.Close()
	c.Assert(files, qt.DeepEquals, []core.AssetFile{{Name: "models/tri.dae", Kind: loaders.KindMesh}})
	data, err = src.ReadAll("models/tri.dae")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "<COLLADA/>")
}

func TestAssetsPath(t *testing.T) {
	c := qt.New(t)
	a := core.AssetsConfiguration{Root: "/srv/assets"}
	c.Assert(a.Path("textures/stone.png"), qt.Equals, filepath.Join("/srv/assets", "textures", "stone.png"))
	c.Assert(a.Location("textures/stone.png"), qt.Equals, a.Path("textures/stone.png"))

	a.Archive = "assets.kar"
	c.Assert(a.Location("textures/stone.png"), qt.Equals, "assets.kar:textures/stone.png")
}
