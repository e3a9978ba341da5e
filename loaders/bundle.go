// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loaders

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/devblok/koruasset/asset"
)

// Manifest describes a bundle: a named group of files
// loaded together. Paths are relative to the manifest.
type Manifest struct {
	Name  string   `yaml:"name"`
	Files []string `yaml:"files"`
}

// ParseManifest decodes a bundle manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("bundle manifest: %w", err)
	}
	return m, nil
}

// Bundle is the contents of every file a manifest lists,
// keyed by the path as written in the manifest.
type Bundle struct {
	Name  string
	Files map[string][]byte
}

// Release drops the file contents.
func (b *Bundle) Release() {
	b.Files = nil
}

// bundleLoader fails when any listed file cannot be read.
type bundleLoader struct {
	src      asset.Source
	manifest *asset.Awaitable[[]byte]
	bundle   *Bundle
	files    []string
	reads    []*asset.Awaitable[[]byte]
}

func (b *bundleLoader) Resume(c *asset.Context) asset.Step {
	switch {
	case b.manifest == nil:
		b.manifest = asset.Start[[]byte](c, asset.ReadFile{Path: c.Path(), Source: b.src})
		return c.Await()
	case b.bundle == nil:
		data, err := b.manifest.Result()
		if err != nil {
			return asset.Fail(err)
		}
		m, err := ParseManifest(data)
		if err != nil {
			return asset.Fail(err)
		}
		if m.Name == "" {
			m.Name = c.Path()
		}
		b.bundle = &Bundle{Name: m.Name, Files: make(map[string][]byte, len(m.Files))}
		b.files = m.Files
		for _, f := range m.Files {
			b.reads = append(b.reads, asset.Start[[]byte](c, asset.ReadFile{Path: relative(c.Path(), f), Source: b.src}))
		}
		c.Logger().WithField("files", len(m.Files)).Debugf("bundle %s", m.Name)
		return c.Await()
	}

	var errs []error
	for i, r := range b.reads {
		data, err := r.Result()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.bundle.Files[b.files[i]] = data
	}
	if len(errs) > 0 {
		return asset.Fail(fmt.Errorf("bundle %s: %w", b.bundle.Name, errors.Join(errs...)))
	}
	return asset.Done(b.bundle)
}
