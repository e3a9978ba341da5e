// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package loaders implements the engine's asset kinds on top of the
// asset scheduler: raw blobs, textures, Collada meshes with their
// textures, and bundles described by a YAML manifest.
package loaders

import (
	"path"
	"strings"

	"github.com/devblok/koruasset/asset"
)

// Asset kinds registered by Register.
const (
	KindBlob    asset.Kind = "blob"
	KindTexture asset.Kind = "texture"
	KindMesh    asset.Kind = "mesh"
	KindBundle  asset.Kind = "bundle"
)

// Suffixes maps file suffixes to the kind that loads them.
var Suffixes = map[string]asset.Kind{
	".png":  KindTexture,
	".jpg":  KindTexture,
	".jpeg": KindTexture,
	".gif":  KindTexture,
	".bmp":  KindTexture,
	".tif":  KindTexture,
	".tiff": KindTexture,
	".webp": KindTexture,
	".dae":  KindMesh,
	".yaml": KindBundle,
	".yml":  KindBundle,
}

// KindForPath picks the kind for a file by its suffix.
// Unknown suffixes are loaded as blobs.
func KindForPath(name string) asset.Kind {
	if kind, ok := Suffixes[strings.ToLower(path.Ext(name))]; ok {
		return kind
	}
	return KindBlob
}

// Register adds every kind of this package to l, reading files from src.
func Register(l *asset.AssetLoader, src asset.Source) error {
	generators := []struct {
		kind asset.Kind
		gen  asset.Generator
	}{
		{KindBlob, func(*asset.AssetLoader, string) asset.Loader { return &blobLoader{src: src} }},
		{KindTexture, func(*asset.AssetLoader, string) asset.Loader { return &textureLoader{src: src} }},
		{KindMesh, func(*asset.AssetLoader, string) asset.Loader { return &meshLoader{src: src} }},
		{KindBundle, func(*asset.AssetLoader, string) asset.Loader { return &bundleLoader{src: src} }},
	}
	for _, g := range generators {
		if err := l.Register(g.kind, g.gen); err != nil {
			return err
		}
	}
	return nil
}

// relative resolves ref against the directory of the file that names it.
func relative(from, ref string) string {
	ref = strings.TrimPrefix(ref, "file://")
	if path.IsAbs(ref) {
		return strings.TrimPrefix(ref, "/")
	}
	return path.Join(path.Dir(from), ref)
}

type blobLoader struct {
	src  asset.Source
	read *asset.Awaitable[[]byte]
}

func (b *blobLoader) Resume(c *asset.Context) asset.Step {
	if b.read == nil {
		b.read = asset.Start[[]byte](c, asset.ReadFile{Path: c.Path(), Source: b.src})
		return c.Await()
	}
	data, err := b.read.Result()
	if err != nil {
		return asset.Fail(err)
	}
	return asset.Done(data)
}
