// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loaders

import (
	"bytes"
	"fmt"
	"image"

	// image formats understood by DecodeImage
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/devblok/koruasset/asset"
	"github.com/devblok/koruasset/model"
)

// DecodeImage is the job that turns encoded image data into a texture.
type DecodeImage struct {
	Name string
	Data []byte
}

// Kind implements the job kind name.
func (DecodeImage) Kind() string {
	return "decode-image"
}

// Run decodes the image.
func (d DecodeImage) Run() (*model.Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(d.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Name, err)
	}
	return model.NewTexture(d.Name, img), nil
}

type textureLoader struct {
	src    asset.Source
	read   *asset.Awaitable[[]byte]
	decode *asset.Awaitable[*model.Texture]
}

func (t *textureLoader) Resume(c *asset.Context) asset.Step {
	switch {
	case t.read == nil:
		t.read = asset.Start[[]byte](c, asset.ReadFile{Path: c.Path(), Source: t.src})
		return c.Await()
	case t.decode == nil:
		data, err := t.read.Result()
		if err != nil {
			return asset.Fail(err)
		}
		t.decode = asset.Start[*model.Texture](c, DecodeImage{Name: c.Path(), Data: data})
		return c.Await()
	}
	tex, err := t.decode.Result()
	if err != nil {
		return asset.Fail(err)
	}
	c.Logger().WithField("size", fmt.Sprintf("%dx%d", tex.Width, tex.Height)).Debug("texture decoded")
	return asset.Done(tex)
}
