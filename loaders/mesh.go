// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loaders

import (
	"github.com/devblok/koruasset/asset"
	"github.com/devblok/koruasset/model"
)

// ImportMesh is the job that converts a Collada document to an object.
type ImportMesh struct {
	Data []byte
}

// Kind implements the job kind name.
func (ImportMesh) Kind() string {
	return "import-mesh"
}

// Run imports the document.
func (m ImportMesh) Run() (*model.ColladaObject, error) {
	return model.ImportColladaObject(m.Data)
}

type meshStage int

const (
	meshRead meshStage = iota
	meshImport
	meshReadImages
	meshDecodeImages
	meshAttach
)

type imageRead struct {
	path   string
	read   *asset.Awaitable[[]byte]
	decode *asset.Awaitable[*model.Texture]
}

// meshLoader reads a Collada document, imports it and loads every
// image it references. Images that cannot be read or decoded are
// skipped with a warning, the mesh still loads.
type meshLoader struct {
	src   asset.Source
	stage meshStage

	read   *asset.Awaitable[[]byte]
	imp    *asset.Awaitable[*model.ColladaObject]
	obj    *model.ColladaObject
	images []*imageRead
}

func (m *meshLoader) Resume(c *asset.Context) asset.Step {
	switch m.stage {
	case meshRead:
		m.read = asset.Start[[]byte](c, asset.ReadFile{Path: c.Path(), Source: m.src})
		m.stage = meshImport
		return c.Await()

	case meshImport:
		data, err := m.read.Result()
		if err != nil {
			return asset.Fail(err)
		}
		m.imp = asset.Start[*model.ColladaObject](c, ImportMesh{Data: data})
		m.stage = meshReadImages
		return c.Await()

	case meshReadImages:
		obj, err := m.imp.Result()
		if err != nil {
			return asset.Fail(err)
		}
		m.obj = obj
		for _, ref := range obj.Images() {
			p := relative(c.Path(), ref)
			m.images = append(m.images, &imageRead{
				path: p,
				read: asset.Start[[]byte](c, asset.ReadFile{Path: p, Source: m.src}),
			})
		}
		m.stage = meshDecodeImages
		return c.Await()

	case meshDecodeImages:
		for _, img := range m.images {
			data, err := img.read.Result()
			if err != nil {
				c.Logger().WithError(err).WithField("image", img.path).Warn("mesh image skipped")
				continue
			}
			img.decode = asset.Start[*model.Texture](c, DecodeImage{Name: img.path, Data: data})
		}
		m.stage = meshAttach
		return c.Await()
	}

	for _, img := range m.images {
		if img.decode == nil {
			continue
		}
		tex, err := img.decode.Result()
		if err != nil {
			c.Logger().WithError(err).WithField("image", img.path).Warn("mesh image skipped")
			continue
		}
		m.obj.AttachTexture(tex)
	}
	return asset.Done(m.obj)
}
