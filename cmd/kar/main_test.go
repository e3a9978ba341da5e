// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCompressListExtract(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	src := filepath.Join(dir, "assets")
	files := map[string]string{
		"textures/stone.png": strings.Repeat("png", 300),
		"shaders/basic.vert": "void main() {}",
		"readme":             "hello",
	}
	for name, content := range files {
		p := filepath.Join(src, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(p), 0o755), qt.IsNil)
		c.Assert(os.WriteFile(p, []byte(content), 0o644), qt.IsNil)
	}

	archive := filepath.Join(dir, "assets.kar")
	c.Assert(compressFiles(src, archive), qt.IsNil)
	c.Assert(compressFiles(src, archive), qt.ErrorMatches, "destination file exists.*")

	var listing bytes.Buffer
	c.Assert(listFiles(archive, &listing), qt.IsNil)
	lines := strings.Split(strings.TrimSpace(listing.String()), "\n")
	c.Assert(lines, qt.HasLen, 4)
	c.Assert(lines[1], qt.Matches, `\s+5\s+\d+ readme`)
	c.Assert(lines[3], qt.Matches, `\s+900\s+\d+ textures/stone.png`)

	out := filepath.Join(dir, "out")
	c.Assert(extractFiles(archive, out), qt.IsNil)
	for name, content := range files {
		data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(name)))
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Equals, content)
	}
}

func TestEntryName(t *testing.T) {
	c := qt.New(t)
	c.Assert(entryName("assets", filepath.Join("assets", "a", "b.png")), qt.Equals, "a/b.png")
	c.Assert(entryName(filepath.Join("assets", "b.png"), filepath.Join("assets", "b.png")), qt.Equals, "b.png")
}
