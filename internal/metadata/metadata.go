// Package metadata parses the in-document YAML metadata block: the first
// pre element with class "metadata". The block configures the document
// (title, location, external biblio tables) and is removed from the tree
// before traversal.
package metadata

import (
	"gopkg.in/yaml.v3"

	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/errors"
)

// metadataXPath locates the block in raw source, before the compile tree
// exists.
const metadataXPath = `//pre[@class='metadata']`

// Document holds the decoded metadata block.
type Document struct {
	Title     string   `yaml:"title"`
	Shortname string   `yaml:"shortname"`
	Status    string   `yaml:"status"`
	Version   string   `yaml:"version"`
	Location  string   `yaml:"location"`
	Biblio    []string `yaml:"biblio"`
	Copyright bool     `yaml:"copyright"`
}

// FromSource extracts and decodes the metadata block from raw markup source.
// A document without a block yields an empty Document.
func FromSource(src []byte) (*Document, error) {
	blocks, err := dom.QuerySource(src, metadataXPath)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return &Document{}, nil
	}
	var d Document
	if err := yaml.Unmarshal([]byte(blocks[0]), &d); err != nil {
		return nil, &errors.LoadError{Op: "decode metadata", Err: err}
	}
	return &d, nil
}

// Strip removes the metadata block element from the compiled tree so it
// does not render. Returns true if a block was removed.
func Strip(root *dom.Node) bool {
	n := dom.Find(root, func(m *dom.Node) bool {
		return m.Kind == "pre" && m.AttrOr("class", "") == "metadata"
	})
	if n == nil {
		return false
	}
	n.Detach()
	return true
}
