package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// encode writes v as indented JSON or block-style YAML. YAML keys follow
// the JSON field names and order.
func encode(w io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "json#Marshal")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return errors.Wrap(err, "yaml#Unmarshal")
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return errors.Wrap(err, "yaml#Encode")
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles a JSON source leaves on the
// node tree so the encoder picks plain block output.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
