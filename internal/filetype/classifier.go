// Package filetype decides how a target file can carry an embedded
// manifest id, using the extension table from the config file.
package filetype

import (
	"path/filepath"
	"strings"

	"github.com/dyluth/omnibor/internal/config"
	"github.com/dyluth/omnibor/pkg/omnibor"
)

// Classifier maps lowercase file extensions to target types. Extensions not
// in the table classify as uncertain.
type Classifier struct {
	byExt map[string]omnibor.TargetType
}

// New builds a classifier from a validated embed table.
func New(embed config.EmbedConfig) *Classifier {
	c := &Classifier{byExt: make(map[string]omnibor.TargetType)}

	for _, text := range embed.Text {
		for _, ext := range text.Extensions {
			name := text.Name
			if name == "" {
				name = strings.TrimPrefix(ext, ".")
			}
			c.byExt[strings.ToLower(ext)] = omnibor.TextTarget(name, text.Prefix, text.Suffix)
		}
	}
	for _, binary := range embed.Binary {
		for _, ext := range binary.Extensions {
			c.byExt[strings.ToLower(ext)] = omnibor.UnsupportedBinaryTarget(binary.Name)
		}
	}

	return c
}

// Classify implements omnibor.Classifier. It never fails; unknown
// extensions are uncertain.
func (c *Classifier) Classify(path string) (omnibor.TargetType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if target, ok := c.byExt[ext]; ok {
		return target, nil
	}
	return omnibor.UncertainTarget(), nil
}
