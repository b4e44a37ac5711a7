package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceList is the YAML document accepted by `dswav merge --from`:
//
//	sources:
//	  - /data/other-speaker
//	  - ../shared/noise
//
// Relative paths resolve against the list file's directory.
type SourceList struct {
	Sources []string `yaml:"sources"`
}

// LoadSourceList reads a YAML source list.
func LoadSourceList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source list: %w", err)
	}

	var list SourceList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse source list %s: %w", path, err)
	}

	base := filepath.Dir(path)
	out := make([]string, 0, len(list.Sources))
	for _, s := range list.Sources {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !filepath.IsAbs(s) {
			s = filepath.Join(base, s)
		}
		out = append(out, s)
	}
	return out, nil
}
