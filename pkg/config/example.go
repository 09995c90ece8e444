package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteExample writes a commented default configuration file to path.
// Fails when the file already exists.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %q already exists", path)
	}

	out, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	header := []byte("# membuf configuration\n" +
		"# Values can be overridden with MEMBUF_* environment variables,\n" +
		"# e.g. MEMBUF_MEMBUF_ENABLE=true.\n\n")
	if err := os.WriteFile(path, append(header, out...), 0o644); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}
