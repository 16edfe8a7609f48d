package officecfg

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/briefing-cli/internal/model"
)

// LoadFile reads a configuration from YAML. Top-level entries present in the
// file replace the defaults; absent ones keep them. The result is validated.
func LoadFile(path string) (*model.OfficeConfiguration, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "officecfg: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration document. The document
// may be wrapped in a top-level "configuracao" key.
func Parse(data []byte) (*model.OfficeConfiguration, []string, error) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, nil, eris.Wrap(err, "officecfg: parse")
	}

	cfg := model.DefaultOfficeConfiguration()
	if node, ok := top["configuracao"]; ok {
		if err := node.Decode(cfg); err != nil {
			return nil, nil, eris.Wrap(err, "officecfg: decode configuracao")
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, eris.Wrap(err, "officecfg: decode")
	}

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}
