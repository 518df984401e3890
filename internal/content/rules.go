package content

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/byteowlz/pagebridge/internal/module"
)

// Rules is the content module's payload
type Rules struct {
	// NoiseSelectors are removed from the page body in Basic mode
	NoiseSelectors []string `yaml:"noise_selectors"`

	// MinContentLength rejects extractions shorter than this many characters (0 = no minimum)
	MinContentLength int `yaml:"min_content_length"`

	// CountSelector is reported in the elementFound notification after init
	CountSelector string `yaml:"count_selector"`
}

func DefaultRules() Rules {
	return Rules{
		NoiseSelectors: []string{
			"script",
			"style",
			"noscript",
			"iframe",
			"header",
			"footer",
			"nav",
			"aside",
			".sidebar",
			"#sidebar",
			".ad",
			".ads",
			".advertisement",
			".cookie-banner",
			"#cookie-banner",
			".social-share",
			".share-buttons",
			"#comments",
			".comments-section",
		},
		MinContentLength: 0,
		CountSelector:    "div",
	}
}

// LoadRules reads rules from a file:// location or a path
func LoadRules(location string) (Rules, error) {
	data, err := os.ReadFile(module.LocalPath(location))
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules: %w", err)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules: %w", err)
	}
	if rules.CountSelector == "" {
		rules.CountSelector = "div"
	}
	return rules, nil
}

// WriteDefaultRules writes the default rules to path, creating its directory
func WriteDefaultRules(path string) error {
	data, err := yaml.Marshal(DefaultRules())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating payload directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
