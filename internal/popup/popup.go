package popup

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/byteowlz/pagebridge/internal/module"
)

// MountFunc receives the surface the popup module registers on init
type MountFunc func(tea.Model)

// New returns the popup module. Its entry point loads the settings payload
// and mounts the popup surface; the module exposes nothing else.
func New(client Extractor, mount MountFunc) *module.Exports {
	return &module.Exports{
		Default: func(_ context.Context, opts module.InitOptions) error {
			settings, err := LoadSettings(opts.ModuleOrPath)
			if err != nil {
				return err
			}
			mount(NewModel(client, settings))
			return nil
		},
	}
}
