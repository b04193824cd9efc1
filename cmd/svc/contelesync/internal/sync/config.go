package sync

import (
	"github.com/BurntSushi/toml"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/dal"
	"github.com/tecnotop/backend/libs/errors"
)

// FileConfig is the optional TOML tuning file for a sync deployment.
type FileConfig struct {
	AllowedFormTitles []string             `toml:"allowed_form_titles"`
	ObjectiveViews    []ObjectiveViewEntry `toml:"objective_views"`
}

// ObjectiveViewEntry configures one pivot view.
type ObjectiveViewEntry struct {
	Objective string `toml:"objective"`
	ViewName  string `toml:"view_name"`
}

// LoadFileConfig reads a TOML tuning file.
func LoadFileConfig(path string) (*FileConfig, error) {
	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, errors.Trace(err)
	}
	return &fc, nil
}

// Apply overlays the file settings onto cfg. Empty sections keep the
// defaults.
func (fc *FileConfig) Apply(cfg *Config) {
	if len(fc.AllowedFormTitles) != 0 {
		cfg.AllowedFormTitles = make(map[string]bool, len(fc.AllowedFormTitles))
		for _, t := range fc.AllowedFormTitles {
			cfg.AllowedFormTitles[t] = true
		}
	}
	if len(fc.ObjectiveViews) != 0 {
		cfg.ObjectiveViews = make([]dal.ObjectiveView, len(fc.ObjectiveViews))
		for i, v := range fc.ObjectiveViews {
			cfg.ObjectiveViews[i] = dal.ObjectiveView{Objective: v.Objective, ViewName: v.ViewName}
		}
	}
}
