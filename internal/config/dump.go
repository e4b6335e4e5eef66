package config

import "gopkg.in/yaml.v3"

// dumpView is the YAML-serialisable projection of Config used by `intmud
// config dump`, which re-serialises the parsed configuration to YAML for
// operators (`intmud config check` only parses the file and reports
// errors). A separate struct (rather than yaml tags on Config) keeps
// the field casing operators expect independent of the .int key spellings.
type dumpView struct {
	SourceDir    string            `yaml:"source_dir"`
	MainFile     string            `yaml:"main_file"`
	ServerPort   int               `yaml:"server_port"`
	BindAddress  string            `yaml:"bind_address"`
	TickInterval int               `yaml:"tick_interval_ms"`
	MaxCycles    int               `yaml:"max_cycles"`
	HotReload    bool              `yaml:"hot_reload"`
	Incluir      []string          `yaml:"incluir"`
	Exec         int               `yaml:"exec"`
	TelaTxt      bool              `yaml:"telatxt"`
	Log          int               `yaml:"log"`
	Err          int               `yaml:"err"`
	Completo     bool              `yaml:"completo"`
	Unknown      map[string]string `yaml:"unknown,omitempty"`
}

// DumpYAML renders the configuration as YAML for `intmud config dump`.
func (c Config) DumpYAML() (string, error) {
	v := dumpView{
		SourceDir: c.SourceDir, MainFile: c.MainFile, ServerPort: c.ServerPort,
		BindAddress: c.BindAddress, TickInterval: c.TickInterval, MaxCycles: c.MaxCycles,
		HotReload: c.HotReload, Incluir: c.Incluir, Exec: c.Exec, TelaTxt: c.TelaTxt,
		Log: c.Log, Err: int(c.Err), Completo: c.Completo, Unknown: c.Unknown,
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
