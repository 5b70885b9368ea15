package logging

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlRouter mirrors the routing file. Every section is merged over the
// built-in template, entry by entry.
type yamlRouter struct {
	LogDir     string                   `yaml:"log_dir"`
	Formatters map[string]yamlFormatter `yaml:"formatters"`
	Handlers   map[string]yamlHandler   `yaml:"handlers"`
	Loggers    map[string]yamlBinding   `yaml:"loggers"`
	Root       *yamlBinding             `yaml:"root"`
}

type yamlFormatter struct {
	Format string `yaml:"format"`
}

type yamlHandler struct {
	Kind      string `yaml:"kind"`
	Level     string `yaml:"level"`
	Formatter string `yaml:"formatter"`
	Filename  string `yaml:"filename"`
	When      string `yaml:"when"`
	Backups   *int   `yaml:"backup_count"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

type yamlBinding struct {
	Level     string   `yaml:"level"`
	Handlers  []string `yaml:"handlers"`
	Propagate bool     `yaml:"propagate"`
}

// LoadRouterConfig reads a YAML routing file and merges it over
// DefaultRouterConfig. The result is validated.
func LoadRouterConfig(path string) (RouterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RouterConfig{}, fmt.Errorf("read file: %w", err)
	}
	return ParseRouterConfig(data)
}

// ParseRouterConfig is LoadRouterConfig for an in-memory document.
func ParseRouterConfig(data []byte) (RouterConfig, error) {
	var doc yamlRouter
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RouterConfig{}, fmt.Errorf("parse YAML: %w", err)
	}

	cfg := DefaultRouterConfig()
	if err := applyYAMLRouter(&cfg, &doc); err != nil {
		return RouterConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return RouterConfig{}, err
	}
	return cfg, nil
}

func applyYAMLRouter(cfg *RouterConfig, doc *yamlRouter) error {
	if doc.LogDir != "" {
		cfg.LogDir = doc.LogDir
	}

	for name, f := range doc.Formatters {
		cfg.Formatters[name] = FormatterSpec{Name: name, Template: f.Format}
	}

	for name, h := range doc.Handlers {
		spec, err := handlerSpec(name, h, cfg.Sinks[name])
		if err != nil {
			return err
		}
		cfg.Sinks[name] = spec
	}

	if doc.Root != nil {
		b, err := bindingSpec("", *doc.Root)
		if err != nil {
			return err
		}
		cfg.Root = b
	}

	for name, raw := range doc.Loggers {
		b, err := bindingSpec(name, raw)
		if err != nil {
			return err
		}
		cfg.Loggers[name] = b
	}
	return nil
}

// handlerSpec merges h over base, which is the zero value for new handlers.
func handlerSpec(name string, h yamlHandler, base SinkSpec) (SinkSpec, error) {
	spec := base
	spec.Name = name

	switch h.Kind {
	case "":
		if spec.Kind == "" {
			spec.Kind = SinkRotatingFile
			spec.Rotation = Rotation{AtMidnight: true, Backups: defaultBackups}
		}
	case string(SinkConsole), string(SinkRotatingFile):
		spec.Kind = SinkKind(h.Kind)
		if spec.Kind == SinkRotatingFile && base.Kind != SinkRotatingFile {
			spec.Rotation = Rotation{AtMidnight: true, Backups: defaultBackups}
		}
	default:
		return SinkSpec{}, fmt.Errorf("%w: handler %q has unknown kind %q", ErrInvalidRouterConfig, name, h.Kind)
	}

	if h.Level != "" {
		level, err := ParseSeverity(h.Level)
		if err != nil {
			return SinkSpec{}, fmt.Errorf("%w: handler %q: %v", ErrInvalidRouterConfig, name, err)
		}
		spec.MinSeverity = level
	}
	if h.Formatter != "" {
		spec.Formatter = h.Formatter
	} else if spec.Formatter == "" {
		spec.Formatter = FormatterSimple
	}
	if h.Filename != "" {
		spec.FilePath = h.Filename
	}

	switch h.When {
	case "":
	case "midnight":
		spec.Rotation.AtMidnight = true
	case "never":
		spec.Rotation.AtMidnight = false
	default:
		return SinkSpec{}, fmt.Errorf("%w: handler %q has unsupported rotation %q", ErrInvalidRouterConfig, name, h.When)
	}
	if h.Backups != nil {
		spec.Rotation.Backups = *h.Backups
	}
	if h.MaxSizeMB != 0 {
		spec.Rotation.MaxSizeMB = h.MaxSizeMB
	}

	if spec.Kind == SinkConsole {
		spec.FilePath = ""
		spec.Rotation = Rotation{}
	}
	return spec, nil
}

func bindingSpec(name string, raw yamlBinding) (LoggerBinding, error) {
	b := LoggerBinding{
		Name:        name,
		Sinks:       append([]string(nil), raw.Handlers...),
		MinSeverity: SeverityDebug,
		Propagate:   raw.Propagate,
	}
	if raw.Level != "" {
		level, err := ParseSeverity(raw.Level)
		if err != nil {
			label := name
			if label == "" {
				label = RootLogger
			}
			return LoggerBinding{}, fmt.Errorf("%w: logger %q: %v", ErrInvalidRouterConfig, label, err)
		}
		b.MinSeverity = level
	}
	return b, nil
}
