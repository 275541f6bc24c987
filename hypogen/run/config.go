package run

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Config holds the settings that can come from a config file or the environment as
// well as from flags.
type Config struct {
	LibraryPath      []string `json:"library_path"`
	NoDefaultLibrary bool     `json:"no_default_library"`
	Package          string   `json:"package"     validate:"omitempty,go_ident"`
	Reorder          bool     `json:"reorder"`
	LogLevel         string   `json:"log_level"   validate:"oneof=panic fatal error warn info debug trace"`
	Parallelism      int      `json:"parallelism" validate:"gte=0"`
}

// DefaultConfig is the lowest configuration layer.
func DefaultConfig() Config {
	return Config{LogLevel: "warn"}
}

// LoadConfig layers, lowest first: defaults, the JSON config file, then HYPOGEN_*
// environment variables. An explicit path must exist; otherwise DefaultConfigFile is
// read from the working directory when present. HYPOGEN_LIBRARY_PATH is a list
// separated like PATH.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "json"), nil); err != nil {
		return nil, fmt.Errorf("failed to load default configuration: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); err == nil || explicit {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("%w: failed to load config file %s: %w", ErrConfig, path, err)
		}
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "library_path" {
			return key, filepath.SplitList(value)
		}

		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load environment: %w", ErrConfig, err)
	}

	var cfg Config

	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}

	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return &cfg, nil
}

// Validate checks the configuration's field constraints.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]

			return fmt.Errorf("%w: %s fails %q (got %v)", ErrConfig, first.Field(), first.Tag(), first.Value())
		}

		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return nil
}

// apply lays the flags over the loaded configuration.
func (c *Config) apply(args cliArgs) {
	c.LibraryPath = append(c.LibraryPath, args.Library...)

	if args.NoDefaultLibrary {
		c.NoDefaultLibrary = true
	}

	if args.Package != "" {
		c.Package = args.Package
	}

	if args.Reorder {
		c.Reorder = true
	}

	if args.Debug {
		c.LogLevel = "debug"
	}
}

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = "hypogen.json"

// Exported variables.
var (
	ErrConfig = errors.New("invalid configuration")
)

// unexported constants.
const envPrefix = "HYPOGEN_"

// unexported variables.
var (
	configValidator = newValidator() //nolint:gochecknoglobals // validators cache struct metadata
)

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	if err := v.RegisterValidation("go_ident", func(fl validator.FieldLevel) bool {
		return util.IsIdentifier(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register go_ident validation: %v", err))
	}

	return v
}
