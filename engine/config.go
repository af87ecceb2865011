package engine

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/prisma/engine/core"
)

/** @brief configuration of the application hosting the engine */
type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name     string        `toml:"name"`
	LogLevel core.LogLevel `toml:"log_level"`
	// Directory watched for recompiled shader binaries. Empty disables hot reload.
	ShaderDir string `toml:"shader_dir"`
	// Upper bound on registered shaders.
	MaxShaderCount uint16 `toml:"max_shader_count"`
}

/** @brief returns a configuration with sensible development defaults */
func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:      100,
		StartPosY:      100,
		StartWidth:     1280,
		StartHeight:    720,
		Name:           "Prisma Engine",
		LogLevel:       core.LogLevelDebug,
		MaxShaderCount: 512,
	}
}

// LoadApplicationConfig reads a TOML configuration file and overlays it on
// top of the defaults. A missing file is not an error.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if config.StartWidth == 0 || config.StartHeight == 0 {
		return nil, fmt.Errorf("config %s: window dimensions must be non-zero", path)
	}
	if config.MaxShaderCount == 0 {
		config.MaxShaderCount = 512
	}
	return config, nil
}
