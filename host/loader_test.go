package host_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/host"
)

// ConfigLoaderSuite runs the full parse and validate pipeline.
type ConfigLoaderSuite struct {
	suite.Suite
	loader *host.ConfigLoader
}

func (s *ConfigLoaderSuite) SetupTest() {
	l, err := host.NewConfigLoader()
	s.Require().NoError(err)
	s.loader = l
}

func (s *ConfigLoaderSuite) TestValidConfig() {
	cfg, err := s.loader.Load([]byte(`
module_name: os_call
max_parameters: 12
log_level: debug
grants:
  native:
    rules:
      - modules: ["libc.so*", "msvcrt.dll"]
        symbols: ["strlen", "#12"]
`))
	s.Require().NoError(err)
	s.Equal(12, cfg.MaxParameters)
	s.Equal("debug", cfg.LogLevel)
	s.Require().NotNil(cfg.Grants)
	s.Equal([]string{"strlen", "#12"}, cfg.Grants.Native.Rules[0].Symbols)
	s.Equal(entities.DefaultBridgeConfig().Allocator, cfg.Allocator)
}

func (s *ConfigLoaderSuite) TestEmptyConfigIsDefault() {
	cfg, err := s.loader.Load(nil)
	s.Require().NoError(err)
	s.Equal(entities.DefaultBridgeConfig(), *cfg)
}

func (s *ConfigLoaderSuite) TestTooManyParameters() {
	_, err := s.loader.Load([]byte("max_parameters: 17\n"))
	s.Require().Error(err)
	var ce *domainerrors.ConfigError
	s.Require().ErrorAs(err, &ce)
	s.Equal("BridgeConfig.MaxParameters", ce.Field)
}

func (s *ConfigLoaderSuite) TestUnknownKey() {
	_, err := s.loader.Load([]byte("max_modulez: 3\n"))
	s.Require().Error(err)
	s.Contains(err.Error(), "failed to parse config")
}

func (s *ConfigLoaderSuite) TestLoadFile() {
	path := filepath.Join(s.T().TempDir(), "oscall.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("module_name: native\n"), 0o600))

	cfg, err := s.loader.LoadFile(path)
	s.Require().NoError(err)
	s.Equal("native", cfg.ModuleName)

	_, err = s.loader.LoadFile(filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.Error(err)
}

func TestConfigLoaderSuite(t *testing.T) {
	suite.Run(t, new(ConfigLoaderSuite))
}

func TestConfigLoader_Base(t *testing.T) {
	base := entities.NewBridgeConfig(entities.WithModuleName("env"))
	l, err := host.NewConfigLoader(host.WithBase(base))
	require.NoError(t, err)

	cfg, err := l.Load([]byte("max_parameters: 4\n"))
	require.NoError(t, err)
	require.Equal(t, "env", cfg.ModuleName)
	require.Equal(t, 4, cfg.MaxParameters)
}
