package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klagrassa/prog-tm-bmv2/internal/config"
)

func TestLoadFallsBackToDefaults(t *testing.T) {
	v := viper.New()
	cfg := config.Load(v)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestLoadOverridesFromBoundFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")
	flags.Bool("debug", false, "")
	flags.Int("pool-capacity", 0, "")
	require.NoError(t, flags.Parse([]string{"--listen=:9999", "--debug", "--pool-capacity=256"}))

	v := viper.New()
	require.NoError(t, v.BindPFlags(flags))

	cfg := config.Load(v)
	assert.Equal(t, ":9999", cfg.ConfigListenAddr)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 256, cfg.PoolCapacity)
}

func TestLoadSchedulerParams(t *testing.T) {
	raw := []byte("0:\n  0: [1, 2, 3]\n1:\n  2: [9]\n")
	params, err := config.LoadSchedulerParams(raw)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, params[0][0])
	assert.Equal(t, []int64{9}, params[1][2])
}

func TestLoadSchedulerParamsRejectsNonIntegerNodeID(t *testing.T) {
	raw := []byte("notanumber:\n  0: [1]\n")
	_, err := config.LoadSchedulerParams(raw)
	assert.Error(t, err)
}
