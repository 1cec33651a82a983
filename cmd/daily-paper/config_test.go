// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-paper/pkg/types"
)

func TestMarshalConfigRoundTripsThroughViper(t *testing.T) {
	want := types.DefaultPipelineConfig()
	data, err := marshalConfig(want)
	require.NoError(t, err)
	assert.Contains(t, string(data), "retry_base_delay: 30s")
	assert.NotContains(t, string(data), "api_key")

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(data)))

	var got types.PipelineConfig
	require.NoError(t, v.Unmarshal(&got))
	assert.Equal(t, want, got)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "****", maskKey("abc"))
	assert.Equal(t, "****cdef", maskKey("sk-abcdef"))
}
