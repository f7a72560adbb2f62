package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlantern/camtest/harness/definitions"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cams.json", `{
		"60D": {"roms": ["d266ce304585952fb3a05a9f6c304f2f"], "digic": 4, "gui": true, "sd": true},
		"5D3": {"roms": ["e6a90e8497c2c1187e0322010a42b9b5"], "digic": 5, "gui": true, "sd": true, "cf": true}
	}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"5D3", "60D"}, reg.Models())
	assert.True(t, reg.KnownROM("60D", "d266ce304585952fb3a05a9f6c304f2f"))
	assert.False(t, reg.KnownROM("60D", "ffffffffffffffffffffffffffffffff"))
	assert.False(t, reg.KnownROM("700D", "d266ce304585952fb3a05a9f6c304f2f"))

	spec := reg["5D3"]
	assert.Equal(t, 5, spec.Digic)
	assert.True(t, spec.CF)
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadSequences(t *testing.T) {
	path := writeFile(t, t.TempDir(), "key_sequences.json", `{
		"e06a0e3919ac4d4ef609a864e937a5d3": ["m", "wait l", "wait l", "m"]
	}`)

	table, err := LoadSequences(path)
	require.NoError(t, err)

	steps, ok := table.StepsFor("e06a0e3919ac4d4ef609a864e937a5d3")
	require.True(t, ok)
	assert.Equal(t, []definitions.InputStep{
		{Key: "m"},
		{Key: "l", ExtendedWait: true},
		{Key: "l", ExtendedWait: true},
		{Key: "m"},
	}, steps)

	_, ok = table.StepsFor("0000")
	assert.False(t, ok)
}

func TestShippedConfigFilesParse(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "config", "cams.json"))
	require.NoError(t, err)
	require.NotEmpty(t, reg)

	table, err := LoadSequences(filepath.Join("..", "config", "key_sequences.json"))
	require.NoError(t, err)

	// every registered rom must have a key sequence
	for model, spec := range reg {
		for _, md5 := range spec.ROMs {
			steps, ok := table.StepsFor(md5)
			assert.True(t, ok, "model %s rom %s has no sequence", model, md5)
			assert.NotEmpty(t, steps)
		}
	}
}
