package specialtariff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xref.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
programs:
  - country: CN
    hts_prefix: "8517"
    special_number: "9903.88.03"
    program_type: "301"
    priority: 5
    auto_include: true
    effective_from: "2018-09-24"
  - hts_prefix: "7208"
    special_number: "9903.80.01"
    program_type: "232"
    auto_include: true
`), 0o644))

	programs, err := LoadYAML(path)
	require.NoError(t, err)
	require.Len(t, programs, 2)

	assert.Equal(t, "CN", programs[0].Country)
	require.NotNil(t, programs[0].Priority)
	assert.Equal(t, float64(5), *programs[0].Priority)
	require.NotNil(t, programs[0].EffectiveFrom)
	assert.Equal(t, 2018, programs[0].EffectiveFrom.Year())

	assert.Nil(t, programs[1].Priority)
	assert.Nil(t, programs[1].EffectiveFrom)

	r := NewResolver(programs, WithDefaultPriority(2))
	got := r.TariffsFor("DE", "7208.10", *date("2024-01-01"), ModeAutoInclude, false)
	require.Len(t, got, 1)
	assert.Equal(t, float64(2), got[0].Priority)
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := ParseYAML([]byte("programs: [oops"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte(`
programs:
  - special_number: "9903.88.03"
    effective_from: "2024-02-01"
    effective_to: "2024-01-01"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program 1")

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
