package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/candleview/shared"
	"github.com/peterldowns/testy/assert"
)

func TestDefault(t *testing.T) {
	cat := Default()
	assert.NoError(t, cat.Validate())
	assert.Equal(t, len(cat.Instruments), 8)
	assert.Equal(t, len(cat.Timeframes), 11)

	// Ensure instruments can be looked up by id.
	inst, err := cat.Instrument("avalanche-2")
	assert.NoError(t, err)
	assert.Equal(t, inst.Symbol, "AVAX")

	// Ensure looking up an unknown instrument errors.
	_, err = cat.Instrument("dogecoin")
	assert.True(t, errors.Is(err, shared.ErrUnknownInstrument))
}

func TestParse(t *testing.T) {
	data := `
instruments:
  - id: bitcoin
    name: Bitcoin
    symbol: BTC
timeframes:
  - token: 4h
    days: 1
    refetch: 2m
  - token: 1w
    label: 1 week
    days: 7
    refetch: 10m
    stale: 30s
`
	cat, err := Parse([]byte(data))
	assert.NoError(t, err)
	assert.Equal(t, len(cat.Instruments), 1)
	assert.Equal(t, len(cat.Timeframes), 2)

	// Ensure missing labels and stale thresholds fall back to defaults.
	assert.Equal(t, cat.Timeframes[0].Label, "4h")
	assert.Equal(t, cat.Timeframes[0].RefetchInterval, time.Minute*2)
	assert.Equal(t, cat.Timeframes[0].StaleAfter, shared.DefaultStaleAfter)

	assert.Equal(t, cat.Timeframes[1].RefetchInterval, time.Minute*10)
	assert.Equal(t, cat.Timeframes[1].StaleAfter, time.Second*30)

	// Ensure an empty document falls back to the built-in catalog.
	cat, err = Parse([]byte(``))
	assert.NoError(t, err)
	assert.Equal(t, len(cat.Instruments), 8)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		errContains []string
	}{
		{
			name:        "malformed yaml",
			data:        "instruments: [",
			errContains: []string{"parsing catalog"},
		},
		{
			name: "duplicate instruments",
			data: `
instruments:
  - id: bitcoin
  - id: bitcoin
`,
			errContains: []string{"duplicate instrument id bitcoin"},
		},
		{
			name: "invalid timeframes",
			data: `
timeframes:
  - token: 1d
    days: 0
  - token: 1w
    days: 7
  - token: 1w
    days: 7
`,
			errContains: []string{"lookback days must be positive", "duplicate timeframe token 1w"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
			for _, substr := range tt.errContains {
				assert.True(t, strings.Contains(err.Error(), substr))
			}
		})
	}
}

func TestLoad(t *testing.T) {
	// Ensure an empty path yields the built-in catalog.
	cat, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, len(cat.Instruments), 8)

	// Ensure a missing file yields the built-in catalog.
	dir := t.TempDir()
	cat, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, len(cat.Timeframes), 11)

	// Ensure a catalog file can be loaded.
	path := filepath.Join(dir, "catalog.yaml")
	err = os.WriteFile(path, []byte("instruments:\n  - id: solana\n    name: Solana\n    symbol: SOL\n"), 0o600)
	assert.NoError(t, err)

	cat, err = Load(path)
	assert.NoError(t, err)
	assert.Equal(t, len(cat.Instruments), 1)
	assert.Equal(t, cat.Instruments[0].ID, "solana")
}
