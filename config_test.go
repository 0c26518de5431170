package main

import (
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid config",
			cfg: Config{
				Width:    800,
				Height:   400,
				UpColor:  "#16a34a",
				LogLevel: "info",
			},
			wantErr: nil,
		},
		{
			name: "zero chart size",
			cfg: Config{
				Width:    0,
				Height:   400,
				LogLevel: "info",
			},
			wantErr: []string{"chart size must be positive"},
		},
		{
			name: "invalid colors and log level",
			cfg: Config{
				Width:     800,
				Height:    400,
				UpColor:   "green",
				DownColor: "#12345",
				LogLevel:  "loud",
			},
			wantErr: []string{
				"invalid up color 'green'",
				"invalid down color '#12345'",
				"invalid log level 'loud'",
			},
		},
		{
			name: "database user without endpoint",
			cfg: Config{
				Width:    800,
				Height:   400,
				LogLevel: "debug",
				DBUser:   "admin",
			},
			wantErr: []string{"database user provided without a database endpoint"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}

			assert.Error(t, err)
			for _, want := range tt.wantErr {
				assert.True(t, strings.Contains(err.Error(), want))
			}
		})
	}
}

func TestIsHexColor(t *testing.T) {
	assert.True(t, isHexColor("16a34a"))
	assert.True(t, isHexColor("#FFF"))
	assert.False(t, isHexColor("#ggg"))
	assert.False(t, isHexColor("1234"))
	assert.False(t, isHexColor(""))
}

func TestLoadConfig(t *testing.T) {
	// Save and restore original os.Args and environment
	origArgs := os.Args
	defer func() {
		os.Args = origArgs
	}()

	tests := []struct {
		name        string
		env         map[string]string
		args        []string
		expectErr   bool
		expectInErr []string
		expectCfg   Config
	}{
		{
			name:      "defaults",
			env:       map[string]string{},
			args:      []string{"cmd"},
			expectErr: false,
			expectCfg: Config{
				Address:      ":8080",
				CoinGeckoURL: "https://api.coingecko.com/api/v3",
				Width:        800,
				Height:       400,
				LogLevel:     "info",
			},
		},
		{
			name: "all from env",
			env: map[string]string{
				"address":     ":9090",
				"instruments": "bitcoin,ethereum",
				"width":       "1200",
				"height":      "600",
				"loglevel":    "debug",
			},
			args:      []string{"cmd"},
			expectErr: false,
			expectCfg: Config{
				Address:      ":9090",
				Instruments:  []string{"bitcoin", "ethereum"},
				CoinGeckoURL: "https://api.coingecko.com/api/v3",
				Width:        1200,
				Height:       600,
				LogLevel:     "debug",
			},
		},
		{
			name:      "all from flags",
			env:       map[string]string{},
			args:      []string{"cmd", "-instruments=solana", "-datadir=testdata", "-upcolor=00ff00", "-width=640"},
			expectErr: false,
			expectCfg: Config{
				Address:      ":8080",
				Instruments:  []string{"solana"},
				CoinGeckoURL: "https://api.coingecko.com/api/v3",
				DataDir:      "testdata",
				UpColor:      "00ff00",
				Width:        640,
				Height:       400,
				LogLevel:     "info",
			},
		},
		{
			name:        "invalid color from flag",
			env:         map[string]string{},
			args:        []string{"cmd", "-downcolor=red"},
			expectErr:   true,
			expectInErr: []string{"invalid down color 'red'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags for each test
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			os.Args = tt.args

			var cfg Config
			err := loadConfig(&cfg, "testdata/missing.env")
			if tt.expectErr {
				assert.Error(t, err)
				for _, want := range tt.expectInErr {
					assert.True(t, strings.Contains(err.Error(), want))
				}
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, cfg.Address, tt.expectCfg.Address)
			assert.Equal(t, cfg.Instruments, tt.expectCfg.Instruments)
			assert.Equal(t, cfg.CoinGeckoURL, tt.expectCfg.CoinGeckoURL)
			assert.Equal(t, cfg.DataDir, tt.expectCfg.DataDir)
			assert.Equal(t, cfg.UpColor, tt.expectCfg.UpColor)
			assert.Equal(t, cfg.Width, tt.expectCfg.Width)
			assert.Equal(t, cfg.Height, tt.expectCfg.Height)
			assert.Equal(t, cfg.LogLevel, tt.expectCfg.LogLevel)
		})
	}
}
