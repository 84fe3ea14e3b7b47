package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/storeadmin/internal/flagx"
	"github.com/dmitrijs2005/storeadmin/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key apart from a zero value.
type JsonConfig struct {
	APIBaseURL         *string         `json:"api_base_url"`
	StoragePath        *string         `json:"storage_path"`
	LogoutPollInterval *timex.Duration `json:"logout_poll_interval"`
	RequestsPerSecond  *float64        `json:"requests_per_second"`
	PageSize           *int            `json:"page_size"`
	LogLevel           *string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c / -config. Without the flag nothing is loaded. Read or unmarshal errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != nil {
		cfg.APIBaseURL = *jc.APIBaseURL
	}
	if jc.StoragePath != nil {
		cfg.StoragePath = *jc.StoragePath
	}
	if jc.LogoutPollInterval != nil {
		cfg.LogoutPollInterval = jc.LogoutPollInterval.Duration
	}
	if jc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *jc.RequestsPerSecond
	}
	if jc.PageSize != nil {
		cfg.PageSize = *jc.PageSize
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
}
