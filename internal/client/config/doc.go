// Package config loads runtime configuration for the storeadmin CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables prefixed with STOREADMIN_ (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the store API
//	-s string   path of the local session database ("" for none)
//	-i int      logout signal poll interval (seconds)
//	-r float    API requests per second (0 = unlimited)
//	-p int      products per page
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "2s" or
// integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.escuelajs.co/api/v1",
//	  "storage_path": "/home/me/.config/storeadmin/storeadmin.db",
//	  "logout_poll_interval": "2s",
//	  "requests_per_second": 5,
//	  "page_size": 8,
//	  "log_level": "info"
//	}
//
// # Environment
//
//	STOREADMIN_API_BASE_URL, STOREADMIN_STORAGE_PATH,
//	STOREADMIN_LOGOUT_POLL_INTERVAL ("2s"), STOREADMIN_REQUESTS_PER_SECOND,
//	STOREADMIN_PAGE_SIZE, STOREADMIN_LOG_LEVEL
package config
