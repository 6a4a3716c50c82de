package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the monitor's secrets in the OS keychain.
	KeyringService = "jobmonitor"
)

// Keys that may live in the keychain instead of the environment.
var Known = []string{
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
	"ADZUNA_APP_ID",
	"ADZUNA_APP_KEY",
	"GOOGLE_API_KEY",
	"GOOGLE_CSE_ID",
}

func isKnown(key string) bool {
	for _, k := range Known {
		if k == key {
			return true
		}
	}
	return false
}

// Lookup reads key from the environment first, then from the keychain for
// the keys in Known. Missing values are "".
func Lookup(key string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	if !isKnown(key) {
		return ""
	}
	v, err := keyring.Get(KeyringService, key)
	if err != nil {
		return ""
	}
	return v
}

func Set(key, value string) error {
	if !isKnown(key) {
		return errors.New("unknown secret " + key)
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("value is empty")
	}
	return keyring.Set(KeyringService, key, value)
}

func Delete(key string) error {
	if !isKnown(key) {
		return errors.New("unknown secret " + key)
	}
	return keyring.Delete(KeyringService, key)
}
