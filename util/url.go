package util

import (
	"net/url"
	"strconv"
	"time"
)

// GetQueryParam returns the first value of key in the query of u, or defaultValue.
func GetQueryParam(u *url.URL, key string, defaultValue string) string {
	if u == nil {
		return defaultValue
	}

	if value := u.Query().Get(key); value != "" {
		return value
	}

	return defaultValue
}

func GetQueryParamInt(u *url.URL, key string, defaultValue int) int {
	value, err := strconv.Atoi(GetQueryParam(u, key, ""))
	if err != nil {
		return defaultValue
	}

	return value
}

func GetQueryParamDuration(u *url.URL, key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(GetQueryParam(u, key, ""))
	if err != nil {
		return defaultValue
	}

	return value
}
