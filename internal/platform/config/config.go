// Package config reads settings from environment variables. Every chatlens
// binary takes its knobs from CHATLENS_* and SERVICE_* keys
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"chatlens/internal/platform/logger"
)

// Conf is a namespaced view over the environment, e.g. Prefix("CHATLENS_ENGINE_")
type Conf struct{ prefix string }

// New returns the root Conf
func New() Conf { return Conf{} }

// Prefix returns a child Conf whose keys start with p
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) raw(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// MustString panics when key is unset or blank
func (c Conf) MustString(key string) string {
	v := c.raw(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MayString returns the value or def when unset
func (c Conf) MayString(key, def string) string {
	if v := c.raw(key); v != "" {
		return v
	}
	return def
}

// may parses key with parse. Unset keys give def; bad values are logged and
// give def too, so a typo never stops a worker from booting
func may[T any](c Conf, key string, def T, kind string, parse func(string) (T, error)) T {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).Msgf("invalid %s; using default", kind)
		return def
	}
	return v
}

// MayInt returns the int value or def
func (c Conf) MayInt(key string, def int) int {
	return may(c, key, def, "int", strconv.Atoi)
}

// MayBool returns the bool value or def
func (c Conf) MayBool(key string, def bool) bool {
	return may(c, key, def, "bool", strconv.ParseBool)
}

// MayDuration returns the duration value (250ms, 2s, 1h) or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, "duration", time.ParseDuration)
}

// MayEnum returns the allowed value matching key case insensitively, or def
// when unset. Anything else panics: an unknown backend name is a deploy error
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.raw(key)
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
