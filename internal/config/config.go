// Package config implements the ConfigStore external collaborator (§6)
// with one concrete, environment-backed implementation (§1: ConfigStore is
// read-only and provides per-world day/night lengths, keep-alive
// intervals, max packet sizes, and VarInt string bounds).
//
// Grounded on orbas1-Synnergy/synnergy-network/walletserver/config/config.go's
// godotenv.Load + os.Getenv shape; this generalizes that single flat
// ServerConfig struct into one covering the core's full bootstrap surface
// (bind address, fingerprint, keep-alive, and the list of worlds to load).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/chunkrealm/coreserver/internal/proto"
)

// WorldConfig is one entry in the configured world list (§6: "the list of
// worlds to load"), each with its own day/night length pair.
type WorldConfig struct {
	Name             string
	DayLengthTicks   uint64
	NightLengthTicks uint64
	Dilation         float32
}

// EnvConfigStore is the one concrete ConfigStore implementation this repo
// ships, backed by environment variables optionally loaded from a .env
// file via godotenv (§6).
type EnvConfigStore struct {
	BindAddress         string
	ProtocolFingerprint [proto.FingerprintSize]byte
	KeepAliveInterval   time.Duration
	KeepAliveTimeout    time.Duration
	HandshakeTimeout    time.Duration
	MaxPacketSize       int
	MaxStringLen        int
	AdminListenAddress  string
	AssetDir            string
	Worlds              []WorldConfig
}

// Load reads envPath (if it exists; a missing .env file is skipped without
// error, while an existing file that godotenv.Load cannot parse is returned
// as an error) and builds an EnvConfigStore from the environment.
func Load(envPath string) (*EnvConfigStore, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, errors.Wrap(err, "loading env file")
			}
		}
	}

	cs := &EnvConfigStore{
		BindAddress:        getenv("CORESERVER_BIND_ADDRESS", ":25565"),
		AdminListenAddress: getenv("CORESERVER_ADMIN_ADDRESS", ":9090"),
		AssetDir:           getenv("CORESERVER_ASSET_DIR", "./assets"),
	}

	fp := getenv("CORESERVER_PROTOCOL_FINGERPRINT", "")
	copy(cs.ProtocolFingerprint[:], fp)

	var err error
	if cs.KeepAliveInterval, err = getenvDuration("CORESERVER_KEEPALIVE_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cs.KeepAliveTimeout, err = getenvDuration("CORESERVER_KEEPALIVE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cs.HandshakeTimeout, err = getenvDuration("CORESERVER_HANDSHAKE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cs.MaxPacketSize, err = getenvInt("CORESERVER_MAX_PACKET_SIZE", proto.MaxFrameSize); err != nil {
		return nil, err
	}
	if cs.MaxStringLen, err = getenvInt("CORESERVER_MAX_STRING_LEN", proto.MaxIdentityToken); err != nil {
		return nil, err
	}

	cs.Worlds, err = parseWorlds(getenv("CORESERVER_WORLDS", "overworld:24000:12000:1.0"))
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// parseWorlds parses "name:day:night:dilation,name:day:night:dilation,..."
// (§6: "comma-separated world names, each with its own day/night length
// pair").
func parseWorlds(spec string) ([]WorldConfig, error) {
	var out []WorldConfig
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, errors.Errorf("malformed world config entry %q", entry)
		}
		day, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "world %q day length", parts[0])
		}
		night, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "world %q night length", parts[0])
		}
		dilation, err := strconv.ParseFloat(parts[3], 32)
		if err != nil {
			return nil, errors.Wrapf(err, "world %q dilation", parts[0])
		}
		out = append(out, WorldConfig{
			Name:             parts[0],
			DayLengthTicks:   day,
			NightLengthTicks: night,
			Dilation:         float32(dilation),
		})
	}
	return out, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	return d, nil
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	return n, nil
}
