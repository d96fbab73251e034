package app

import (
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/studybuddy/pkg/cryptox"
	"github.com/aussiebroadwan/studybuddy/pkg/jwtx"
)

// InitSessionKeys loads the session signing key.
//
// Storage modes:
//   - SESSION_KEY_FILE set: the Ed25519 PEM at that path is used, and
//     generated there on first start. Sessions survive restarts.
//   - unset: a key is generated in memory. All sessions end when the
//     service restarts.
func InitSessionKeys(cfg Config, logger *slog.Logger) (*jwtx.SessionKeys, error) {
	var (
		key ed25519.PrivateKey
		err error
	)

	if cfg.SessionKeyFile == "" {
		key, err = cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		logger.Warn("using ephemeral session key; sessions end on restart")
	} else {
		key, err = loadOrCreateKey(cfg.SessionKeyFile)
		if err != nil {
			return nil, err
		}
		logger.Info("session key loaded", "path", cfg.SessionKeyFile)
	}

	return jwtx.NewSessionKeys(key, cfg.SessionIssuer, cfg.SessionTTL)
}

func loadOrCreateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := cryptox.ParseEd25519PEM(data)
		if err != nil {
			return nil, fmt.Errorf("parse session key %s: %w", path, err)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read session key %s: %w", path, err)
	}

	key, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	pemBytes, err := cryptox.MarshalEd25519PEM(key)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("write session key %s: %w", path, err)
	}
	return key, nil
}
