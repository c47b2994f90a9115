package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"attrconsent/internal/consent/cipher"
	"attrconsent/internal/consent/metrics"
	"attrconsent/internal/platform/config"
)

// cipherRefresher re-reads the crypto section and swaps the active cipher.
type cipherRefresher struct {
	holder  *cipher.Holder
	load    func() (config.Crypto, error)
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Refresh installs a cipher built from freshly loaded configuration. An
// invalid configuration is logged and the current cipher stays in place.
func (r *cipherRefresher) Refresh() bool {
	cfg, err := r.load()
	if err == nil {
		var next cipher.Executor
		next, err = cipher.New(cipherConfig(cfg), r.logger)
		if err == nil {
			prev := r.holder.Swap(next)
			r.metrics.IncrementCipherRefresh("applied")
			r.logger.Info("consent cipher refreshed",
				"previous", prev.Name(),
				"current", next.Name(),
			)
			return true
		}
	}
	r.metrics.IncrementCipherRefresh("rejected")
	r.logger.Error("consent cipher refresh rejected, keeping current cipher",
		"current", r.holder.Name(),
		"error", err,
	)
	return false
}

// watchRefresh refreshes the cipher on every SIGHUP until ctx is done.
func watchRefresh(ctx context.Context, r *cipherRefresher) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			r.Refresh()
		}
	}
}

func cipherConfig(c config.Crypto) cipher.Config {
	return cipher.Config{
		Enabled:       c.Enabled,
		Algorithm:     c.Algorithm,
		EncryptionKey: c.EncryptionKey,
		SigningKey:    c.SigningKey,
	}
}
