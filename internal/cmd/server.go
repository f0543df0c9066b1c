// Package cmd holds the daemon's kong command structs: the subcommands
// parsed by cmd/lumend's main.go, mirroring the teacher's own
// internal/cmd layering of CLI surface over the library packages.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lumenhub/lumend/devicemgr"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/configpaths"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/internal/server/api"
	"github.com/lumenhub/lumend/internal/server/api/auth"
	"github.com/lumenhub/lumend/internal/singleton"
)

const keyFileName = "lumend.key.txt"
const lockFileName = "lumend.lock"

// Server is the daemon's main run mode: device discovery plus the
// control API, running until interrupted.
type Server struct {
	API   api.ServerConfig `embed:"" prefix:"api."`
	Trace bool             `help:"Log a hex dump of every HID transaction" default:"false" env:"LUMEND_TRACE"`
}

// Run is invoked by kong when the server command is selected.
func (s *Server) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger)
}

// StartServer wires the hardware database, device manager, and control
// API together and blocks until ctx is cancelled.
func (s *Server) StartServer(ctx context.Context, logger *slog.Logger) error {
	db, err := hardware.Load()
	if err != nil {
		return fmt.Errorf("load hardware database: %w", err)
	}

	lock, err := acquireSingletonLock(logger)
	if err != nil {
		return err
	}
	defer lock.Release()

	if s.API.Password == "" {
		pwd, err := loadOrCreatePassword(logger)
		if err != nil {
			return fmt.Errorf("resolve API password: %w", err)
		}
		s.API.Password = pwd
	}

	tracer := log.NewProtocolTracer(os.Stdout, s.Trace)

	mgr := devicemgr.New(db, devicemgr.Options{
		Enumerator: hid.NewEnumerator(),
		NewAdapter: func() hid.Adapter { return hid.NewAdapter() },
		Tracer:     tracer,
		VendorIDs:  db.VendorIDs(),
		Logger:     logger,
	})
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start device manager: %w", err)
	}
	defer mgr.CloseDevices()

	srv := api.New(s.API.Addr, s.API, logger)
	api.NewHandlers(mgr).Register(srv.Router())

	if err := srv.Start(); err != nil {
		return fmt.Errorf("start control API: %w", err)
	}
	defer srv.Close()

	logger.Info("lumend running", "api_addr", srv.Addr())
	<-ctx.Done()
	logger.Info("lumend shutting down")
	return nil
}

// acquireSingletonLock ensures no other lumend instance already owns the
// connected devices (spec.md §5: "only one daemon owns the devices").
func acquireSingletonLock(logger *slog.Logger) (*singleton.Lock, error) {
	dir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir for lock file: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create config dir for lock file: %w", err)
	}
	lock, err := singleton.Acquire(filepath.Join(dir, lockFileName))
	if err != nil {
		if errors.Is(err, singleton.ErrHeld) {
			return nil, fmt.Errorf("another lumend instance is already running: %w", err)
		}
		return nil, fmt.Errorf("acquire singleton lock: %w", err)
	}
	logger.Debug("acquired singleton lock", "path", filepath.Join(dir, lockFileName))
	return lock, nil
}

func loadOrCreatePassword(logger *slog.Logger) (string, error) {
	dir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return "", err
	}
	keyPath := filepath.Join(dir, keyFileName)
	if existing, err := os.ReadFile(keyPath); err == nil {
		return strings.TrimSpace(string(existing)), nil
	}

	pwd, err := auth.GenerateKey()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir for key file: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(pwd), 0o600); err != nil {
		return "", fmt.Errorf("write API key file: %w", err)
	}
	logger.Info("generated control API password", "path", keyPath)
	return pwd, nil
}
