// Package svc integrates the daemon with the host service manager (systemd,
// launchd, Windows SCM) so "keepr service install" gives the scheduler a
// lifetime beyond the login shell.
package svc

import (
	"fmt"
	"os"
	"slices"

	"github.com/kardianos/service"
)

// Actions accepted by Control.
var Actions = []string{"install", "uninstall", "start", "stop", "restart", "status"}

// program satisfies service.Interface. The service manager runs the same
// binary with "start", so install/uninstall invocations never execute the
// daemon loop themselves.
type program struct{}

func (p *program) Start(_ service.Service) error { return nil }
func (p *program) Stop(_ service.Service) error  { return nil }

func definition(configPath string) *service.Config {
	args := []string{"start"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return &service.Config{
		Name:        "keepr",
		DisplayName: "keepr profile keep-alive",
		Description: "Keeps a job portal profile active on a schedule.",
		Arguments:   args,
		Option: service.KeyValue{
			// Let the manager restart the daemon after crashes.
			"Restart": "on-failure",
		},
	}
}

// Control performs one service-manager action. configPath is embedded in the
// installed unit so the service starts with the right configuration.
func Control(action, configPath string) error {
	if !slices.Contains(Actions, action) {
		return fmt.Errorf("svc: unknown action %q (one of %v)", action, Actions)
	}

	s, err := service.New(&program{}, definition(configPath))
	if err != nil {
		return fmt.Errorf("svc: %w", err)
	}

	if action == "status" {
		status, err := s.Status()
		if err != nil {
			return fmt.Errorf("svc: status: %w", err)
		}
		fmt.Fprintln(os.Stdout, statusString(status))
		return nil
	}

	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("svc: %s: %w", action, err)
	}
	return nil
}

func statusString(s service.Status) string {
	switch s {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
