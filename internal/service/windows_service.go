//go:build windows
// +build windows

package service

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/debug"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	ServiceName        = "EvidenceStamp"
	ServiceDisplayName = "Evidence Stamp Service"
	ServiceDescription = "Stamps evidence numbers onto PDF filings and builds the evidence index"
)

// exitAppFailed is the service-specific exit code reported when the HTTP
// service stops on its own; the SCM treats it as a failure and restarts.
const exitAppFailed = 1

// restartDelays are the SCM recovery actions, reset after a day without failures.
var restartDelays = []time.Duration{5 * time.Second, 10 * time.Second, 30 * time.Second}

const recoveryResetPeriod = 24 * 60 * 60

var elog debug.Log

// stampService implements svc.Handler
type stampService struct {
	app *Application
}

func (s *stampService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown
	changes <- svc.Status{State: svc.StartPending}

	exited := make(chan error, 1)
	go func() {
		exited <- s.app.Run()
	}()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}
	elog.Info(1, fmt.Sprintf("%s listening", ServiceName))

	for {
		select {
		case err := <-exited:
			// fx failed to start, or the app stopped without a control request
			if err == nil {
				err = errors.New("stopped unexpectedly")
			}
			elog.Error(1, fmt.Sprintf("%s exited: %v", ServiceName, err))
			changes <- svc.Status{State: svc.StopPending}
			return true, exitAppFailed

		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				elog.Info(1, fmt.Sprintf("%s stopping, running batches are cancelled between jobs", ServiceName))
				changes <- svc.Status{State: svc.StopPending}
				s.app.Shutdown()
				s.app.Wait()
				return false, 0
			default:
				elog.Warning(1, fmt.Sprintf("ignoring control request %d", c.Cmd))
			}
		}
	}
}

// RunService runs app under the service manager, or under the console
// debugger when isDebug is set.
func RunService(isDebug bool, app *Application) {
	run := svc.Run
	if isDebug {
		elog = debug.New(ServiceName)
		run = debug.Run
	} else {
		l, err := eventlog.Open(ServiceName)
		if err != nil {
			return
		}
		elog = l
	}
	defer elog.Close()

	if err := run(ServiceName, &stampService{app: app}); err != nil {
		elog.Error(1, fmt.Sprintf("%s service failed: %v", ServiceName, err))
		return
	}
	elog.Info(1, fmt.Sprintf("%s service stopped", ServiceName))
}

// InstallService registers exePath as an auto-start service with restart
// on failure and an event log source.
func InstallService(exePath string) error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	if s, err := m.OpenService(ServiceName); err == nil {
		s.Close()
		return fmt.Errorf("service %s already exists", ServiceName)
	}

	s, err := m.CreateService(ServiceName, exePath, mgr.Config{
		DisplayName: ServiceDisplayName,
		Description: ServiceDescription,
		StartType:   mgr.StartAutomatic,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := eventlog.InstallAsEventCreate(ServiceName, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		fmt.Printf("Warning: could not install event log source: %v\n", err)
	}

	actions := make([]mgr.RecoveryAction, 0, len(restartDelays))
	for _, d := range restartDelays {
		actions = append(actions, mgr.RecoveryAction{Type: mgr.ServiceRestart, Delay: d})
	}
	if err := s.SetRecoveryActions(actions, recoveryResetPeriod); err != nil {
		fmt.Printf("Warning: failed to set recovery actions: %v\n", err)
	}
	return nil
}

// UninstallService removes the service and its event log source.
func UninstallService() error {
	return withService(func(s *mgr.Service) error {
		_ = eventlog.Remove(ServiceName)
		return s.Delete()
	})
}

func StartService() error {
	return withService(func(s *mgr.Service) error {
		return s.Start()
	})
}

func StopService() error {
	return withService(func(s *mgr.Service) error {
		_, err := s.Control(svc.Stop)
		return err
	})
}

// ServiceStatus reports the installed service's current state.
func ServiceStatus() (string, error) {
	var state string
	err := withService(func(s *mgr.Service) error {
		st, err := s.Query()
		if err != nil {
			return err
		}
		state = stateName(st.State)
		return nil
	})
	return state, err
}

func IsWindowsService() (bool, error) {
	return svc.IsWindowsService()
}

func withService(fn func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.OpenService(ServiceName)
	if err != nil {
		return fmt.Errorf("service %s not installed: %w", ServiceName, err)
	}
	defer s.Close()

	return fn(s)
}

func stateName(st svc.State) string {
	switch st {
	case svc.Stopped:
		return "stopped"
	case svc.StartPending:
		return "starting"
	case svc.StopPending:
		return "stopping"
	case svc.Running:
		return "running"
	case svc.ContinuePending, svc.PausePending, svc.Paused:
		return "paused"
	}
	return fmt.Sprintf("unknown (%d)", st)
}
