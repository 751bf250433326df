// Package pm2 drives the PM2 daemon through its CLI and matches the processes
// it reports against known projects.
package pm2

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks nodedeck/internal/pm2 Client

var (
	ErrNotInstalled    = errors.New("pm2 is not installed")
	ErrProcessNotFound = errors.New("pm2 process not found")
	ErrCommandFailed   = errors.New("pm2 command failed")
)

// Status is the raw process status reported by PM2.
type Status string

const (
	StatusOnline    Status = "online"
	StatusStopped   Status = "stopped"
	StatusErrored   Status = "errored"
	StatusLaunching Status = "launching"
	StatusStopping  Status = "stopping"
)

// Process is a record owned by the PM2 daemon. It is only ever read here.
type Process struct {
	Name     string        `json:"name"`
	PmID     int           `json:"pm_id"`
	PID      int           `json:"pid"`
	Status   Status        `json:"status"`
	Cwd      string        `json:"cwd"`
	CPU      float64       `json:"cpu"`
	Memory   int64         `json:"memory"`
	Uptime   time.Duration `json:"uptime"`
	Restarts int           `json:"restarts"`
}

// StartSpec describes a new PM2 process.
type StartSpec struct {
	Name   string
	Cwd    string
	Script string
	Args   []string
	Env    map[string]string
}

// Client is the subset of PM2 operations nodedeck relies on.
type Client interface {
	List(ctx context.Context) ([]Process, error)
	Describe(ctx context.Context, name string) (*Process, error)
	Start(ctx context.Context, spec StartSpec) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Logs(ctx context.Context, name string, lines int) ([]string, error)
}
