package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"nodedeck/internal/identity"
	"nodedeck/internal/ipc"
	"nodedeck/internal/service"
)

type idParams struct {
	ID string `json:"id"`
}

type updateParams struct {
	ID string `json:"id"`
	service.ProjectPatch
}

type removeParams struct {
	ID            string `json:"id"`
	DeleteProcess bool   `json:"deleteProcess"`
}

type installParams struct {
	ID       string   `json:"id"`
	Packages []string `json:"packages"`
	Dev      bool     `json:"dev"`
}

type logsParams struct {
	ID    string `json:"id"`
	Lines int    `json:"lines"`
}

type appLogsParams struct {
	Project string `json:"project"`
	Level   string `json:"level"`
	Limit   int    `json:"limit"`
}

type stableIDParams struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// RegisterChannels binds every channel onto svc. It fails if reg already
// serves one of them.
func RegisterChannels(reg *ipc.Registry, svc *service.ProjectService) error {
	channels := map[string]ipc.HandlerFunc{
		"fs:loadProjects": ipc.Typed(func(ctx context.Context, _ struct{}) (any, error) {
			return svc.LoadProjects(ctx), nil
		}),
		"fs:addProject": ipc.Typed(func(ctx context.Context, req service.ImportRequest) (any, error) {
			return svc.AddProject(ctx, req)
		}),
		"fs:updateProject": ipc.Typed(func(ctx context.Context, p updateParams) (any, error) {
			if err := requireID(p.ID); err != nil {
				return nil, err
			}
			return svc.UpdateProject(ctx, p.ID, p.ProjectPatch)
		}),
		"fs:removeProject": ipc.Typed(func(ctx context.Context, p removeParams) (any, error) {
			if err := requireID(p.ID); err != nil {
				return nil, err
			}
			return svc.RemoveProject(ctx, p.ID, p.DeleteProcess)
		}),
		"project:create": ipc.Typed(func(ctx context.Context, req service.CreateRequest) (any, error) {
			return svc.CreateProject(ctx, req)
		}),
		"project:getPackageInfo": byID(func(_ context.Context, id string) (any, error) {
			return svc.PackageInfo(id)
		}),
		"project:installDependencies": byID(func(ctx context.Context, id string) (any, error) {
			return svc.InstallDependencies(ctx, id)
		}),
		"project:installSpecificPackages": ipc.Typed(func(ctx context.Context, p installParams) (any, error) {
			if err := requireID(p.ID); err != nil {
				return nil, err
			}
			return svc.InstallSpecificPackages(ctx, p.ID, p.Packages, p.Dev)
		}),
		"pm2:start": byID(func(ctx context.Context, id string) (any, error) {
			return svc.Start(ctx, id)
		}),
		"pm2:stop": byID(func(ctx context.Context, id string) (any, error) {
			return svc.Stop(ctx, id)
		}),
		"pm2:restart": byID(func(ctx context.Context, id string) (any, error) {
			return svc.Restart(ctx, id)
		}),
		"pm2:delete": byID(func(ctx context.Context, id string) (any, error) {
			return svc.Delete(ctx, id)
		}),
		"pm2:describe": byID(func(ctx context.Context, id string) (any, error) {
			return svc.Describe(ctx, id)
		}),
		"pm2:list": ipc.Typed(func(ctx context.Context, _ struct{}) (any, error) {
			return svc.ListProcesses(ctx)
		}),
		"pm2:logs": ipc.Typed(func(ctx context.Context, p logsParams) (any, error) {
			if err := requireID(p.ID); err != nil {
				return nil, err
			}
			return svc.Logs(ctx, p.ID, p.Lines)
		}),
		"template:list": ipc.Typed(func(context.Context, struct{}) (any, error) {
			return svc.Templates()
		}),
		"settings:get": ipc.Typed(func(context.Context, struct{}) (any, error) {
			return svc.Settings(), nil
		}),
		"settings:update": func(_ context.Context, params json.RawMessage) (any, error) {
			return svc.PatchSettings(params)
		},
		"app:logs": ipc.Typed(func(_ context.Context, p appLogsParams) (any, error) {
			return svc.AppLogs(p.Project, p.Level, p.Limit), nil
		}),
		"app:stableId": ipc.Typed(func(_ context.Context, p stableIDParams) (any, error) {
			return map[string]string{"id": identity.Generate(p.Name, p.Path)}, nil
		}),
	}

	for name, fn := range channels {
		if err := reg.Handle(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func byID(fn func(ctx context.Context, id string) (any, error)) ipc.HandlerFunc {
	return ipc.Typed(func(ctx context.Context, p idParams) (any, error) {
		if err := requireID(p.ID); err != nil {
			return nil, err
		}
		return fn(ctx, p.ID)
	})
}

func requireID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", service.ErrInvalidRequest)
	}
	return nil
}
