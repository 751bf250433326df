package models

import "time"

// Project is a Node.js project persisted in projects.json. ID is derived once
// at import time and never recomputed; it is also the PM2 process name.
type Project struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Path           string            `json:"path"`
	Description    string            `json:"description,omitempty"`
	Template       string            `json:"template,omitempty"`
	PackageManager string            `json:"packageManager,omitempty"`
	StartScript    string            `json:"startScript,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ProjectView is a project together with its reconciled PM2 state.
type ProjectView struct {
	Project
	Status  string   `json:"status"`
	Process *Process `json:"process,omitempty"`
}

// Settings are user preferences persisted in settings.json.
type Settings struct {
	DefaultPackageManager string `json:"defaultPackageManager"`
	ProjectsDir           string `json:"projectsDir,omitempty"`
	Editor                string `json:"editor,omitempty"`
	Language              string `json:"language"`
	LogLines              int    `json:"logLines"`
	AutoInstall           bool   `json:"autoInstall"`
}
