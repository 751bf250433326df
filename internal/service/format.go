package service

import (
	"fmt"
	"time"

	"nodedeck/internal/models"
	"nodedeck/internal/pm2"
)

func snapshot(p *pm2.Process, rule pm2.MatchRule) *models.Process {
	if p == nil {
		return nil
	}

	uptime := "N/A"
	memory := "N/A"
	cpu := "N/A"
	if pm2.StateOf(p.Status) == pm2.StateRunning {
		if p.Uptime > 0 {
			uptime = formatDuration(p.Uptime)
		}
		memory = formatBytes(p.Memory)
		cpu = fmt.Sprintf("%.1f%%", p.CPU)
	}

	return &models.Process{
		Name:     p.Name,
		Status:   string(p.Status),
		Pid:      p.PID,
		Cwd:      p.Cwd,
		Uptime:   uptime,
		Memory:   memory,
		CPU:      cpu,
		Restarts: p.Restarts,
		Rule:     string(rule),
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour

	hours := d / time.Hour
	d -= hours * time.Hour

	minutes := d / time.Minute
	d -= minutes * time.Minute

	seconds := d / time.Second

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
