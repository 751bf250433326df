package pm2

import (
	"bytes"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// parseProcessList decodes `pm2 jlist` output. PM2 may print update notices
// or daemon spawn messages such as "[PM2] Spawning PM2 daemon" before the
// JSON array, so the array is the first line starting with '[' from which
// the rest of the output is valid JSON.
func parseProcessList(out []byte, now time.Time) ([]Process, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return []Process{}, nil
	}
	data, found := findArray(out)
	if !found {
		if bytes.IndexByte(out, '[') < 0 {
			return nil, fmt.Errorf("%w: unexpected jlist output", ErrCommandFailed)
		}
		return nil, fmt.Errorf("%w: malformed jlist output", ErrCommandFailed)
	}

	procs := []Process{}
	gjson.ParseBytes(data).ForEach(func(_, item gjson.Result) bool {
		procs = append(procs, parseProcess(item, now))
		return true
	})
	return procs, nil
}

func findArray(out []byte) ([]byte, bool) {
	for line := 0; line < len(out); {
		rest := out[line:]
		if trimmed := bytes.TrimLeft(rest, " \t\r"); len(trimmed) > 0 && trimmed[0] == '[' && gjson.ValidBytes(trimmed) {
			return trimmed, true
		}
		next := bytes.IndexByte(rest, '\n')
		if next < 0 {
			break
		}
		line += next + 1
	}
	return nil, false
}

func parseProcess(item gjson.Result, now time.Time) Process {
	env := item.Get("pm2_env")

	cwd := env.Get("pm_cwd").String()
	if cwd == "" {
		cwd = env.Get("cwd").String()
	}

	p := Process{
		Name:     item.Get("name").String(),
		PmID:     int(item.Get("pm_id").Int()),
		PID:      int(item.Get("pid").Int()),
		Status:   Status(env.Get("status").String()),
		Cwd:      cwd,
		CPU:      item.Get("monit.cpu").Float(),
		Memory:   item.Get("monit.memory").Int(),
		Restarts: int(env.Get("restart_time").Int()),
	}

	if p.Status == StatusOnline {
		if started := env.Get("pm_uptime").Int(); started > 0 {
			if up := now.Sub(time.UnixMilli(started)); up > 0 {
				p.Uptime = up
			}
		}
	}
	return p
}
