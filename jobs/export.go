/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"chainguard.dev/clusterdeploy/workspace"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSuffix     = "_deployed"
	DefaultTargetPath = "/bi_prd"
	DefaultOffset     = "+00:30:00"
	DefaultNameRegex  = `(pre[-_\s]*)`

	// fetchLimit bounds concurrent job reads against the source workspace.
	fetchLimit = 4
)

// ExportOptions controls how exported jobs are rewritten.
type ExportOptions struct {
	// Suffix is appended to every job name.
	Suffix string
	// TargetPath replaces the notebook tree of every notebook task.
	TargetPath string
	// Offset shifts the schedule, formatted as [+-]HH:MM:SS.
	Offset string
	// NameRegex is removed from every job name.
	NameRegex string
}

// DefaultExportOptions returns the options used by the promotion pipeline.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Suffix:     DefaultSuffix,
		TargetPath: DefaultTargetPath,
		Offset:     DefaultOffset,
		NameRegex:  DefaultNameRegex,
	}
}

// ParseJobIDs accepts a bracketed list such as "['1','2']" or "[1, 2]", or a
// plain comma separated list.
func ParseJobIDs(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.Trim(strings.TrimSpace(p), `'"`); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	var raw []any
	if err := yaml.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("parsing job ids %q: %w", s, err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}

// ParseOffset parses a [+-]HH:MM:SS duration. A missing sign means +.
func ParseOffset(s string) (time.Duration, error) {
	sign := time.Duration(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign, s = -1, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("offset %q: want [+-]HH:MM:SS", s)
	}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	limits := []int{24, 60, 60}
	var d time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n >= limits[i] {
			return 0, fmt.Errorf("offset %q: invalid field %q", s, p)
		}
		d += time.Duration(n) * units[i]
	}
	return sign * d, nil
}

// ShiftCron moves the minute and hour fields of a quartz cron expression by
// offset, wrapping within the day. Both fields must be plain numbers.
func ShiftCron(expr string, offset time.Duration) (string, error) {
	fields := strings.Split(expr, " ")
	if len(fields) < 3 {
		return "", fmt.Errorf("cron %q: too few fields", expr)
	}
	minute, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", fmt.Errorf("cron %q: minute %q is not a number", expr, fields[1])
	}
	hour, err := strconv.Atoi(fields[2])
	if err != nil {
		return "", fmt.Errorf("cron %q: hour %q is not a number", expr, fields[2])
	}
	const day = 24 * time.Hour
	at := (time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + offset) % day
	if at < 0 {
		at += day
	}
	fields[2] = strconv.Itoa(int(at / time.Hour))
	fields[1] = strconv.Itoa(int(at % time.Hour / time.Minute))
	return strings.Join(fields, " "), nil
}

// NotebookPath keeps the last two segments of p below target.
func NotebookPath(target, p string) string {
	segs := strings.Split(p, "/")
	if len(segs) > 2 {
		segs = segs[len(segs)-2:]
	}
	return target + "/" + strings.Join(segs, "/")
}

// Export fetches the listed jobs and rewrites them for promotion. Ids that
// do not exist in the workspace are logged and skipped. The result keeps
// the order of ids.
func Export(ctx context.Context, api workspace.Jobs, ids []string, opts ExportOptions) ([]workspace.JobSettings, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	offset, err := ParseOffset(opts.Offset)
	if err != nil {
		return nil, err
	}
	nameRE, err := regexp.Compile(opts.NameRegex)
	if err != nil {
		return nil, fmt.Errorf("compiling name regex: %w", err)
	}

	existing, err := api.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, j := range existing {
		known[strconv.FormatInt(j.JobID, 10)] = true
	}

	var selected []int64
	for _, id := range ids {
		if !known[id] {
			clog.WarnContextf(ctx, "Job %s does not exist in the workspace, skipping", id)
			continue
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("job id %q: %w", id, err)
		}
		selected = append(selected, n)
	}

	out := make([]workspace.JobSettings, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, id := range selected {
		g.Go(func() error {
			job, err := api.GetJob(gctx, id)
			if err != nil {
				return fmt.Errorf("fetching job %d: %w", id, err)
			}
			settings, err := clone(job.Settings)
			if err != nil {
				return fmt.Errorf("copying settings of job %d: %w", id, err)
			}
			if err := rewrite(settings, offset, nameRE, opts); err != nil {
				return fmt.Errorf("rewriting job %d: %w", id, err)
			}
			clog.InfoContextf(gctx, "Exported job %d as %q", id, settings["name"])
			out[i] = settings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func rewrite(s workspace.JobSettings, offset time.Duration, nameRE *regexp.Regexp, opts ExportOptions) error {
	if schedule, ok := s["schedule"].(map[string]any); ok {
		if expr, ok := schedule["quartz_cron_expression"].(string); ok {
			shifted, err := ShiftCron(expr, offset)
			if err != nil {
				return err
			}
			schedule["quartz_cron_expression"] = shifted
		}
	}
	for _, task := range tasks(s) {
		nt, ok := task["notebook_task"].(map[string]any)
		if !ok {
			continue
		}
		if p, ok := nt["notebook_path"].(string); ok {
			nt["notebook_path"] = NotebookPath(opts.TargetPath, p)
		}
	}
	name, _ := s["name"].(string)
	s["name"] = nameRE.ReplaceAllString(name, "") + opts.Suffix
	return nil
}

func tasks(s workspace.JobSettings) []map[string]any {
	raw, _ := s["tasks"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, t := range raw {
		if m, ok := t.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// clone deep-copies a settings document, keeping numbers exact.
func clone(s workspace.JobSettings) (workspace.JobSettings, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out workspace.JobSettings
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportPath is where the export for env is stored below dir.
func ExportPath(dir, env string) string {
	return filepath.Join(dir, env+"_jobs.json")
}

// WriteExport stores settings as an indented JSON list and returns the path.
func WriteExport(dir, env string, settings []workspace.JobSettings) (string, error) {
	if settings == nil {
		settings = []workspace.JobSettings{}
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding jobs: %w", err)
	}
	p := ExportPath(dir, env)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", p, err)
	}
	return p, nil
}
