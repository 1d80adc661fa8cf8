package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/queue"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/pkg/metricsx"
)

const DefaultExportDir = "uploads/exports"

// Exporter renders one export type as a table. The first row is the header.
type Exporter interface {
	// NormalizeParams validates caller supplied filters and returns the form
	// stored on the task.
	NormalizeParams(params map[string]any) (map[string]any, error)
	Rows(ctx context.Context, params map[string]any) ([][]string, error)
}

// AccountExporter lists accounts with their role names.
type AccountExporter struct {
	Store store.Store
}

func (e *AccountExporter) NormalizeParams(params map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if name, ok := params["username"].(string); ok && strings.TrimSpace(name) != "" {
		out["username"] = strings.TrimSpace(name)
	}
	if ids := toInt64s(params["roleIds"]); len(ids) > 0 {
		out["roleIds"] = ids
	}
	return out, nil
}

func (e *AccountExporter) Rows(ctx context.Context, params map[string]any) ([][]string, error) {
	f := domain.UserFilter{RoleIDs: toInt64s(params["roleIds"])}
	f.Username, _ = params["username"].(string)

	users, _, err := e.Store.Users().ListUsers(ctx, f, domain.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	rows := make([][]string, 0, len(users)+1)
	rows = append(rows, []string{"ID", "username", "roles"})
	for _, u := range users {
		names := make([]string, len(u.Roles))
		for i, r := range u.Roles {
			names[i] = r.Name
		}
		rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Username, strings.Join(names, ",")})
	}
	return rows, nil
}

// toInt64s accepts the shapes a decoded JSON filter may take: []any of
// numbers or numeric strings, or an already typed []int64.
func toInt64s(v any) []int64 {
	switch t := v.(type) {
	case []int64:
		return t
	case []any:
		ids := make([]int64, 0, len(t))
		for _, item := range t {
			switch n := item.(type) {
			case float64:
				ids = append(ids, int64(n))
			case int64:
				ids = append(ids, n)
			case int:
				ids = append(ids, int64(n))
			case string:
				if id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
					ids = append(ids, id)
				}
			}
		}
		return ids
	}
	return nil
}

// ExportService queues export tasks and runs them on a small worker pool.
type ExportService struct {
	Store     store.Store
	Queue     queue.Queue
	Exporters map[string]Exporter
	Dir       string
	Workers   int
	Logger    *slog.Logger
	Metrics   *metricsx.Metrics

	// Now defaults to time.Now.
	Now func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *ExportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ExportService) dir() string {
	if s.Dir != "" {
		return s.Dir
	}
	return DefaultExportDir
}

func (s *ExportService) exporter(kind string) (Exporter, error) {
	e, ok := s.Exporters[kind]
	if !ok {
		return nil, invalidf("unsupported export type %q", kind)
	}
	return e, nil
}

// CreateTask records a pending task for the caller and enqueues it.
func (s *ExportService) CreateTask(ctx context.Context, userID int64, kind string, format domain.ExportFormat, params map[string]any) (domain.ExportTask, error) {
	e, err := s.exporter(kind)
	if err != nil {
		return domain.ExportTask{}, err
	}
	if !format.Valid() {
		return domain.ExportTask{}, invalidf("format must be csv or xlsx")
	}
	normalized, err := e.NormalizeParams(params)
	if err != nil {
		return domain.ExportTask{}, err
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return domain.ExportTask{}, fmt.Errorf("failed to encode export params: %w", err)
	}

	id, err := s.Store.ExportTasks().CreateExportTask(ctx, domain.ExportTask{
		Type:      kind,
		Format:    format,
		Status:    domain.ExportPending,
		Params:    string(raw),
		CreatedBy: userID,
	})
	if err != nil {
		return domain.ExportTask{}, mapStoreErr(err, "export task")
	}
	s.Metrics.ObserveExportTask(string(domain.ExportPending))

	if err := s.Queue.Enqueue(ctx, id); err != nil {
		// The task stays pending and is picked up again on the next start.
		s.Logger.Error("failed to enqueue export task", "task_id", id, "err", err)
	}

	return s.getTask(ctx, id)
}

func (s *ExportService) getTask(ctx context.Context, id int64) (domain.ExportTask, error) {
	t, err := s.Store.ExportTasks().GetExportTaskByID(ctx, id)
	if err != nil {
		return domain.ExportTask{}, mapStoreErr(err, "export task")
	}
	return t, nil
}

// ListTasks lists the caller's own tasks, or every task for super admins.
func (s *ExportService) ListTasks(ctx context.Context, caller domain.User, status domain.ExportStatus, p domain.Page) (domain.PageResult[domain.ExportTask], error) {
	p = p.Normalize()
	f := domain.ExportTaskFilter{Status: status}
	if !caller.IsSuperAdmin() {
		f.CreatedBy = &caller.ID
	}
	list, total, err := s.Store.ExportTasks().ListExportTasks(ctx, f, p)
	if err != nil {
		return domain.PageResult[domain.ExportTask]{}, mapStoreErr(err, "export tasks")
	}
	return domain.NewPageResult(list, total, p), nil
}

// Download returns a finished task's file. Other users' tasks are reported as
// missing unless the caller is a super admin.
func (s *ExportService) Download(ctx context.Context, caller domain.User, id int64) (domain.ExportTask, *os.File, error) {
	t, err := s.getTask(ctx, id)
	if err != nil {
		return domain.ExportTask{}, nil, err
	}
	if t.CreatedBy != caller.ID && !caller.IsSuperAdmin() {
		return domain.ExportTask{}, nil, fmt.Errorf("%w: export task", ErrNotFound)
	}
	if t.Status != domain.ExportSuccess || t.FilePath == "" {
		return domain.ExportTask{}, nil, invalidf("export task is not finished")
	}

	f, err := os.Open(t.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ExportTask{}, nil, fmt.Errorf("%w: export file", ErrNotFound)
	}
	if err != nil {
		return domain.ExportTask{}, nil, fmt.Errorf("failed to open export file: %w", err)
	}
	return t, f, nil
}

// RunExport executes one task. Tasks that are no longer pending are skipped,
// which makes duplicate queue deliveries harmless.
func (s *ExportService) RunExport(ctx context.Context, id int64) error {
	won, err := s.Store.ExportTasks().MarkExportTaskRunning(ctx, id, s.now())
	if err != nil {
		return fmt.Errorf("failed to lock export task: %w", err)
	}
	if !won {
		s.Logger.Debug("export task already claimed", "task_id", id)
		return nil
	}
	s.Metrics.ObserveExportTask(string(domain.ExportRunning))

	t, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}

	name, path, runErr := s.write(ctx, t)
	finished := s.now()
	t.FinishedAt = &finished
	if runErr != nil {
		t.Status = domain.ExportFailed
		t.Error = runErr.Error()
	} else {
		t.Status = domain.ExportSuccess
		t.FileName = name
		t.FilePath = path
		t.Error = ""
	}

	if err := s.Store.ExportTasks().FinishExportTask(ctx, t); err != nil {
		return fmt.Errorf("failed to finish export task: %w", err)
	}
	s.Metrics.ObserveExportTask(string(t.Status))

	if runErr != nil {
		s.Logger.Error("export task failed", "task_id", id, "err", runErr)
		return runErr
	}
	s.Logger.Info("export task finished", "task_id", id, "file", name)
	return nil
}

func (s *ExportService) write(ctx context.Context, t domain.ExportTask) (string, string, error) {
	e, err := s.exporter(t.Type)
	if err != nil {
		return "", "", err
	}

	var params map[string]any
	if t.Params != "" {
		if err := json.Unmarshal([]byte(t.Params), &params); err != nil {
			return "", "", fmt.Errorf("failed to decode export params: %w", err)
		}
	}

	rows, err := e.Rows(ctx, params)
	if err != nil {
		return "", "", err
	}
	data, err := encodeSheet(rows, t.Format)
	if err != nil {
		return "", "", err
	}

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create export dir: %w", err)
	}
	name := fmt.Sprintf("%s-export-%d.%s", t.Type, t.ID, t.Format)
	path := filepath.Join(s.dir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write export file: %w", err)
	}
	return name, path, nil
}

// Start re-enqueues tasks left pending by a previous run and launches the
// worker pool. Call Stop to drain it.
func (s *ExportService) Start(ctx context.Context) error {
	ids, err := s.Store.ExportTasks().ListPendingExportTaskIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending export tasks: %w", err)
	}
	for _, id := range ids {
		if err := s.Queue.Enqueue(ctx, id); err != nil {
			return fmt.Errorf("failed to re-enqueue export task %d: %w", id, err)
		}
	}

	workers := max(s.Workers, 1)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	for i := range workers {
		s.wg.Add(1)
		go s.work(runCtx, i)
	}

	s.Logger.Info("export workers started", "workers", workers, "requeued", len(ids))
	return nil
}

// Stop cancels the workers and waits for in-flight exports to return.
func (s *ExportService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.Logger.Info("export workers stopped")
}

func (s *ExportService) work(ctx context.Context, worker int) {
	defer s.wg.Done()
	log := s.Logger.With("worker", worker)

	for {
		id, err := s.Queue.Dequeue(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, queue.ErrClosed):
			return
		case err != nil:
			log.Error("failed to dequeue export task", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := s.RunExport(ctx, id); err != nil {
			log.Warn("export task returned an error", "task_id", id, "err", err)
		}
	}
}

// Prune deletes tasks finished before now-retention together with their files.
func (s *ExportService) Prune(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	tasks, err := s.Store.ExportTasks().ListExportTasksFinishedBefore(ctx, now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to list expired export tasks: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		if t.FilePath != "" {
			if err := os.Remove(t.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.Logger.Warn("failed to remove export file", "task_id", t.ID, "err", err)
				continue
			}
		}
		ids = append(ids, t.ID)
	}
	if err := s.Store.ExportTasks().DeleteExportTasks(ctx, ids...); err != nil {
		return 0, fmt.Errorf("failed to delete expired export tasks: %w", err)
	}
	return len(ids), nil
}
