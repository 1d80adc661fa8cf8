package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// MaskedValue replaces sensitive payload values in operation logs.
const MaskedValue = "***"

var maskedPayloadKeys = map[string]struct{}{
	"password":         {},
	"otpsecret":        {},
	"loginaccesstoken": {},
	"accesstoken":      {},
	"refreshtoken":     {},
	"token":            {},
	"authorization":    {},
	"captcha":          {},
	"code":             {},
}

// MaskPayload returns a copy of v with every sensitive key, at any depth,
// replaced by MaskedValue. Keys match case-insensitively.
func MaskPayload(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, ok := maskedPayloadKeys[strings.ToLower(k)]; ok {
				out[k] = MaskedValue
				continue
			}
			out[k] = MaskPayload(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = MaskPayload(val)
		}
		return out
	default:
		return v
	}
}

// ActionForMethod maps an HTTP method onto the permission action vocabulary.
func ActionForMethod(method string) string {
	switch strings.ToUpper(method) {
	case "GET", "HEAD":
		return "read"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

type OperationLogService struct {
	Store store.Store
}

// Record persists an audit entry. payload is masked and JSON encoded first.
// Failures are logged and swallowed so auditing never fails a request.
func (s *OperationLogService) Record(ctx context.Context, entry domain.OperationLog, payload any) {
	if payload != nil {
		raw, err := json.Marshal(MaskPayload(payload))
		if err == nil {
			entry.Payload = string(raw)
		}
	}
	if err := s.Store.OperationLogs().CreateOperationLog(ctx, entry); err != nil {
		slogx.FromContext(ctx).Warn("failed to record operation log",
			"action", entry.Action,
			"resource", entry.Resource,
			"err", err,
		)
	}
}

func (s *OperationLogService) ListOperationLogs(ctx context.Context, f domain.OperationLogFilter, p domain.Page) (domain.PageResult[domain.OperationLog], error) {
	p = p.Normalize()
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return domain.PageResult[domain.OperationLog]{}, invalidf("endTime is before startTime")
	}
	list, total, err := s.Store.OperationLogs().ListOperationLogs(ctx, f, p)
	if err != nil {
		return domain.PageResult[domain.OperationLog]{}, mapStoreErr(err, "operation logs")
	}
	return domain.NewPageResult(list, total, p), nil
}

// ListOwnOperationLogs restricts a listing to the given user.
func (s *OperationLogService) ListOwnOperationLogs(ctx context.Context, userID int64, f domain.OperationLogFilter, p domain.Page) (domain.PageResult[domain.OperationLog], error) {
	f.UserID = &userID
	f.Username = ""
	return s.ListOperationLogs(ctx, f, p)
}

// Prune deletes logs older than retention. A non-positive retention keeps everything.
func (s *OperationLogService) Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := s.Store.OperationLogs().DeleteOperationLogsBefore(ctx, now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune operation logs: %w", err)
	}
	return n, nil
}
