package repo

import (
	"context"
	"strings"
	"time"

	"chatlens/internal/platform/store"
	"chatlens/internal/services/analyses/domain"
)

// MomentsTable is the clickhouse table holding critical moments
const MomentsTable = "critical_moments"

// Moments is the analytics side of stored analyses
type Moments interface {
	Write(ctx context.Context, xs []domain.Moment) error
	List(ctx context.Context, f domain.MomentFilter) ([]domain.Moment, error)
}

// CH implements Moments on clickhouse
type CH struct {
	ch store.Clickhouse
}

// NewCH wraps a clickhouse seam
func NewCH(ch store.Clickhouse) *CH { return &CH{ch: ch} }

// Write appends moments in one batch. Columns follow the table order
func (c *CH) Write(ctx context.Context, xs []domain.Moment) error {
	if len(xs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(xs))
	for _, m := range xs {
		rows = append(rows, []any{
			m.AnalysisID,
			m.ChatID,
			m.SegmentID,
			int32(m.SegmentIndex),
			m.Type,
			m.Severity,
			m.Reason,
			m.Timestamp.UTC(),
			m.Magnitude,
			m.Primary,
			m.Directionality,
			m.Dominant,
		})
	}
	return c.ch.Insert(ctx, MomentsTable, rows)
}

// List returns the newest moments matching f
func (c *CH) List(ctx context.Context, f domain.MomentFilter) ([]domain.Moment, error) {
	var sb strings.Builder
	var args []any
	sb.WriteString(`SELECT analysis_id, chat_id, segment_id, segment_index, type, severity,
		reason, ts, magnitude, primary_shift, directionality, dominant
	FROM ` + MomentsTable + `
	WHERE 1 = 1`)
	if f.ChatID != "" {
		sb.WriteString(" AND chat_id = ?")
		args = append(args, f.ChatID)
	}
	if f.Type != "" {
		sb.WriteString(" AND type = ?")
		args = append(args, f.Type)
	}
	if f.Severity != "" {
		sb.WriteString(" AND severity = ?")
		args = append(args, f.Severity)
	}
	sb.WriteString(" ORDER BY ts DESC, segment_index DESC LIMIT ?")
	args = append(args, f.Limit)

	rows, err := c.ch.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Moment
	for rows.Next() {
		var (
			m   domain.Moment
			idx int32
			ts  time.Time
		)
		if err := rows.Scan(
			&m.AnalysisID, &m.ChatID, &m.SegmentID, &idx, &m.Type, &m.Severity,
			&m.Reason, &ts, &m.Magnitude, &m.Primary, &m.Directionality, &m.Dominant,
		); err != nil {
			return nil, err
		}
		m.SegmentIndex = int(idx)
		m.Timestamp = ts.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
