package projection

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

const (
	ActionScheduleCreated           Action = "schedule.created"
	ActionScheduleUpdated           Action = "schedule.updated"
	ActionScheduleDeactivated       Action = "schedule.deactivated"
	ActionScheduleReactivated       Action = "schedule.reactivated"
	ActionScheduleAssignmentCreated Action = "schedule_assignment.created"
	ActionScheduleAssignmentEnded   Action = "schedule_assignment.ended"
)

func scheduleRouter() *Router {
	return newRouter(CategorySchedule, []string{"schedule", "schedule_assignment"}, map[Action]HandlerFunc{
		ActionScheduleCreated:           scheduleCreated,
		ActionScheduleUpdated:           scheduleUpdated,
		ActionScheduleDeactivated:       scheduleDeactivated,
		ActionScheduleReactivated:       scheduleReactivated,
		ActionScheduleAssignmentCreated: scheduleAssignmentCreated,
		ActionScheduleAssignmentEnded:   scheduleAssignmentEnded,
	})
}

func scheduleCreated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	err := tx.Upsert(ctx, storage.TableSchedules, storage.Row{
		"id":              evt.StreamID,
		"organization_id": p.ID("organization_id"),
		"name":            p.Text("name"),
		"rrule":           nullableText(p, "rrule"),
		"timezone":        p.TextOr("timezone", "UTC"),
		"is_active":       true,
		"created_at":      at,
		"updated_at":      at,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}

func scheduleUpdated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	set := storage.Row{"updated_at": eventTime(evt)}
	setText(set, p, "name", "name")
	setText(set, p, "rrule", "rrule")
	setText(set, p, "timezone", "timezone")
	return updateByID(ctx, tx, evt, storage.TableSchedules, evt.StreamID, set)
}

func scheduleDeactivated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableSchedules, evt.StreamID, storage.Row{
		"is_active":      false,
		"deactivated_at": at,
		"updated_at":     at,
	})
}

func scheduleReactivated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	return updateByID(ctx, tx, evt, storage.TableSchedules, evt.StreamID, storage.Row{
		"is_active":      true,
		"deactivated_at": nil,
		"updated_at":     eventTime(evt),
	})
}

// Assignments live on the schedule stream and name themselves in assignment_id.
func scheduleAssignmentCreated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)

	assignmentID := p.ID("assignment_id")
	if assignmentID == "" {
		return missingTarget(evt.EventType, "assignment_id")
	}
	userID := p.ID("user_id")
	if userID == "" {
		return missingTarget(evt.EventType, "user_id")
	}

	scheduleID := p.ID("schedule_id")
	if scheduleID == "" {
		scheduleID = evt.StreamID
	}

	err := tx.Upsert(ctx, storage.TableScheduleAssignments, storage.Row{
		"id":          assignmentID,
		"schedule_id": scheduleID,
		"user_id":     userID,
		"starts_at":   p.Time("starts_at", at),
		"ended_at":    nil,
		"created_at":  at,
		"updated_at":  at,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}

func scheduleAssignmentEnded(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)

	assignmentID := p.ID("assignment_id")
	if assignmentID == "" {
		return missingTarget(evt.EventType, "assignment_id")
	}
	return updateByID(ctx, tx, evt, storage.TableScheduleAssignments, assignmentID, storage.Row{
		"ended_at":   p.Time("ended_at", at),
		"updated_at": at,
	})
}
