package room

import (
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hilthontt/roomkeeper/internal/domain"
)

func newID() string {
	return uuid.NewString()
}

// clampCapacity resolves the create-time capacity into [1, max].
func clampCapacity(requested *int, defaultCapacity, maxCapacity int) int {
	if requested == nil {
		return defaultCapacity
	}
	return min(max(*requested, 1), maxCapacity)
}

// changedFields lists the update fields that were supplied, for auditing.
func changedFields(u domain.RoomUpdate) []string {
	var fields []string
	if u.Name != nil {
		fields = append(fields, "name")
	}
	if u.Capacity != nil {
		fields = append(fields, "capacity")
	}
	if u.PasswordHash != nil {
		fields = append(fields, "password")
	}
	if u.Announcement != nil {
		fields = append(fields, "announcement")
	}
	sort.Strings(fields)
	return fields
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
