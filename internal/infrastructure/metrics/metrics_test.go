package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilthontt/roomkeeper/internal/domain"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "not_found", Outcome(domain.ErrRoomNotFound))
	assert.Equal(t, "not_found", Outcome(fmt.Errorf("leave: %w", domain.ErrParticipantNotFound)))
	assert.Equal(t, "room_full", Outcome(domain.ErrRoomFull))
	assert.Equal(t, "invalid_config", Outcome(fmt.Errorf("%w: name", domain.ErrInvalidConfig)))
	assert.Equal(t, "error", Outcome(errors.New("disk full")))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOperation("join", time.Now(), nil)
	m.ObserveOperation("join", time.Now(), domain.ErrRoomFull)
	m.ObserveOperation("join", time.Now(), domain.ErrRoomFull)

	name := "roomkeeper_room_operations_total"
	assert.Equal(t, 1.0, counterValue(t, reg, name, map[string]string{"operation": "join", "outcome": "ok"}))
	assert.Equal(t, 2.0, counterValue(t, reg, name, map[string]string{"operation": "join", "outcome": "room_full"}))
}

func TestRegisterStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RegisterStats(func() domain.Stats {
		return domain.Stats{OpenRooms: 2, DissolvedRooms: 1, TotalParticipants: 5}
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetGauge() != nil {
				values[family.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["roomkeeper_rooms_open"])
	assert.Equal(t, 1.0, values["roomkeeper_rooms_dissolved"])
	assert.Equal(t, 5.0, values["roomkeeper_participants"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("get", time.Now(), nil)
	m.IncrementJoinRejected("full")
	m.AddRoomsExpired(3)
	m.IncrementAuditPublishFailure()
}
