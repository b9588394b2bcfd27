package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sensorRecorder struct {
	calls [][3]float64
}

func (s *sensorRecorder) record(x, y, z float64) {
	s.calls = append(s.calls, [3]float64{x, y, z})
}

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()
	rec := &sensorRecorder{}
	r.ProvideSensor(MethodRecordSensorMovement, rec.record)

	require.NoError(t, r.Call(MethodRecordSensorMovement, []float64{0.1, -0.2, 1.0}))
	assert.Equal(t, [][3]float64{{0.1, -0.2, 1.0}}, rec.calls)
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()
	r.ProvideSensor(MethodRecordSensorMovement, func(x, y, z float64) {
		t.Fatal("must not be called")
	})

	tests := []struct {
		name    string
		method  string
		args    []float64
		wantErr error
	}{
		{"unknown method", "record_gps", []float64{1, 2, 3}, ErrUnknownMethod},
		{"too few", MethodRecordSensorMovement, []float64{1, 2}, ErrBadArity},
		{"too many", MethodRecordSensorMovement, []float64{1, 2, 3, 4}, ErrBadArity},
		{"none", MethodRecordSensorMovement, nil, ErrBadArity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.Call(tt.method, tt.args), tt.wantErr)
		})
	}
}

func TestRegistry_VariadicAndHandlerError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")

	var got []float64
	r.Provide("log", -1, func(args []float64) error {
		got = args
		return nil
	})
	r.Provide("fail", 0, func([]float64) error { return boom })

	require.NoError(t, r.Call("log", []float64{1, 2, 3, 4, 5}))
	assert.Len(t, got, 5)
	assert.ErrorIs(t, r.Call("fail", nil), boom)
	assert.Equal(t, []string{"fail", "log"}, r.Names())
}

func TestDecodeArgs(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []float64
		wantErr bool
	}{
		{"array", `[0.1, 0.2, 0.98]`, []float64{0.1, 0.2, 0.98}, false},
		{"wrapped", `{"args": [1, 2, 3]}`, []float64{1, 2, 3}, false},
		{"empty array", `[]`, []float64{}, false},
		{"missing args", `{"x": 1}`, nil, true},
		{"strings", `["a", "b"]`, nil, true},
		{"not json", `x=1`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeArgs([]byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMQTTListener_HandleMessage(t *testing.T) {
	r := NewRegistry()
	rec := &sensorRecorder{}
	r.ProvideSensor(MethodRecordSensorMovement, rec.record)

	l, err := NewMQTTListener(MQTTConfig{
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "car/bridge/",
	}, r, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "car/bridge/+", l.Topic())

	require.NoError(t, l.HandleMessage("car/bridge/record_sensor_movement", []byte(`[0, 0, 1]`)))
	require.NoError(t, l.HandleMessage("car/bridge/record_sensor_movement", []byte(`{"args":[0.5,0,1]}`)))
	assert.Equal(t, [][3]float64{{0, 0, 1}, {0.5, 0, 1}}, rec.calls)

	assert.ErrorIs(t, l.HandleMessage("car/bridge/unknown", []byte(`[1]`)), ErrUnknownMethod)
	assert.ErrorIs(t, l.HandleMessage("other/record_sensor_movement", []byte(`[0,0,1]`)), ErrUnknownMethod)
	assert.ErrorIs(t, l.HandleMessage("car/bridge/", []byte(`[0,0,1]`)), ErrUnknownMethod)
	assert.ErrorIs(t, l.HandleMessage("car/bridge/record_sensor_movement", []byte(`nope`)), ErrBadPayload)
	assert.ErrorIs(t, l.HandleMessage("car/bridge/record_sensor_movement", []byte(`[1,2]`)), ErrBadArity)
}

func TestNewMQTTListener_Defaults(t *testing.T) {
	_, err := NewMQTTListener(MQTTConfig{}, NewRegistry(), nil)
	assert.Error(t, err)

	l, err := NewMQTTListener(MQTTConfig{Broker: "tcp://localhost:1883"}, NewRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopicPrefix+"/+", l.Topic())
	assert.NotEmpty(t, l.cfg.ClientID)

	// Stop before Start is harmless.
	l.Stop()
}
