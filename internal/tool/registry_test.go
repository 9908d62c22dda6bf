package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, args Args) (string, error) {
	return "ok:" + args.String("name"), nil
}

func TestRegister(t *testing.T) {
	t.Run("rejects empty name", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register(Definition{}, echoHandler)
		assert.Error(t, err)
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register(Definition{Name: "x"}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Definition{Name: "x"}, echoHandler))
		err := r.Register(Definition{Name: "x"}, echoHandler)
		assert.ErrorContains(t, err, "already registered")
	})

	t.Run("preserves registration order", func(t *testing.T) {
		r := NewRegistry()
		for _, name := range []string{"c", "a", "b"} {
			require.NoError(t, r.Register(Definition{Name: name}, echoHandler))
		}
		defs := r.Definitions()
		require.Len(t, defs, 3)
		assert.Equal(t, "c", defs[0].Name)
		assert.Equal(t, "a", defs[1].Name)
		assert.Equal(t, "b", defs[2].Name)
	})
}

func TestInvoke(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Definition{
		Name: "greet",
		Params: []Param{
			{Name: "name", Type: TypeString, Required: true},
		},
	}, echoHandler)

	t.Run("runs the handler with validated args", func(t *testing.T) {
		result, err := r.Invoke(context.Background(), "greet", json.RawMessage(`{"name":"Ada"}`))
		require.NoError(t, err)
		assert.Equal(t, "ok:Ada", result)
	})

	t.Run("unknown tool is a validation error", func(t *testing.T) {
		_, err := r.Invoke(context.Background(), "nope", nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "nope", verr.Tool)
		assert.Contains(t, verr.Reason, "unknown tool")
	})

	t.Run("schema rejection never reaches the handler", func(t *testing.T) {
		called := false
		r := NewRegistry()
		r.MustRegister(Definition{
			Name:   "strict",
			Params: []Param{{Name: "id", Type: TypeInteger, Required: true}},
		}, func(_ context.Context, _ Args) (string, error) {
			called = true
			return "", nil
		})

		_, err := r.Invoke(context.Background(), "strict", json.RawMessage(`{}`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.False(t, called)
	})

	t.Run("handler errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		r := NewRegistry()
		r.MustRegister(Definition{Name: "bad"}, func(_ context.Context, _ Args) (string, error) {
			return "", boom
		})
		_, err := r.Invoke(context.Background(), "bad", nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestValidateArgs(t *testing.T) {
	def := Definition{
		Name: "book",
		Params: []Param{
			{Name: "room_id", Type: TypeInteger, Required: true},
			{Name: "guest_name", Type: TypeString, Required: true},
			{Name: "num_adults", Type: TypeInteger, Default: 2},
			{Name: "special_requests", Type: TypeString, Default: ""},
		},
	}

	t.Run("valid arguments with defaults applied", func(t *testing.T) {
		args, err := def.ValidateArgs(json.RawMessage(`{"room_id":12345,"guest_name":"John Smith"}`))
		require.NoError(t, err)
		assert.Equal(t, int64(12345), args.Int("room_id"))
		assert.Equal(t, "John Smith", args.String("guest_name"))
		assert.Equal(t, int64(2), args.Int("num_adults"))
		assert.Equal(t, "", args.String("special_requests"))
	})

	t.Run("missing required argument", func(t *testing.T) {
		_, err := def.ValidateArgs(json.RawMessage(`{"room_id":12345}`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "guest_name")
	})

	t.Run("null counts as absent", func(t *testing.T) {
		_, err := def.ValidateArgs(json.RawMessage(`{"room_id":12345,"guest_name":null}`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "guest_name")
	})

	t.Run("integer given as quoted string is coerced", func(t *testing.T) {
		args, err := def.ValidateArgs(json.RawMessage(`{"room_id":"12345","guest_name":"J"}`))
		require.NoError(t, err)
		assert.Equal(t, int64(12345), args.Int("room_id"))
	})

	t.Run("fractional number is rejected", func(t *testing.T) {
		_, err := def.ValidateArgs(json.RawMessage(`{"room_id":1.5,"guest_name":"J"}`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "room_id")
	})

	t.Run("wrong string type is rejected", func(t *testing.T) {
		_, err := def.ValidateArgs(json.RawMessage(`{"room_id":1,"guest_name":42}`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "guest_name")
	})

	t.Run("unknown extra keys are ignored", func(t *testing.T) {
		args, err := def.ValidateArgs(json.RawMessage(`{"room_id":1,"guest_name":"J","confidence":0.9}`))
		require.NoError(t, err)
		_, present := args["confidence"]
		assert.False(t, present)
	})

	t.Run("non-object arguments are rejected", func(t *testing.T) {
		_, err := def.ValidateArgs(json.RawMessage(`[1,2]`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("empty raw with no required params", func(t *testing.T) {
		d := Definition{Name: "now"}
		args, err := d.ValidateArgs(nil)
		require.NoError(t, err)
		assert.Empty(t, args)
	})
}

func TestSchema(t *testing.T) {
	def := Definition{
		Name: "check_availability",
		Params: []Param{
			{Name: "check_in_date", Type: TypeString, Description: "Arrival date", Required: true},
			{Name: "number_of_guests", Type: TypeInteger, Default: 1},
		},
	}

	var schema map[string]any
	require.NoError(t, json.Unmarshal(def.Schema(), &schema))
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	checkIn, ok := props["check_in_date"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", checkIn["type"])
	assert.Equal(t, "Arrival date", checkIn["description"])

	guests, ok := props["number_of_guests"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), guests["default"])

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"check_in_date"}, required)
}
