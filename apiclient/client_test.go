package apiclient_test

import (
	"context"
	"errors"
	"testing"

	apiclient "github.com/lumenhub/lumend/apiclient"
	apitypes "github.com/lumenhub/lumend/apitypes"

	"github.com/stretchr/testify/assert"
)

// testClient constructs a client backed by a simple in-memory responder
// keyed by exact request path.
func testClient(responses map[string]*apitypes.Result, err error) *apiclient.Client {
	return apiclient.WithTransport(apiclient.NewMockTransport(func(path string, _ any) (*apitypes.Result, error) {
		if err != nil {
			return nil, err
		}
		if out, ok := responses[path]; ok {
			return out, nil
		}
		return &apitypes.Result{OK: true}, nil
	}))
}

func ok(data any) *apitypes.Result { return &apitypes.Result{OK: true, Data: data} }

func apiErr(status int, title, detail string) *apitypes.Result {
	return &apitypes.Result{OK: false, Error: &apitypes.ApiError{Status: status, Title: title, Detail: detail}}
}

func TestHighLevelClient(t *testing.T) {
	tests := []struct {
		name       string
		responses  map[string]*apitypes.Result
		dialErr    error
		call       func(c *apiclient.Client) (any, error)
		wantErr    string
		assertFunc func(t *testing.T, got any)
	}{
		{
			name: "devices list",
			responses: map[string]*apitypes.Result{
				"/devices": ok(apitypes.DevicesListResponse{Devices: []apitypes.DeviceResource{{Key: "kbd-0"}}}),
			},
			call: func(c *apiclient.Client) (any, error) { return c.Devices(context.Background()) },
			assertFunc: func(t *testing.T, got any) {
				devs := got.([]apitypes.DeviceResource)
				assert.Len(t, devs, 1)
				assert.Equal(t, "kbd-0", devs[0].Key)
			},
		},
		{
			name: "set fx error structured",
			responses: map[string]*apitypes.Result{
				"/devices/kbd-0/setfx": apiErr(409, "Conflict", "device has no FX manager"),
			},
			call:    func(c *apiclient.Client) (any, error) { return nil, c.SetFX(context.Background(), "kbd-0", "static", nil) },
			wantErr: "409 Conflict: device has no FX manager",
		},
		{
			name:    "transport failure",
			dialErr: errors.New("dial fail"),
			call:    func(c *apiclient.Client) (any, error) { return c.Devices(context.Background()) },
			wantErr: "dial fail",
		},
		{
			name: "add renderer returns zindex",
			responses: map[string]*apitypes.Result{
				"/devices/kbd-0/addrenderer": ok(apitypes.AddRendererResponse{ZIndex: 3}),
			},
			call: func(c *apiclient.Client) (any, error) {
				return c.AddRenderer(context.Background(), "kbd-0", "static", 0, nil)
			},
			assertFunc: func(t *testing.T, got any) { assert.Equal(t, 3, got.(int)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(tt.responses, tt.dialErr)
			got, err := tt.call(c)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			if tt.assertFunc != nil {
				tt.assertFunc(t, got)
			}
		})
	}
}

func TestContextCancellation(t *testing.T) {
	c := apiclient.WithTransport(apiclient.NewTransport("127.0.0.1:9")) // unroutable test port, cancel fires first
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Devices(ctx)
	assert.Error(t, err)
}
