package grpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

// DaemonClient talks to a running daemon over its Unix socket
type DaemonClient struct {
	conn *grpc.ClientConn
}

// NewDaemonClient connects to the daemon socket. The connection is lazy: a
// missing daemon surfaces as an Unavailable error on the first call.
func NewDaemonClient(socketPath string) (*DaemonClient, error) {
	return dial("unix:"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// NewDaemonClientWithDialer connects through a custom dialer (used with
// in-memory listeners)
func NewDaemonClientWithDialer(dialer func(context.Context, string) (net.Conn, error)) (*DaemonClient, error) {
	return dial("passthrough:///autopilot",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
	)
}

func dial(target string, opts ...grpc.DialOption) (*DaemonClient, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})))
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon socket: %w", err)
	}
	return &DaemonClient{conn: conn}, nil
}

// Close closes the gRPC connection
func (c *DaemonClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// StartAutomation starts (or restarts) a ship's automation
func (c *DaemonClient) StartAutomation(ctx context.Context, shipSymbol string, behavior automation.BehaviorKind, overrides map[string]interface{}) (*automation.State, error) {
	req := &StartAutomationRequest{
		ShipSymbol: shipSymbol,
		Behavior:   string(behavior),
		Overrides:  overrides,
	}
	var resp AutomationState
	if err := c.conn.Invoke(ctx, methodStart, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to start automation: %w", err)
	}
	state := resp.ToDomain()
	return &state, nil
}

func (c *DaemonClient) StopAutomation(ctx context.Context, shipSymbol string) error {
	return c.shipCall(ctx, methodStop, shipSymbol, "stop")
}

func (c *DaemonClient) PauseAutomation(ctx context.Context, shipSymbol string) error {
	return c.shipCall(ctx, methodPause, shipSymbol, "pause")
}

func (c *DaemonClient) ResumeAutomation(ctx context.Context, shipSymbol string) error {
	return c.shipCall(ctx, methodResume, shipSymbol, "resume")
}

func (c *DaemonClient) shipCall(ctx context.Context, method, shipSymbol, verb string) error {
	if err := c.conn.Invoke(ctx, method, wrapperspb.String(shipSymbol), &emptypb.Empty{}); err != nil {
		return fmt.Errorf("failed to %s automation: %w", verb, err)
	}
	return nil
}

// GetAutomation returns a ship's state and pending steps
func (c *DaemonClient) GetAutomation(ctx context.Context, shipSymbol string) (*automation.State, []automation.ActionStep, error) {
	var resp AutomationDetail
	if err := c.conn.Invoke(ctx, methodGet, wrapperspb.String(shipSymbol), &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to get automation: %w", err)
	}
	state := resp.State.ToDomain()
	return &state, resp.Queue, nil
}

// ListAutomations returns every automation, optionally filtered by status
func (c *DaemonClient) ListAutomations(ctx context.Context, status automation.RunStatus) ([]automation.State, error) {
	var resp ListAutomationsResponse
	if err := c.conn.Invoke(ctx, methodList, &ListAutomationsRequest{Status: string(status)}, &resp); err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}
	states := make([]automation.State, 0, len(resp.Automations))
	for _, wire := range resp.Automations {
		states = append(states, wire.ToDomain())
	}
	return states, nil
}

// SyncCatalog refreshes the daemon's catalog for a system
func (c *DaemonClient) SyncCatalog(ctx context.Context, systemSymbol string) (int, error) {
	resp := &wrapperspb.Int32Value{}
	if err := c.conn.Invoke(ctx, methodSync, &SyncCatalogRequest{SystemSymbol: systemSymbol}, resp); err != nil {
		return 0, fmt.Errorf("failed to sync catalog: %w", err)
	}
	return int(resp.GetValue()), nil
}
