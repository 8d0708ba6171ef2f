package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

// automationService bridges gRPC requests to the orchestrator
type automationService struct {
	daemon *DaemonServer
}

func (s *automationService) StartAutomation(ctx context.Context, req *StartAutomationRequest) (*AutomationState, error) {
	kind, err := automation.ParseBehaviorKind(req.Behavior)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	state, err := s.daemon.automations.Start(ctx, req.ShipSymbol, kind, req.Overrides)
	if err != nil {
		// A state with an error means the automation started but was not persisted
		if state == nil {
			return nil, toStatus(err)
		}
		s.daemon.logger.Log("WARNING", "Automation started without persisting", map[string]interface{}{
			"ship_symbol": req.ShipSymbol,
			"error":       err.Error(),
		})
	}
	wire := toWireState(state)
	return &wire, nil
}

func (s *automationService) StopAutomation(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return s.transition(ctx, req, s.daemon.automations.Stop)
}

func (s *automationService) PauseAutomation(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return s.transition(ctx, req, s.daemon.automations.Pause)
}

func (s *automationService) ResumeAutomation(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return s.transition(ctx, req, s.daemon.automations.Resume)
}

func (s *automationService) transition(ctx context.Context, req *wrapperspb.StringValue, fn func(context.Context, string) error) (*emptypb.Empty, error) {
	shipSymbol := req.GetValue()
	if shipSymbol == "" {
		return nil, status.Error(codes.InvalidArgument, "shipSymbol is required")
	}
	if err := fn(ctx, shipSymbol); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *automationService) GetAutomation(ctx context.Context, req *wrapperspb.StringValue) (*AutomationDetail, error) {
	shipSymbol := req.GetValue()
	state, ok := s.daemon.automations.Get(shipSymbol)
	if !ok {
		return nil, status.Error(codes.NotFound, fmt.Sprintf("no automation for ship %s", shipSymbol))
	}
	queue, _ := s.daemon.automations.Queue(shipSymbol)
	if queue == nil {
		queue = []automation.ActionStep{}
	}
	return &AutomationDetail{State: toWireState(state), Queue: queue}, nil
}

func (s *automationService) ListAutomations(ctx context.Context, req *ListAutomationsRequest) (*ListAutomationsResponse, error) {
	if req.Status != "" {
		if _, err := automation.ParseRunStatus(req.Status); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	states := s.daemon.automations.GetAll()
	resp := &ListAutomationsResponse{Automations: make([]AutomationState, 0, len(states))}
	for i := range states {
		if req.Status != "" && string(states[i].Status) != req.Status {
			continue
		}
		resp.Automations = append(resp.Automations, toWireState(&states[i]))
	}
	return resp, nil
}

func (s *automationService) SyncCatalog(ctx context.Context, req *SyncCatalogRequest) (*wrapperspb.Int32Value, error) {
	if req.SystemSymbol == "" {
		return nil, status.Error(codes.InvalidArgument, "systemSymbol is required")
	}
	if s.daemon.catalog == nil {
		return nil, status.Error(codes.Unimplemented, "catalog sync is not configured")
	}
	count, err := s.daemon.catalog.Sync(ctx, req.SystemSymbol)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Int32(int32(count)), nil
}
