package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// ScoringClient calls scoring.v1.ScoringService and decodes the Struct
// responses into domain results.
type ScoringClient struct {
	cc grpc.ClientConnInterface
}

func NewScoringClient(cc grpc.ClientConnInterface) *ScoringClient {
	return &ScoringClient{cc: cc}
}

func (c *ScoringClient) ComputeTrustScore(ctx context.Context, userID, trigger string) (*domain.TrustResult, error) {
	in, err := toStruct(trustScoreRequest{UserID: userID, TriggerEvent: trigger})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodComputeTrustScore, in, out); err != nil {
		return nil, err
	}
	var result domain.TrustResult
	if err := fromStruct(out, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *ScoringClient) ModerateCampaign(ctx context.Context, req domain.ModerationRequest) (*domain.ModerationResult, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodModerateCampaign, in, out); err != nil {
		return nil, err
	}
	var result domain.ModerationResult
	if err := fromStruct(out, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
