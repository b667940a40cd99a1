package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/handler"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

func trustCmd(flags *globalFlags) *cobra.Command {
	var userID, trigger string
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Recalculate a fundraiser's trust score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *handler.ScoringClient) (interface{}, error) {
				return c.ComputeTrustScore(ctx, userID, trigger)
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "fundraiser user id")
	cmd.Flags().StringVarP(&trigger, "trigger", "t", domain.TriggerManual, "trigger recorded on the audit event")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func moderateCmd(flags *globalFlags) *cobra.Command {
	var campaignID, file string
	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Screen a stored campaign or a campaign JSON file",
		Long: `Screen campaign content.

With --campaign the stored campaign is screened and the decision is persisted.
With --file the JSON campaign is screened; without an id in the file this is a
dry run and nothing is persisted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := moderationRequest(campaignID, file)
			if err != nil {
				return err
			}
			return withClient(cmd, flags, func(ctx context.Context, c *handler.ScoringClient) (interface{}, error) {
				return c.ModerateCampaign(ctx, req)
			})
		},
	}
	cmd.Flags().StringVarP(&campaignID, "campaign", "c", "", "stored campaign id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a campaign JSON document")
	return cmd
}

func moderationRequest(campaignID, file string) (domain.ModerationRequest, error) {
	req := domain.ModerationRequest{CampaignID: campaignID}
	if file == "" {
		if campaignID == "" {
			return req, errors.New("one of --campaign or --file is required")
		}
		return req, nil
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return req, fmt.Errorf("read campaign file: %w", err)
	}
	var c domain.Campaign
	if err := json.Unmarshal(raw, &c); err != nil {
		return req, fmt.Errorf("parse campaign file: %w", err)
	}
	req.Campaign = &c
	return req, nil
}
