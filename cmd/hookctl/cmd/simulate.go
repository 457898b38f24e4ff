// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/host"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/simulator"
)

var errTooFewParticipants = errors.New("at least two participants are required")

var (
	participantsFlag int
	amountFlag       uint64
	roundsFlag       int
)

type participantReport struct {
	Name    string        `yaml:"name"`
	Address codec.Address `yaml:"address"`
	Balance uint64        `yaml:"balance"`
	Volume  uint64        `yaml:"volume"`
}

type simulationReport struct {
	Resource     codec.Address       `yaml:"resource"`
	Transfers    int                 `yaml:"transfers"`
	Submitted    uint64              `yaml:"submitted"`
	Failed       uint64              `yaml:"failed"`
	Volume       uint64              `yaml:"volume"`
	Participants []participantReport `yaml:"participants"`
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Register participants and run a ring of hooked transfers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if participantsFlag < 2 {
			return errTooFewParticipants
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		store, err := openStore(log)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		s, err := simulator.New(ctx, simulatorConfig(), log, store, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		report, err := simulate(ctx, s, participantsFlag, roundsFlag, amountFlag)
		if err != nil {
			return err
		}
		log.Info("simulation finished",
			zap.Stringer("resource", report.Resource),
			zap.Int("transfers", report.Transfers),
			zap.Uint64("volume", report.Volume),
		)
		return printYAML(cmd, report)
	},
}

func init() {
	simulateCmd.Flags().IntVar(&participantsFlag, "participants", 3, "number of participants")
	simulateCmd.Flags().Uint64Var(&amountFlag, "amount", 10, "amount of every transfer")
	simulateCmd.Flags().IntVar(&roundsFlag, "rounds", 1, "number of times around the ring")
}

func simulate(ctx context.Context, s *simulator.Simulator, n, rounds int, amount uint64) (*simulationReport, error) {
	keys := make([]*host.Keypair, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range keys {
		i := i
		g.Go(func() error {
			key, err := s.NewParticipant(gctx)
			if err != nil {
				return err
			}
			if err := s.RegisterProfile(gctx, key, participantName(i)); err != nil {
				return fmt.Errorf("failed to register %s: %w", participantName(i), err)
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	authority, err := s.NewParticipant(ctx)
	if err != nil {
		return nil, err
	}
	resource, err := s.RegisterResource(ctx, authority, instruction.RegisterResource{
		Name:   "Simulated resource",
		Symbol: "SIM",
	})
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if err := s.Mint(ctx, resource, authority, key.Address(), amount*uint64(rounds)); err != nil {
			return nil, err
		}
	}

	report := &simulationReport{Resource: resource}
	for round := 0; round < rounds; round++ {
		for i, from := range keys {
			to := keys[(i+1)%n].Address()
			if err := s.Transfer(ctx, resource, from, to, amount); err != nil {
				return nil, fmt.Errorf("transfer from %s failed: %w", participantName(i), err)
			}
			report.Transfers++
		}
	}

	tracker, err := s.Tracker(ctx)
	if err != nil {
		return nil, err
	}
	report.Volume, _ = tracker.Get(resource)
	for _, key := range keys {
		profile, err := s.Profile(ctx, key.Address())
		if err != nil {
			return nil, err
		}
		balance, err := s.Balance(ctx, key.Address(), resource)
		if err != nil {
			return nil, err
		}
		report.Participants = append(report.Participants, participantReport{
			Name:    profile.DisplayName,
			Address: key.Address(),
			Balance: balance,
			Volume:  profile.Volume,
		})
	}
	report.Submitted = s.Runtime().Submitted()
	report.Failed = s.Runtime().Failed()
	return report, nil
}

func participantName(i int) string {
	return fmt.Sprintf("participant-%d", i)
}
