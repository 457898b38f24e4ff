// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/resolution"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/rpc"
)

var errNoOwner = errors.New("--owner or --resource is required")

var (
	ownerFlag    string
	resourceFlag string
)

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Derive the hook's addresses for an owner and resource",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if ownerFlag == "" && resourceFlag == "" {
			return errNoOwner
		}
		owner, err := optionalAddress(ownerFlag)
		if err != nil {
			return fmt.Errorf("invalid owner: %w", err)
		}
		resource, err := optionalAddress(resourceFlag)
		if err != nil {
			return fmt.Errorf("invalid resource: %w", err)
		}
		addrs, err := rpc.Derive(owner, resource)
		if err != nil {
			return err
		}
		return printYAML(cmd, addrs)
	},
}

var descriptorsCmd = &cobra.Command{
	Use:   "descriptors",
	Short: "Print the account descriptors written for every resource",
	RunE: func(cmd *cobra.Command, _ []string) error {
		descriptors := resolution.ExecuteDescriptors()
		out := struct {
			Size        int      `yaml:"size"`
			Descriptors []string `yaml:"descriptors"`
		}{
			Size: resolution.GetLen(len(descriptors)),
		}
		for _, d := range descriptors {
			out.Descriptors = append(out.Descriptors, d.String())
		}
		return printYAML(cmd, out)
	},
}

func init() {
	addressesCmd.Flags().StringVar(&ownerFlag, "owner", "", "owner address")
	addressesCmd.Flags().StringVar(&resourceFlag, "resource", "", "resource address")
}

func optionalAddress(s string) (codec.Address, error) {
	if s == "" {
		return codec.EmptyAddress, nil
	}
	return codec.ParseAddress(s)
}

func printYAML(cmd *cobra.Command, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}
