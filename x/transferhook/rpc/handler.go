// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc serves read-only JSON-RPC queries for the transfer hook over
// any source of committed accounts.
package rpc

import (
	"net/http"

	"github.com/ava-labs/avalanchego/utils/logging"
	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"
)

const (
	Name     = "transferhook"
	Endpoint = "/ext/" + Name
)

type Option func(*Service)

// WithDeriver memoizes the derivations made while resolving accounts.
func WithDeriver(d *pda.Deriver) Option {
	return func(s *Service) {
		s.deriver = d
	}
}

// NewHandler returns a JSON-RPC 2.0 handler exposing the Service as
// [Name].
func NewHandler(fetch chain.Fetcher, log logging.Logger, opts ...Option) (http.Handler, error) {
	service := &Service{
		log:     log,
		fetch:   fetch,
		deriver: pda.NewDeriver(pda.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(service)
	}

	server := gorillarpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")
	return server, server.RegisterService(service, Name)
}
