// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package probe

import "net/http"

// Option is the option to create a probe server
type Option func(*Server)

// WithReadinessHandler replaces the handler answering once the daemon is ready
func WithReadinessHandler(h http.Handler) Option {
	return func(s *Server) {
		s.readinessHandler = h
	}
}

// WithMux lets f register extra routes, such as the log level handler
func WithMux(f func(*http.ServeMux)) Option {
	return func(s *Server) {
		f(s.mux)
	}
}
